package domain

// KeyPrefix namespaces every key the service writes to the store.
var KeyPrefix = "cardex:"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultVectorConfig returns the defaults tuned for text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}
