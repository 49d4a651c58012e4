package db

// KNNQuery is the input for vector similarity search. OwnerTag is mandatory:
// owner scoping happens as an FT pre-filter, never downstream.
type KNNQuery struct {
	IndexName    string
	OwnerTag     string
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for owner-scoped listing via FT.SEARCH.
type ListQuery struct {
	IndexName    string
	OwnerTag     string
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
