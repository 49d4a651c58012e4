package contact

// Vision token cost model: a fixed base plus a per-tile cost on a 512px grid.
const (
	visionBaseTokens = 85
	visionTileTokens = 170
	visionTileSide   = 512
)

// EstimateImageTokens approximates the vision token cost of an image from its
// dimensions. Non-positive dimensions cost the base alone.
func EstimateImageTokens(width, height int) int {
	if width <= 0 || height <= 0 {
		return visionBaseTokens
	}
	tiles := ceilDiv(width, visionTileSide) * ceilDiv(height, visionTileSide)
	return visionBaseTokens + tiles*visionTileTokens
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
