package domain

import "context"

// ExtractionResult is the outcome of reading a business card image.
type ExtractionResult struct {
	Fields      map[string]any
	TotalTokens int
}

// CardExtractor reads contact fields from a base64-encoded card image.
type CardExtractor interface {
	Extract(ctx context.Context, imageBase64 string) (ExtractionResult, error)
}
