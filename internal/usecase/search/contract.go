package search

import (
	"context"

	"github.com/cardex-cloud/cardex/internal/domain"
	"github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/domain/search/rank"
)

// Repository defines the storage contract for contact retrieval.
type Repository interface {
	VectorSearch(ctx context.Context, ownerID string, vector []float32, k int) ([]rank.Candidate, error)
	TextSearch(ctx context.Context, ownerID, query string, limit int) ([]contact.Record, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
