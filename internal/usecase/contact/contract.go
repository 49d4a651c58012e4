package contact

import (
	"context"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
)

// Repository defines the storage contract for contact records.
type Repository interface {
	Save(ctx context.Context, rec *domcontact.Record) error
	Get(ctx context.Context, ownerID, id string) (domcontact.Record, error)
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error)
}

// Extractor reads structured contact fields from a base64-encoded card image.
type Extractor interface {
	Extract(ctx context.Context, imageBase64 string) (domain.ExtractionResult, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
