package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
)

// uncategorized buckets contacts whose extraction produced no category.
const uncategorized = "uncategorized"

// Config holds the ingestion and listing settings.
type Config struct {
	// ImageMaxSide caps card photo dimensions before the vision call.
	ImageMaxSide int
	// TokenBudget rejects images whose estimated vision cost exceeds it.
	// Zero disables the check.
	TokenBudget     int
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultConfig returns the production ingestion settings.
func DefaultConfig() Config {
	return Config{
		ImageMaxSide:    2048,
		TokenBudget:     0,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// Stats summarizes an owner's contacts.
type Stats struct {
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
}

// Service handles contact ingestion, listing, and deletion. All operations
// are owner-scoped.
type Service struct {
	repo      Repository
	extractor Extractor
	embed     Embedder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a contact service.
func New(repo Repository, extractor Extractor, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		embed:     embed,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// IngestImage extracts a business card photo into a stored contact record.
// The image is downscaled and budget-checked before the vision call.
func (s *Service) IngestImage(ctx context.Context, ownerID string, image []byte) (domcontact.Record, error) {
	if ownerID == "" {
		return domcontact.Record{}, domain.ErrUnauthorized
	}
	if len(image) == 0 {
		return domcontact.Record{}, fmt.Errorf("image data is required: %w", domain.ErrInvalidInput)
	}

	b64, width, height, err := prepareImage(image, s.cfg.ImageMaxSide)
	if err != nil {
		return domcontact.Record{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	estimated := EstimateImageTokens(width, height)
	if s.cfg.TokenBudget > 0 && estimated > s.cfg.TokenBudget {
		return domcontact.Record{}, fmt.Errorf(
			"estimated %d vision tokens over budget %d: %w",
			estimated, s.cfg.TokenBudget, domain.ErrTokenBudgetExceeded,
		)
	}

	result, err := s.extractor.Extract(ctx, b64)
	if err != nil {
		return domcontact.Record{}, fmt.Errorf("extract card: %w", err)
	}

	s.logger.Debug("Card image ingested",
		zap.String("owner_id", ownerID),
		zap.Int("estimated_tokens", estimated),
		zap.Int("extraction_tokens", result.TotalTokens),
	)

	return s.store(ctx, ownerID, result.Fields)
}

// IngestFields stores a contact from caller-supplied fields, skipping extraction.
func (s *Service) IngestFields(ctx context.Context, ownerID string, fields map[string]any) (domcontact.Record, error) {
	if ownerID == "" {
		return domcontact.Record{}, domain.ErrUnauthorized
	}
	if len(fields) == 0 {
		return domcontact.Record{}, fmt.Errorf("contact fields are required: %w", domain.ErrInvalidInput)
	}
	return s.store(ctx, ownerID, fields)
}

// store builds the record, vectorizes its searchable text, and persists it.
// Embedding failure is tolerated: the record is stored without a vector and
// stays reachable through the text fallback path.
func (s *Service) store(ctx context.Context, ownerID string, fields map[string]any) (domcontact.Record, error) {
	rec, err := domcontact.New(uuid.NewString(), ownerID, fields, s.now().UTC())
	if err != nil {
		return domcontact.Record{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	emb, err := s.embed.Embed(ctx, rec.SearchableText())
	if err != nil {
		s.logger.Warn("Embedding failed, storing contact without vector",
			zap.String("contact_id", rec.ID()), zap.Error(err))
	} else {
		rec = rec.WithEmbedding(emb.Embedding)
	}

	if err := s.repo.Save(ctx, &rec); err != nil {
		return domcontact.Record{}, fmt.Errorf("save contact: %w", err)
	}
	return rec, nil
}

// Get returns an owner's contact by ID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domcontact.Record, error) {
	if ownerID == "" {
		return domcontact.Record{}, domain.ErrUnauthorized
	}
	rec, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return domcontact.Record{}, fmt.Errorf("get contact: %w", err)
	}
	return rec, nil
}

// List returns a page of an owner's contacts plus the owner's total.
func (s *Service) List(ctx context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error) {
	if ownerID == "" {
		return nil, 0, domain.ErrUnauthorized
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	recs, total, err := s.repo.List(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	return recs, total, nil
}

// Delete removes an owner's contact.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// Stats returns the owner's contact total and a business-category histogram.
func (s *Service) Stats(ctx context.Context, ownerID string) (Stats, error) {
	if ownerID == "" {
		return Stats{}, domain.ErrUnauthorized
	}

	stats := Stats{Categories: make(map[string]int)}
	offset := 0
	for {
		recs, total, err := s.repo.List(ctx, ownerID, offset, s.cfg.MaxPageSize)
		if err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
		stats.Total = total

		for i := range recs {
			category := strings.ToLower(recs[i].Field(domcontact.FieldBusinessCategory))
			if category == "" {
				category = uncategorized
			}
			stats.Categories[category]++
		}

		offset += len(recs)
		if len(recs) == 0 || offset >= total {
			break
		}
	}
	return stats, nil
}
