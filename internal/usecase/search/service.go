package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	"github.com/cardex-cloud/cardex/internal/domain/search/enhance"
	"github.com/cardex-cloud/cardex/internal/domain/search/rank"
	"github.com/cardex-cloud/cardex/internal/domain/search/relevance"
	"github.com/cardex-cloud/cardex/internal/metrics"
)

// Config holds the retrieval tuning knobs.
type Config struct {
	Relevance       relevance.Params
	OverFetchFactor int
	DefaultLimit    int
	MaxLimit        int
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		Relevance:       relevance.DefaultParams(),
		OverFetchFactor: 2,
		DefaultLimit:    5,
		MaxLimit:        100,
	}
}

// Service runs the retrieval pipeline: query enhancement, vector-first
// candidate fetch with text fallback, then relevance ranking.
type Service struct {
	repo   Repository
	embed  Embedder
	ranker rank.Ranker
	cfg    Config
	logger *zap.Logger
}

// New creates a search service.
func New(repo Repository, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		embed:  embed,
		ranker: rank.New(cfg.Relevance),
		cfg:    cfg,
		logger: logger,
	}
}

// Search retrieves an owner's contacts ranked by relevance to the query.
//
// The enhanced query drives embedding only; scoring and the text fallback
// always use the original query. Losing the vector signal (embedding or
// KNN failure) degrades to text retrieval; the call fails with
// ErrBackendUnavailable only when no retrieval path is left. Zero ranked
// results is a valid outcome.
func (s *Service) Search(ctx context.Context, ownerID, query string, limit int) ([]rank.Result, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	limit = s.clampLimit(limit)
	fetchK := limit * s.cfg.OverFetchFactor

	candidates, vectorFailed := s.vectorCandidates(ctx, ownerID, query, fetchK)

	path := "vector"
	if len(candidates) == 0 {
		path = "text_fallback"
		recs, err := s.repo.TextSearch(ctx, ownerID, query, fetchK)
		if err != nil {
			if vectorFailed {
				return nil, fmt.Errorf("all retrieval paths failed: %w", domain.ErrBackendUnavailable)
			}
			return nil, fmt.Errorf("text search: %w", err)
		}
		candidates = make([]rank.Candidate, 0, len(recs))
		for _, rec := range recs {
			candidates = append(candidates, rank.Candidate{
				Record: rec,
				Base:   s.cfg.Relevance.TextSearchBase,
			})
		}
	}
	metrics.SearchRequestsTotal.WithLabelValues(path).Inc()

	return s.ranker.Rank(candidates, query, limit), nil
}

// vectorCandidates tries the embedding + KNN path. It reports failure instead
// of returning an error: a lost vector signal is a degradation, not a fault.
func (s *Service) vectorCandidates(ctx context.Context, ownerID, query string, k int) ([]rank.Candidate, bool) {
	enhanced := enhance.Query(query)

	emb, err := s.embed.Embed(ctx, enhanced)
	if err != nil {
		s.logger.Warn("Query embedding failed, falling back to text search",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil, true
	}

	candidates, err := s.repo.VectorSearch(ctx, ownerID, emb.Embedding, k)
	if err != nil {
		s.logger.Warn("Vector search failed, falling back to text search",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil, true
	}

	return candidates, false
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
