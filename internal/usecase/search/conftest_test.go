package search

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	"github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/domain/search/rank"
)

// mockRepo implements Repository with pluggable behavior.
type mockRepo struct {
	vectorSearchFn func(ctx context.Context, ownerID string, vector []float32, k int) ([]rank.Candidate, error)
	textSearchFn   func(ctx context.Context, ownerID, query string, limit int) ([]contact.Record, error)

	vectorCalls int
	textCalls   int
	lastTextQ   string
	lastK       int
}

func (m *mockRepo) VectorSearch(ctx context.Context, ownerID string, vector []float32, k int) ([]rank.Candidate, error) {
	m.vectorCalls++
	m.lastK = k
	if m.vectorSearchFn != nil {
		return m.vectorSearchFn(ctx, ownerID, vector, k)
	}
	return nil, nil
}

func (m *mockRepo) TextSearch(ctx context.Context, ownerID, query string, limit int) ([]contact.Record, error) {
	m.textCalls++
	m.lastTextQ = query
	if m.textSearchFn != nil {
		return m.textSearchFn(ctx, ownerID, query, limit)
	}
	return nil, nil
}

// mockEmbedder implements Embedder.
type mockEmbedder struct {
	result   domain.EmbeddingResult
	err      error
	calls    int
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

func newTestService(repo *mockRepo, embed *mockEmbedder) *Service {
	return New(repo, embed, DefaultConfig(), zap.NewNop())
}

// testRecord builds a record with business fields that score against
// healthcare and real-estate queries.
func testRecord(t *testing.T, id string, fields map[string]any) contact.Record {
	t.Helper()
	rec, err := contact.New(id, "owner-1", fields, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("contact.New failed: %v", err)
	}
	return rec
}
