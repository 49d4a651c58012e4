package contact

import (
	"context"

	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
)

// mockRepo implements Repository with pluggable behavior.
type mockRepo struct {
	saveFn   func(ctx context.Context, rec *domcontact.Record) error
	getFn    func(ctx context.Context, ownerID, id string) (domcontact.Record, error)
	deleteFn func(ctx context.Context, ownerID, id string) error
	listFn   func(ctx context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error)

	saved []domcontact.Record
}

func (m *mockRepo) Save(ctx context.Context, rec *domcontact.Record) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, rec)
	}
	m.saved = append(m.saved, *rec)
	return nil
}

func (m *mockRepo) Get(ctx context.Context, ownerID, id string) (domcontact.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID, id)
	}
	return domcontact.Record{}, domain.ErrContactNotFound
}

func (m *mockRepo) Delete(ctx context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, offset, limit)
	}
	return nil, 0, nil
}

// mockExtractor implements Extractor.
type mockExtractor struct {
	result domain.ExtractionResult
	err    error
	calls  int
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (domain.ExtractionResult, error) {
	m.calls++
	if m.err != nil {
		return domain.ExtractionResult{}, m.err
	}
	return m.result, nil
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

func newTestService(repo *mockRepo, extractor *mockExtractor, embed *mockEmbedder) *Service {
	return New(repo, extractor, embed, DefaultConfig(), zap.NewNop())
}
