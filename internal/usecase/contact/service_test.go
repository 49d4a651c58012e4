package contact

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
)

// testPNG encodes a white width x height PNG.
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func testStoredRecord(t *testing.T, id, ownerID string, fields map[string]any) domcontact.Record {
	t.Helper()
	rec, err := domcontact.New(id, ownerID, fields, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("contact.New failed: %v", err)
	}
	return rec
}

func TestService_IngestImage(t *testing.T) {
	repo := &mockRepo{}
	extractor := &mockExtractor{result: domain.ExtractionResult{
		Fields:      map[string]any{"name": "Jane Doe", "company": "Acme Glass"},
		TotalTokens: 300,
	}}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	svc := newTestService(repo, extractor, embed)

	rec, err := svc.IngestImage(context.Background(), "owner-1", testPNG(t, 64, 48))
	if err != nil {
		t.Fatalf("IngestImage failed: %v", err)
	}

	if extractor.calls != 1 {
		t.Errorf("expected one extraction call, got %d", extractor.calls)
	}
	if rec.ID() == "" || rec.OwnerID() != "owner-1" {
		t.Errorf("unexpected record identity: id=%q owner=%q", rec.ID(), rec.OwnerID())
	}
	if rec.Field(domcontact.FieldName) != "Jane Doe" {
		t.Errorf("unexpected name: %q", rec.Field(domcontact.FieldName))
	}
	if len(rec.Embedding()) != 2 {
		t.Errorf("expected embedding attached, got %v", rec.Embedding())
	}
	if embed.lastText != rec.SearchableText() {
		t.Errorf("embedded text %q does not match searchable text %q", embed.lastText, rec.SearchableText())
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one saved record, got %d", len(repo.saved))
	}
}

func TestService_IngestImage_EmbeddingFailureTolerated(t *testing.T) {
	repo := &mockRepo{}
	extractor := &mockExtractor{result: domain.ExtractionResult{
		Fields: map[string]any{"name": "Jane Doe"},
	}}
	embed := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newTestService(repo, extractor, embed)

	rec, err := svc.IngestImage(context.Background(), "owner-1", testPNG(t, 64, 48))
	if err != nil {
		t.Fatalf("embedding failure must not block ingestion: %v", err)
	}
	if rec.Embedding() != nil {
		t.Errorf("expected record stored without vector, got %v", rec.Embedding())
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected record saved despite embedding failure")
	}
}

func TestService_IngestImage_ExtractionError(t *testing.T) {
	repo := &mockRepo{}
	extractor := &mockExtractor{err: domain.ErrExtractionFailed}
	svc := newTestService(repo, extractor, &mockEmbedder{})

	_, err := svc.IngestImage(context.Background(), "owner-1", testPNG(t, 64, 48))
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Error("nothing should be saved when extraction fails")
	}
}

func TestService_IngestImage_TokenBudget(t *testing.T) {
	repo := &mockRepo{}
	extractor := &mockExtractor{result: domain.ExtractionResult{Fields: map[string]any{"name": "A"}}}
	cfg := DefaultConfig()
	cfg.TokenBudget = 100 // below the single-tile minimum of 255
	svc := New(repo, extractor, &mockEmbedder{}, cfg, zap.NewNop())

	_, err := svc.IngestImage(context.Background(), "owner-1", testPNG(t, 64, 48))
	if !errors.Is(err, domain.ErrTokenBudgetExceeded) {
		t.Errorf("expected ErrTokenBudgetExceeded, got %v", err)
	}
	if extractor.calls != 0 {
		t.Error("budget rejection must happen before the vision call")
	}
}

func TestService_IngestImage_Validation(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockExtractor{}, &mockEmbedder{})

	if _, err := svc.IngestImage(context.Background(), "", testPNG(t, 8, 8)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.IngestImage(context.Background(), "owner-1", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty image, got %v", err)
	}
	if _, err := svc.IngestImage(context.Background(), "owner-1", []byte("not an image")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for undecodable image, got %v", err)
	}
}

func TestService_IngestFields(t *testing.T) {
	repo := &mockRepo{}
	extractor := &mockExtractor{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}}}
	svc := newTestService(repo, extractor, embed)

	rec, err := svc.IngestFields(context.Background(), "owner-1", map[string]any{"name": "Manual Entry"})
	if err != nil {
		t.Fatalf("IngestFields failed: %v", err)
	}
	if extractor.calls != 0 {
		t.Error("raw field ingestion must not call the extractor")
	}
	if rec.Field(domcontact.FieldName) != "Manual Entry" {
		t.Errorf("unexpected name: %q", rec.Field(domcontact.FieldName))
	}

	if _, err := svc.IngestFields(context.Background(), "owner-1", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty fields, got %v", err)
	}
}

func TestService_List_Clamping(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockRepo{
		listFn: func(_ context.Context, _ string, offset, limit int) ([]domcontact.Record, int, error) {
			gotOffset, gotLimit = offset, limit
			return nil, 0, nil
		},
	}
	svc := newTestService(repo, &mockExtractor{}, &mockEmbedder{})

	if _, _, err := svc.List(context.Background(), "owner-1", -5, 0); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotOffset != 0 || gotLimit != 20 {
		t.Errorf("expected clamped offset=0 limit=20, got offset=%d limit=%d", gotOffset, gotLimit)
	}

	if _, _, err := svc.List(context.Background(), "owner-1", 0, 5000); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotLimit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", gotLimit)
	}
}

func TestService_Stats(t *testing.T) {
	recs := []domcontact.Record{
		testStoredRecord(t, "c1", "owner-1", map[string]any{"name": "A", "business_category": "Healthcare"}),
		testStoredRecord(t, "c2", "owner-1", map[string]any{"name": "B", "business_category": "healthcare"}),
		testStoredRecord(t, "c3", "owner-1", map[string]any{"name": "C"}),
	}
	repo := &mockRepo{
		listFn: func(_ context.Context, _ string, offset, _ int) ([]domcontact.Record, int, error) {
			if offset >= len(recs) {
				return nil, len(recs), nil
			}
			return recs[offset:], len(recs), nil
		},
	}
	svc := newTestService(repo, &mockExtractor{}, &mockEmbedder{})

	stats, err := svc.Stats(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.Categories["healthcare"] != 2 {
		t.Errorf("expected case-folded healthcare count 2, got %d", stats.Categories["healthcare"])
	}
	if stats.Categories[uncategorized] != 1 {
		t.Errorf("expected one uncategorized contact, got %d", stats.Categories[uncategorized])
	}
}

func TestService_Delete_PropagatesNotFound(t *testing.T) {
	repo := &mockRepo{
		deleteFn: func(_ context.Context, _, _ string) error {
			return domain.ErrContactNotFound
		},
	}
	svc := newTestService(repo, &mockExtractor{}, &mockEmbedder{})

	if err := svc.Delete(context.Background(), "owner-1", "missing"); !errors.Is(err, domain.ErrContactNotFound) {
		t.Errorf("expected ErrContactNotFound, got %v", err)
	}
}
