package contact

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/domain/search/rank"
)

// MemoryRepo is an in-memory contact repository for local runs and tests.
// It implements the same operations as Repo, with brute-force cosine KNN.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]domcontact.Record // id -> record
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]domcontact.Record)}
}

// Save stores a contact record, overwriting any previous version.
func (r *MemoryRepo) Save(_ context.Context, rec *domcontact.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID()] = *rec
	return nil
}

// Get returns an owner's contact by ID.
func (r *MemoryRepo) Get(_ context.Context, ownerID, id string) (domcontact.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok || rec.OwnerID() != ownerID {
		return domcontact.Record{}, domain.ErrContactNotFound
	}
	return rec, nil
}

// Delete removes an owner's contact.
func (r *MemoryRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.OwnerID() != ownerID {
		return domain.ErrContactNotFound
	}
	delete(r.records, id)
	return nil
}

// List returns an owner's contacts with offset pagination, plus the owner's total.
func (r *MemoryRepo) List(_ context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error) {
	all := r.ownerRecords(ownerID)
	total := len(all)

	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// Count returns how many contacts an owner has.
func (r *MemoryRepo) Count(_ context.Context, ownerID string) (int, error) {
	return len(r.ownerRecords(ownerID)), nil
}

// VectorSearch runs brute-force cosine KNN over the owner's records.
// Records without an embedding are skipped.
func (r *MemoryRepo) VectorSearch(_ context.Context, ownerID string, vector []float32, k int) ([]rank.Candidate, error) {
	all := r.ownerRecords(ownerID)

	candidates := make([]rank.Candidate, 0, len(all))
	for _, rec := range all {
		emb := rec.Embedding()
		if len(emb) == 0 {
			continue
		}
		candidates = append(candidates, rank.Candidate{
			Record: rec,
			Base:   math.Max(0, cosineSimilarity(vector, emb)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Base > candidates[j].Base
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// TextSearch keeps the owner's records whose searchable text contains the
// query as a substring (case-insensitive). An empty query matches everything.
func (r *MemoryRepo) TextSearch(_ context.Context, ownerID, query string, limit int) ([]domcontact.Record, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var matched []domcontact.Record
	for _, rec := range r.ownerRecords(ownerID) {
		if needle != "" && !strings.Contains(strings.ToLower(rec.SearchableText()), needle) {
			continue
		}
		matched = append(matched, rec)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// ownerRecords returns the owner's records in deterministic order:
// oldest first, ID as tiebreaker.
func (r *MemoryRepo) ownerRecords(ownerID string) []domcontact.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domcontact.Record
	for _, rec := range r.records {
		if rec.OwnerID() == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().Before(out[j].CreatedAt())
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
