// Package contact persists contact records as redis hashes with a vector
// index for KNN retrieval.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cardex-cloud/cardex/internal/db"
	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/domain/search/rank"
)

// textScanPageSize is how many records a text-fallback pass pulls per round-trip.
const textScanPageSize = 200

// store is the consumer interface for contact persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the contact and search usecase repositories.
type Repo struct {
	store store
}

// New creates a contact repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save stores a contact record, overwriting any previous version.
func (r *Repo) Save(ctx context.Context, rec *domcontact.Record) error {
	key := contactKey(rec.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns an owner's contact by ID. A contact belonging to another owner
// is indistinguishable from a missing one.
func (r *Repo) Get(ctx context.Context, ownerID, id string) (domcontact.Record, error) {
	key := contactKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domcontact.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 || m[fieldOwnerID] != ownerID {
		return domcontact.Record{}, domain.ErrContactNotFound
	}
	return parseHashFields(id, m), nil
}

// Delete removes an owner's contact.
func (r *Repo) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := r.Get(ctx, ownerID, id); err != nil {
		return err
	}
	key := contactKey(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// List returns an owner's contacts with offset pagination, plus the owner's total.
func (r *Repo) List(ctx context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error) {
	result, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName(),
		OwnerTag:     ownerID,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: hydrateFields,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	recs := make([]domcontact.Record, 0, len(result.Entries))
	for _, e := range result.Entries {
		recs = append(recs, parseHashFields(extractContactID(e.Key), e.Fields))
	}
	return recs, result.Total, nil
}

// Count returns how many contacts an owner has.
func (r *Repo) Count(ctx context.Context, ownerID string) (int, error) {
	result, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: indexName(),
		OwnerTag:  ownerID,
		Offset:    0,
		Limit:     0,
	})
	if err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return result.Total, nil
}

// Total returns the contact count across all owners.
func (r *Repo) Total(ctx context.Context) (int, error) {
	total, err := r.store.SearchCount(ctx, indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("total contacts: %w", err)
	}
	return total, nil
}

// VectorSearch runs owner-scoped KNN and returns candidates carrying the
// backend cosine similarity as base score.
func (r *Repo) VectorSearch(ctx context.Context, ownerID string, vector []float32, k int) ([]rank.Candidate, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(),
		OwnerTag:     ownerID,
		Vector:       vector,
		K:            k,
		ReturnFields: append([]string{fieldVectorScore}, hydrateFields...),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]rank.Candidate, 0, len(result.Entries))
	for _, e := range result.Entries {
		candidates = append(candidates, rank.Candidate{
			Record: parseHashFields(extractContactID(e.Key), e.Fields),
			Base:   e.Score,
		})
	}
	return candidates, nil
}

// TextSearch pages through an owner's contacts and keeps those whose
// searchable text contains the query as a substring (case-insensitive).
// An empty query matches everything.
func (r *Repo) TextSearch(ctx context.Context, ownerID, query string, limit int) ([]domcontact.Record, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var matched []domcontact.Record
	offset := 0
	for {
		result, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    indexName(),
			OwnerTag:     ownerID,
			Offset:       offset,
			Limit:        textScanPageSize,
			ReturnFields: hydrateFields,
		})
		if err != nil {
			return nil, fmt.Errorf("text search: %w", err)
		}
		if len(result.Entries) == 0 {
			break
		}

		for _, e := range result.Entries {
			rec := parseHashFields(extractContactID(e.Key), e.Fields)
			if needle != "" && !strings.Contains(strings.ToLower(rec.SearchableText()), needle) {
				continue
			}
			matched = append(matched, rec)
			if limit > 0 && len(matched) >= limit {
				return matched, nil
			}
		}

		offset += len(result.Entries)
		if offset >= result.Total {
			break
		}
	}
	return matched, nil
}

// EnsureIndex creates the contact vector index if it does not exist yet.
func EnsureIndex(ctx context.Context, im db.IndexManager, cfg domain.VectorConfig, hnswM, hnswEFConstruct int) error {
	def := &db.IndexDefinition{
		Name:     indexName(),
		Prefixes: []string{keyPrefix()},
		Fields: []db.IndexField{
			{Name: fieldOwnerID, Type: db.IndexFieldTag},
			{Name: fieldContent, Type: db.IndexFieldText},
			{Name: fieldCreatedAt, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         cfg.Dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           hnswM,
				VectorEFConstruct: hnswEFConstruct,
			},
		},
	}

	err := im.CreateIndex(ctx, def)
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create contact index: %w", err)
	}
	return nil
}
