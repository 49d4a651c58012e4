// Package rank filters, orders, and truncates scored contact candidates.
package rank

import (
	"sort"

	"github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/domain/search/relevance"
)

// Candidate is a contact retrieved from storage before relevance scoring,
// paired with whatever raw similarity the backend supplied.
type Candidate struct {
	Record contact.Record
	Base   float64
}

// Result is a ranked search hit.
type Result struct {
	Record        contact.Record
	Score         relevance.Scores
	BusinessMatch bool
}

// Ranker applies a relevance scorer to candidate sets.
type Ranker struct {
	scorer relevance.Scorer
	params relevance.Params
}

// New creates a ranker.
func New(params relevance.Params) Ranker {
	return Ranker{scorer: relevance.NewScorer(params), params: params}
}

// Rank scores every candidate against the original (non-enhanced) query,
// drops those below the relevance threshold, sorts by combined score
// descending, and truncates to limit. The sort is stable: ties keep the
// candidate order the backend returned. An empty result is a valid outcome,
// not an error.
func (r Ranker) Rank(candidates []Candidate, originalQuery string, limit int) []Result {
	results := make([]Result, 0, len(candidates))

	for _, c := range candidates {
		scores := r.scorer.Score(&c.Record, c.Base, originalQuery)
		if scores.Combined < r.params.MinCombinedScore {
			continue
		}
		results = append(results, Result{
			Record:        c.Record,
			Score:         scores,
			BusinessMatch: scores.BusinessMatch,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.Combined > results[j].Score.Combined
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}
