// Package relevance computes multi-signal relevance scores for contact
// candidates: vector similarity, business-category heuristics, and keyword
// overlap, combined into a single ranked score.
package relevance

import (
	"strings"

	"github.com/cardex-cloud/cardex/internal/domain/contact"
)

// Params holds the scoring weights and thresholds. The defaults are empirical
// tuning knobs, exposed through configuration rather than hard-coded at call
// sites.
type Params struct {
	BaseWeight     float64
	BusinessWeight float64
	KeywordWeight  float64

	// MinCombinedScore drops candidates below it during ranking. Lenient on
	// purpose: category inference from a single card is noisy.
	MinCombinedScore float64

	// BusinessMatchThreshold marks a result as a business match.
	BusinessMatchThreshold float64

	// CategoryBonus is added once when the query hits a category that the
	// record's category fields confirm.
	CategoryBonus float64

	// ServiceWordBonus is added per long query word found in the record's
	// services or industry keywords.
	ServiceWordBonus float64

	// TextSearchBase is the base score for candidates from the substring
	// fallback path, which has no vector signal. The backend already
	// filtered by match, so it is trusted moderately.
	TextSearchBase float64

	// MinWordLength: query words must be strictly longer to count for
	// business and keyword scoring.
	MinWordLength int
}

// DefaultParams returns the observed production constants.
func DefaultParams() Params {
	return Params{
		BaseWeight:             0.4,
		BusinessWeight:         0.4,
		KeywordWeight:          0.2,
		MinCombinedScore:       0.15,
		BusinessMatchThreshold: 0.3,
		CategoryBonus:          0.8,
		ServiceWordBonus:       0.3,
		TextSearchBase:         0.8,
		MinWordLength:          3,
	}
}

// Scores carries the three independent signals and their combination,
// all in [0,1].
type Scores struct {
	Base          float64
	Business      float64
	Keyword       float64
	Combined      float64
	BusinessMatch bool
}

// categoryTrigger binds a category label to the query keywords that imply it.
// Slice order matters: only the first matching category scores.
type categoryTrigger struct {
	category string
	keywords []string
}

var categoryTriggers = []categoryTrigger{
	{"real estate", []string{"real", "estate", "property", "realty", "housing"}},
	{"healthcare", []string{"hospital", "medical", "health", "doctor", "clinic"}},
	{"manufacturing", []string{"manufacturing", "industrial", "factory", "glass"}},
	{"engineering", []string{"engineering", "engineer", "technical", "construction"}},
	{"technology", []string{"tech", "software", "IT", "digital", "computer"}},
}

// Scorer computes relevance signals. Stateless and safe for concurrent use.
type Scorer struct {
	p Params
}

// NewScorer creates a scorer with the given params.
func NewScorer(p Params) Scorer {
	return Scorer{p: p}
}

// Score combines the caller-supplied base similarity with business and
// keyword signals derived from the record and the ORIGINAL user query.
// Backend-agnostic: it reads only the record's own fields, never a backend
// response shape. Missing fields score as empty strings.
func (s Scorer) Score(rec *contact.Record, baseSimilarity float64, originalQuery string) Scores {
	base := clamp01(baseSimilarity)
	business := s.businessRelevance(rec, originalQuery)
	keyword := s.keywordRelevance(rec.SearchableText(), originalQuery)

	combined := base*s.p.BaseWeight + business*s.p.BusinessWeight + keyword*s.p.KeywordWeight

	return Scores{
		Base:          base,
		Business:      business,
		Keyword:       keyword,
		Combined:      combined,
		BusinessMatch: business > s.p.BusinessMatchThreshold,
	}
}

// businessRelevance scores category agreement between query and record.
// One category bonus at most (first hit wins), plus a per-word bonus for
// long query words found in services or industry keywords, capped at 1.0.
func (s Scorer) businessRelevance(rec *contact.Record, query string) float64 {
	queryLower := strings.ToLower(query)
	score := 0.0

	category := strings.ToLower(rec.Field(contact.FieldBusinessCategory))
	subcategory := strings.ToLower(rec.Field(contact.FieldBusinessSubcategory))

	for _, ct := range categoryTriggers {
		if !anyContained(queryLower, ct.keywords) {
			continue
		}
		if strings.Contains(category, ct.category) || strings.Contains(subcategory, ct.category) {
			score += s.p.CategoryBonus
			break
		}
	}

	services := strings.ToLower(rec.Field(contact.FieldServicesOffered))
	keywords := strings.ToLower(rec.Field(contact.FieldIndustryKeywords))

	for _, word := range strings.Fields(queryLower) {
		if len(word) <= s.p.MinWordLength {
			continue
		}
		if strings.Contains(services, word) || strings.Contains(keywords, word) {
			score += s.p.ServiceWordBonus
		}
	}

	return min(score, 1.0)
}

// keywordRelevance is the fraction of long query words literally present in
// the record's searchable text. No long words means 0.0, not undefined.
func (s Scorer) keywordRelevance(searchableText, query string) float64 {
	docLower := strings.ToLower(searchableText)

	var total, matched int
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= s.p.MinWordLength {
			continue
		}
		total++
		if strings.Contains(docLower, word) {
			matched++
		}
	}

	if total == 0 {
		return 0.0
	}
	return float64(matched) / float64(total)
}

func anyContained(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
