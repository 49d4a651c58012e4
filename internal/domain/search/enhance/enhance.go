// Package enhance rewrites free-text queries with business-domain synonym
// expansions to broaden vector-search recall.
package enhance

import "strings"

// expansion binds a trigger substring to related vocabulary. A slice keeps
// the expansion order deterministic, unlike map iteration.
type expansion struct {
	trigger string
	terms   string
}

// domainExpansions is a process-wide read-only table, safe for unsynchronized
// concurrent reads.
var domainExpansions = []expansion{
	{"real estate", "real estate property realty housing homes commercial residential investment broker agent developer landlord tenant mortgage"},
	{"realestate", "real estate property realty housing homes commercial residential investment broker agent developer landlord tenant mortgage"},
	{"property", "real estate property realty housing homes commercial residential investment broker agent developer"},
	{"hospital", "hospital medical healthcare clinic doctor physician nurse specialist pediatric children surgery emergency care treatment"},
	{"medical", "medical healthcare hospital clinic doctor physician nurse specialist treatment patient care health"},
	{"healthcare", "healthcare medical hospital clinic doctor physician nurse specialist treatment patient care health"},
	{"doctor", "doctor physician medical healthcare hospital clinic specialist treatment patient care"},
	{"engineering", "engineering technical construction infrastructure design project civil mechanical electrical software"},
	{"engineer", "engineer engineering technical construction infrastructure design project civil mechanical electrical"},
	{"manufacturing", "manufacturing industrial production fabrication factory assembly materials supply chain"},
	{"glass", "glass glazing window mirror manufacturing industrial construction materials"},
	{"technology", "technology software IT digital computer programming development tech innovation"},
	{"finance", "finance banking investment insurance accounting financial services money credit"},
	{"education", "education school university college teaching learning academic training"},
	{"legal", "legal law attorney lawyer court litigation legal services judicial"},
	{"consulting", "consulting advisory services business strategy management expert"},
	{"retail", "retail store shop commerce sales customer service products"},
	{"restaurant", "restaurant food dining hospitality catering culinary chef"},
	{"hotel", "hotel hospitality accommodation tourism travel lodging"},
}

// genericSuffix is always appended so even an unmatched query carries
// business context for the embedding.
const genericSuffix = "business company service provider professional industry commercial"

// Query expands a free-text query with domain vocabulary. The original query
// stays first and verbatim, so exact-term matching against the raw text is
// preserved; every matching trigger contributes its expansion in table order.
// Pure and deterministic; an empty query still yields the generic suffix.
func Query(query string) string {
	lowered := strings.ToLower(query)

	parts := []string{query}
	for _, e := range domainExpansions {
		if strings.Contains(lowered, e.trigger) {
			parts = append(parts, e.terms)
		}
	}
	parts = append(parts, genericSuffix)

	return strings.Join(parts, " ")
}
