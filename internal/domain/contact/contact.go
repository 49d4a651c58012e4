package contact

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Well-known field names produced by the extractor. Fields is an open map:
// unknown keys are preserved and indexed after the known ones.
const (
	FieldName                = "name"
	FieldCompany             = "company"
	FieldPosition            = "position"
	FieldEmail               = "email"
	FieldPhone               = "phone"
	FieldAddress             = "address"
	FieldWebsite             = "website"
	FieldSocialMedia         = "social_media"
	FieldBusinessCategory    = "business_category"
	FieldBusinessSubcategory = "business_subcategory"
	FieldIndustryKeywords    = "industry_keywords"
	FieldServicesOffered     = "services_offered"
	FieldTargetMarket        = "target_market"
	FieldBusinessType        = "business_type"
	FieldCompanySize         = "company_size"
	FieldGeographicScope     = "geographic_scope"
	FieldSpecializations     = "specializations"
	FieldAdditionalInfo      = "additional_info"
)

// canonicalOrder fixes the field order in searchable text so that two records
// with identical fields always produce identical text.
var canonicalOrder = []string{
	FieldName, FieldCompany, FieldPosition, FieldEmail, FieldPhone,
	FieldAddress, FieldWebsite, FieldSocialMedia,
	FieldBusinessCategory, FieldBusinessSubcategory, FieldIndustryKeywords,
	FieldServicesOffered, FieldTargetMarket, FieldBusinessType,
	FieldCompanySize, FieldGeographicScope, FieldSpecializations,
	FieldAdditionalInfo,
}

// Record is a stored business-card contact (immutable value object).
// The search core is a read-only consumer: records are created by the
// ingestion path and never mutated in place.
type Record struct {
	id             string
	ownerID        string
	fields         map[string]any
	searchableText string
	embedding      []float32
	createdAt      time.Time
}

// New validates and creates a Record. The searchable text is derived from
// fields at construction and never set directly.
func New(id, ownerID string, fields map[string]any, createdAt time.Time) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("contact ID is required")
	}
	if ownerID == "" {
		return Record{}, fmt.Errorf("owner ID is required")
	}
	return Record{
		id:             id,
		ownerID:        ownerID,
		fields:         cloneFields(fields),
		searchableText: BuildSearchableText(fields),
		createdAt:      createdAt,
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id, ownerID string, fields map[string]any, searchableText string,
	embedding []float32, createdAt time.Time,
) Record {
	return Record{
		id: id, ownerID: ownerID, fields: fields,
		searchableText: searchableText, embedding: embedding, createdAt: createdAt,
	}
}

// ID returns the contact identifier.
func (r *Record) ID() string { return r.id }

// OwnerID returns the identifier of the owning user.
func (r *Record) OwnerID() string { return r.ownerID }

// Fields returns the extracted field map.
func (r *Record) Fields() map[string]any { return r.fields }

// SearchableText returns the flattened text used for embedding and keyword matching.
func (r *Record) SearchableText() string { return r.searchableText }

// Embedding returns the embedding vector, nil if generation failed or was skipped.
func (r *Record) Embedding() []float32 { return r.embedding }

// CreatedAt returns the creation timestamp.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// WithEmbedding returns a copy with the given vector set.
func (r *Record) WithEmbedding(v []float32) Record {
	return Record{
		id: r.id, ownerID: r.ownerID, fields: r.fields,
		searchableText: r.searchableText, embedding: v, createdAt: r.createdAt,
	}
}

// Field returns a field flattened to a string; empty string when absent.
// List values are space-joined. Scoring treats missing fields as empty, so
// partially populated records never abort a ranking pass.
func (r *Record) Field(key string) string {
	if r.fields == nil {
		return ""
	}
	return flattenValue(r.fields[key])
}

// BuildSearchableText flattens non-empty fields into pipe-joined "key: value"
// segments. Known fields come first in canonical order, then unknown keys
// sorted, so the result is deterministic for identical field maps.
func BuildSearchableText(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}

	known := make(map[string]bool, len(canonicalOrder))
	for _, k := range canonicalOrder {
		known[k] = true
	}

	keys := make([]string, 0, len(fields))
	keys = append(keys, canonicalOrder...)

	var extra []string
	for k := range fields {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	parts := make([]string, 0, len(fields))
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		s := flattenValue(v)
		if s == "" {
			continue
		}
		parts = append(parts, k+": "+s)
	}

	return strings.Join(parts, " | ")
}

// flattenValue renders a field value as a plain string. "null" placeholders
// from the extractor count as absent.
func flattenValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if s == "null" {
			return ""
		}
		return s
	case []string:
		return strings.TrimSpace(strings.Join(t, " "))
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := flattenValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func cloneFields(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
