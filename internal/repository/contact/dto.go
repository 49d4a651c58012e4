package contact

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
)

// Hash field names. __fields carries the open extracted-field map as JSON;
// __content duplicates the flattened text so FT can index it.
const (
	fieldContent     = "__content"
	fieldVector      = "__vector"
	fieldFields      = "__fields"
	fieldOwnerID     = "owner_id"
	fieldCreatedAt   = "created_at"
	fieldVectorScore = "__vector_score"
)

// hydrateFields is what searches and listings pull back; the raw vector stays
// in the store.
var hydrateFields = []string{fieldContent, fieldFields, fieldOwnerID, fieldCreatedAt}

func keyPrefix() string {
	return domain.KeyPrefix + "contacts:"
}

func contactKey(id string) string {
	return keyPrefix() + id
}

func indexName() string {
	return domain.KeyPrefix + "contacts:idx"
}

func extractContactID(key string) string {
	return strings.TrimPrefix(key, keyPrefix())
}

// buildHashFields converts a domain Record into a flat map[string]string for HSET.
func buildHashFields(rec *domcontact.Record) map[string]string {
	m := map[string]string{
		fieldContent:   rec.SearchableText(),
		fieldOwnerID:   rec.OwnerID(),
		fieldCreatedAt: strconv.FormatInt(rec.CreatedAt().Unix(), 10),
	}
	if data, err := json.Marshal(rec.Fields()); err == nil {
		m[fieldFields] = string(data)
	}
	if v := rec.Embedding(); len(v) > 0 {
		m[fieldVector] = vectorToBytes(v)
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Record.
func parseHashFields(id string, m map[string]string) domcontact.Record {
	var fields map[string]any
	if raw := m[fieldFields]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &fields)
	}

	var vector []float32
	if raw, ok := m[fieldVector]; ok {
		vector = bytesToVector(raw)
	}

	var createdAt time.Time
	if raw := m[fieldCreatedAt]; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			createdAt = time.Unix(unix, 0).UTC()
		}
	}

	return domcontact.Reconstruct(id, m[fieldOwnerID], fields, m[fieldContent], vector, createdAt)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
