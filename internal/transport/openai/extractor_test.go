package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
)

func chatResponse(content string, totalTokens int) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     totalTokens - 50,
			"completion_tokens": 50,
			"total_tokens":      totalTokens,
		},
	}
}

func newTestExtractor(t *testing.T, serverURL string) *Extractor {
	t.Helper()
	return NewExtractor(&ExtractorConfig{
		APIKey:    "test-key",
		BaseURL:   serverURL,
		Model:     "gpt-4o",
		MaxTokens: 1000,
		Detail:    "auto",
		Logger:    zap.NewNop(),
	})
}

func TestExtractor_Extract_DirectJSON(t *testing.T) {
	card := `{"name":"Jane Doe","company":"Acme Glass","position":"CEO","industry_keywords":["glass","manufacturing"]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(card, 300))
	}))
	defer server.Close()

	ext := newTestExtractor(t, server.URL)
	result, err := ext.Extract(context.Background(), "aW1hZ2U=")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Fields["name"] != "Jane Doe" {
		t.Errorf("unexpected name: %v", result.Fields["name"])
	}
	if result.TotalTokens != 300 {
		t.Errorf("expected 300 tokens, got %d", result.TotalTokens)
	}
	kws, ok := result.Fields["industry_keywords"].([]string)
	if !ok || len(kws) != 2 {
		t.Errorf("expected normalized keyword list, got %v", result.Fields["industry_keywords"])
	}
}

func TestExtractor_Extract_MarkdownJSON(t *testing.T) {
	content := "Here is the extracted information:\n```json\n{\"name\":\"Bob\",\"company\":\"City Hospital\"}\n```\nLet me know if you need more."

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(content, 200))
	}))
	defer server.Close()

	ext := newTestExtractor(t, server.URL)
	result, err := ext.Extract(context.Background(), "aW1hZ2U=")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Fields["name"] != "Bob" {
		t.Errorf("expected markdown-wrapped JSON to parse, got %v", result.Fields)
	}
	// missing category inferred from company text
	if result.Fields["business_category"] != "Healthcare" {
		t.Errorf("expected inferred category Healthcare, got %v", result.Fields["business_category"])
	}
}

func TestExtractor_Extract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "backend error", "type": "server_error"},
		})
	}))
	defer server.Close()

	ext := newTestExtractor(t, server.URL)
	_, err := ext.Extract(context.Background(), "aW1hZ2U=")
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestParseExtractionContent_PlainJSONObjectInText(t *testing.T) {
	fields := parseExtractionContent(`The card contains: {"name": "Eve", "phone": "555-1234"} as requested.`)
	if fields["name"] != "Eve" {
		t.Errorf("expected embedded JSON object to parse, got %v", fields)
	}
}

func TestParseExtractionContent_TextFallback(t *testing.T) {
	content := "Name unclear\nReach me at jane@acme.example or call\n+1 (555) 123-4567\nwww.acme.example"

	fields := parseExtractionContent(content)

	if fields["email"] != "jane@acme.example" {
		t.Errorf("unexpected email: %v", fields["email"])
	}
	if fields["phone"] != "+1 (555) 123-4567" {
		t.Errorf("unexpected phone: %v", fields["phone"])
	}
	if fields["website"] != "www.acme.example" {
		t.Errorf("unexpected website: %v", fields["website"])
	}
}

func TestParseExtractionContent_NothingSalvaged(t *testing.T) {
	fields := parseExtractionContent("I cannot read this image clearly.")
	if fields["additional_info"] == nil {
		t.Error("expected raw content preserved as additional_info")
	}
}

func TestToList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"string slice", []string{"a", "b"}, 2},
		{"any slice", []any{"a", "b", "c"}, 3},
		{"comma string", "glass, manufacturing , industrial", 3},
		{"null string", "null", 0},
		{"empty string", "", 0},
		{"nil", nil, 0},
		{"number", 42, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := toList(tc.in)
			if len(got) != tc.want {
				t.Errorf("toList(%v) = %v, want %d items", tc.in, got, tc.want)
			}
		})
	}
}

func TestInferBusinessCategory(t *testing.T) {
	tests := []struct {
		company string
		want    string
	}{
		{"City Medical Clinic", "Healthcare"},
		{"Sunrise Realty Homes", "Real Estate"},
		{"Precision Glass Works", "Manufacturing"},
		{"Delta Engineering Ltd", "Engineering"},
		{"NextGen Software", "Technology"},
		{"Smith & Sons", "Business Services"},
	}
	for _, tc := range tests {
		t.Run(tc.company, func(t *testing.T) {
			got := inferBusinessCategory(map[string]any{"company": tc.company})
			if got != tc.want {
				t.Errorf("inferBusinessCategory(%q) = %q, want %q", tc.company, got, tc.want)
			}
		})
	}
}
