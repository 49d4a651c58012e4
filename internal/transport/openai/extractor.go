package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	"github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/metrics"
)

const extractionPrompt = `Extract all contact information from this visiting card image and provide comprehensive business intelligence.
Return the information in JSON format with these fields:

{
    "name": "Full name of the person",
    "company": "Company/Organization name",
    "position": "Job title/position",
    "email": "Email address",
    "phone": "Phone number(s)",
    "address": "Physical address",
    "website": "Website URL",
    "social_media": "Social media handles",
    "business_category": "Primary business category (Healthcare, Real Estate, Manufacturing, Engineering, Technology, Finance, Education, Hospitality, Retail, Construction, Legal, Consulting, etc.)",
    "business_subcategory": "Specific subcategory (e.g., 'Pediatric Hospital', 'Residential Real Estate', 'Glass Manufacturing', 'Software Development', etc.)",
    "industry_keywords": ["List of 5-10 relevant industry keywords that describe this business"],
    "services_offered": "Brief description of main services or products offered",
    "target_market": "Who are their likely customers/clients",
    "business_type": "Type of business (B2B, B2C, B2G, etc.)",
    "company_size": "Estimated company size (Startup, Small, Medium, Large, Enterprise)",
    "geographic_scope": "Geographic reach (Local, Regional, National, International)",
    "specializations": ["List of specific specializations or expertise areas"],
    "additional_info": "Any other relevant information"
}

IMPORTANT:
- Be very specific with business_category - use standard industry classifications
- Industry_keywords should be comprehensive and include synonyms, related terms, and industry jargon
- Analyze the company name, position, and any visible text to infer business intelligence
- If any field is not found or cannot be inferred, use null
- Be precise and insightful in your business analysis`

// Extractor reads business cards via an OpenAI vision model.
type Extractor struct {
	client    *openai.Client
	model     string
	maxTokens int
	detail    openai.ImageURLDetail
	logger    *zap.Logger
}

// ExtractorConfig holds the vision extraction settings.
type ExtractorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Detail    string
	Logger    *zap.Logger
}

// NewExtractor creates a vision-based card extractor.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		detail:    openai.ImageURLDetail(cfg.Detail),
		logger:    cfg.Logger,
	}
}

// Extract implements domain.CardExtractor. The image is a base64-encoded JPEG.
func (e *Extractor) Extract(ctx context.Context, imageBase64 string) (domain.ExtractionResult, error) {
	req := openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: extractionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + imageBase64,
							Detail: e.detail,
						},
					},
				},
			},
		},
	}

	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		return domain.ExtractionResult{}, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, parseAPIError("extraction", err))
	}

	if len(resp.Choices) == 0 {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		return domain.ExtractionResult{}, fmt.Errorf("empty extraction response: %w", domain.ErrExtractionFailed)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(e.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ExtractionTokensTotal.WithLabelValues(e.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ExtractionTokensTotal.WithLabelValues(e.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	content := resp.Choices[0].Message.Content
	fields := parseExtractionContent(content)
	normalizeFields(fields)

	e.logger.Debug("Card extracted",
		zap.String("category", flatten(fields[contact.FieldBusinessCategory])),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return domain.ExtractionResult{
		Fields:      fields,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

var (
	markdownJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	anyJSONRe      = regexp.MustCompile(`(?s)\{.*\}`)
	emailRe        = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// parseExtractionContent parses the model output: direct JSON first, then a
// markdown code block, then any JSON object, then plain-text heuristics.
func parseExtractionContent(content string) map[string]any {
	var fields map[string]any
	if json.Unmarshal([]byte(content), &fields) == nil {
		return fields
	}

	if m := markdownJSONRe.FindStringSubmatch(content); m != nil {
		if json.Unmarshal([]byte(m[1]), &fields) == nil {
			return fields
		}
	}

	if m := anyJSONRe.FindString(content); m != "" {
		if json.Unmarshal([]byte(m), &fields) == nil {
			return fields
		}
	}

	return parseTextResponse(content)
}

// parseTextResponse salvages obvious contact fields from a non-JSON reply.
func parseTextResponse(content string) map[string]any {
	fields := make(map[string]any)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if fields[contact.FieldEmail] == nil {
			if m := emailRe.FindString(line); m != "" {
				fields[contact.FieldEmail] = m
			}
		}

		if fields[contact.FieldPhone] == nil && digitCount(line) >= 7 {
			fields[contact.FieldPhone] = line
		}

		lower := strings.ToLower(line)
		if fields[contact.FieldWebsite] == nil && (strings.Contains(lower, "www.") || strings.Contains(lower, "http")) {
			fields[contact.FieldWebsite] = line
		}
	}

	if len(fields) == 0 {
		trimmed := content
		if len(trimmed) > 500 {
			trimmed = trimmed[:500]
		}
		fields[contact.FieldAdditionalInfo] = trimmed
	}

	return fields
}

// normalizeFields coerces list fields to lists and fills a missing business
// category from the company and position text.
func normalizeFields(fields map[string]any) {
	for _, key := range []string{contact.FieldIndustryKeywords, contact.FieldSpecializations} {
		fields[key] = toList(fields[key])
	}

	if flatten(fields[contact.FieldBusinessCategory]) == "" {
		fields[contact.FieldBusinessCategory] = inferBusinessCategory(fields)
	}
}

// toList coerces a value to []string: lists pass through, comma-separated
// strings are split, everything else becomes empty.
func toList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := strings.TrimSpace(fmt.Sprintf("%v", e)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" || t == "null" {
			return []string{}
		}
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// inferBusinessCategory guesses a category from company and position text
// when the model left it empty.
func inferBusinessCategory(fields map[string]any) string {
	haystack := strings.ToLower(flatten(fields[contact.FieldCompany]) + " " + flatten(fields[contact.FieldPosition]))

	rules := []struct {
		category string
		words    []string
	}{
		{"Healthcare", []string{"hospital", "clinic", "medical", "doctor", "health"}},
		{"Real Estate", []string{"real estate", "property", "realty", "homes"}},
		{"Manufacturing", []string{"glass", "manufacturing", "fabricat"}},
		{"Engineering", []string{"engineer", "technical", "construction"}},
		{"Technology", []string{"software", "tech", "digital", "IT"}},
	}
	for _, rule := range rules {
		for _, w := range rule.words {
			if strings.Contains(haystack, w) {
				return rule.category
			}
		}
	}
	return "Business Services"
}

func flatten(v any) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if s == "null" {
		return ""
	}
	return s
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
