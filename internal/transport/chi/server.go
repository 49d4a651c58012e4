// Package chi exposes the contact API over HTTP.
package chi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
	domcontact "github.com/cardex-cloud/cardex/internal/domain/contact"
	"github.com/cardex-cloud/cardex/internal/domain/search/rank"
	contactuc "github.com/cardex-cloud/cardex/internal/usecase/contact"
)

// ContactService is the contact lifecycle contract the server depends on.
type ContactService interface {
	IngestImage(ctx context.Context, ownerID string, image []byte) (domcontact.Record, error)
	IngestFields(ctx context.Context, ownerID string, fields map[string]any) (domcontact.Record, error)
	Get(ctx context.Context, ownerID, id string) (domcontact.Record, error)
	List(ctx context.Context, ownerID string, offset, limit int) ([]domcontact.Record, int, error)
	Delete(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context, ownerID string) (contactuc.Stats, error)
}

// SearchService is the retrieval contract the server depends on.
type SearchService interface {
	Search(ctx context.Context, ownerID, query string, limit int) ([]rank.Result, error)
}

// Pinger verifies storage availability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server implements the HTTP API.
type Server struct {
	contacts  ContactService
	search    SearchService
	pinger    Pinger
	embedding domain.HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server. pinger and embedding can be nil; their
// health checks are then skipped.
func NewServer(contacts ContactService, search SearchService, pinger Pinger, embedding domain.HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		contacts:  contacts,
		search:    search,
		pinger:    pinger,
		embedding: embedding,
		logger:    logger,
	}
}

// Routes mounts all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/contacts", s.createContact)
		r.Get("/contacts", s.listContacts)
		r.Get("/contacts/search", s.searchContacts)
		r.Get("/contacts/stats", s.getStats)
		r.Get("/contacts/{id}", s.getContact)
		r.Delete("/contacts/{id}", s.deleteContact)
	})
	r.Get("/health", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// createContactRequest accepts either a base64 card image or raw fields.
// The image takes precedence.
type createContactRequest struct {
	Image  string         `json:"image"`
	Fields map[string]any `json:"fields"`
}

// contactResponse is the wire shape of a stored contact.
type contactResponse struct {
	ID           string         `json:"id"`
	Fields       map[string]any `json:"fields"`
	CreatedAt    time.Time      `json:"created_at"`
	HasEmbedding bool           `json:"has_embedding"`
}

// searchResultItem is a ranked hit with its score breakdown.
type searchResultItem struct {
	contactResponse
	Score         scoreBreakdown `json:"score"`
	BusinessMatch bool           `json:"business_match"`
}

type scoreBreakdown struct {
	Base     float64 `json:"base"`
	Business float64 `json:"business"`
	Keyword  float64 `json:"keyword"`
	Combined float64 `json:"combined"`
}

type listResponse struct {
	Items []contactResponse `json:"items"`
	Total int               `json:"total"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// createContact handles POST /api/v1/contacts.
func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	owner := OwnerFromContext(r.Context())

	var rec domcontact.Record
	var err error
	switch {
	case req.Image != "":
		var image []byte
		image, err = base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "image must be valid base64")
			return
		}
		rec, err = s.contacts.IngestImage(r.Context(), owner, image)
	case len(req.Fields) > 0:
		rec, err = s.contacts.IngestFields(r.Context(), owner, req.Fields)
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "either image or fields is required")
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/contacts/"+rec.ID())
	writeJSON(w, http.StatusCreated, contactToResponse(&rec))
}

// listContacts handles GET /api/v1/contacts.
func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	recs, total, err := s.contacts.List(r.Context(), OwnerFromContext(r.Context()), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]contactResponse, len(recs))
	for i := range recs {
		items[i] = contactToResponse(&recs[i])
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

// getContact handles GET /api/v1/contacts/{id}.
func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	rec, err := s.contacts.Get(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contactToResponse(&rec))
}

// deleteContact handles DELETE /api/v1/contacts/{id}.
func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.contacts.Delete(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// searchContacts handles GET /api/v1/contacts/search.
func (s *Server) searchContacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 0)

	results, err := s.search.Search(r.Context(), OwnerFromContext(r.Context()), query, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultItem{
			contactResponse: contactToResponse(&results[i].Record),
			Score: scoreBreakdown{
				Base:     results[i].Score.Base,
				Business: results[i].Score.Business,
				Keyword:  results[i].Score.Keyword,
				Combined: results[i].Score.Combined,
			},
			BusinessMatch: results[i].BusinessMatch,
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// getStats handles GET /api/v1/contacts/stats.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.contacts.Stats(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	healthy := true

	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			healthy = false
			checks["database"] = err.Error()
		}
	}
	if s.embedding != nil {
		checks["embedding"] = "ok"
		if err := s.embedding.HealthCheck(r.Context()); err != nil {
			healthy = false
			checks["embedding"] = err.Error()
		}
	}

	status, httpStatus := "healthy", http.StatusOK
	if !healthy {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func contactToResponse(rec *domcontact.Record) contactResponse {
	return contactResponse{
		ID:           rec.ID(),
		Fields:       rec.Fields(),
		CreatedAt:    rec.CreatedAt(),
		HasEmbedding: len(rec.Embedding()) > 0,
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
