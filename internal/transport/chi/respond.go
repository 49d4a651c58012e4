package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/domain"
)

// Error codes returned to clients.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeUnauthorized       = "unauthorized"
	codeNotFound           = "contact_not_found"
	codeTokenBudget        = "token_budget_exceeded"
	codeExtractionFailed   = "extraction_failed"
	codeEmbeddingProvider  = "embedding_provider_error"
	codeBackendUnavailable = "backend_unavailable"
	codeInternalError      = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sentinelStatus maps a domain sentinel to an HTTP status and client code.
type sentinelStatus struct {
	sentinel error
	status   int
	code     string
}

var sentinelStatuses = []sentinelStatus{
	{domain.ErrContactNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized},
	{domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed},
	{domain.ErrTokenBudgetExceeded, http.StatusRequestEntityTooLarge, codeTokenBudget},
	{domain.ErrExtractionFailed, http.StatusBadGateway, codeExtractionFailed},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider},
	{domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// handleDomainError maps sentinel errors to HTTP responses without exposing
// internals; anything unmatched is a 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, m := range sentinelStatuses {
		if errors.Is(err, m.sentinel) {
			s.logger.Warn("domain error", zap.Error(err))
			writeError(w, m.status, m.code, m.sentinel.Error())
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
