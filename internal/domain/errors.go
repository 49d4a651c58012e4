package domain

import "errors"

var (
	// ErrContactNotFound signals a missing contact record.
	ErrContactNotFound = errors.New("contact not found")
	// ErrBackendUnavailable signals that every retrieval path failed.
	ErrBackendUnavailable = errors.New("contact backend unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExtractionFailed signals that the vision extractor could not produce a record.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrTokenBudgetExceeded signals that an extraction request would not fit the model context.
	ErrTokenBudgetExceeded = errors.New("token budget exceeded")
	// ErrUnauthorized signals a missing or invalid API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)
