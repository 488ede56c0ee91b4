package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals empty or whitespace-only text.
	ErrEmptyInput = errors.New("empty input")
	// ErrNotFound signals a missing template.
	ErrNotFound = errors.New("template not found")
	// ErrInstanceNotFound signals a missing draft instance.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrAlreadyExists signals a duplicate identifier.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation signals invalid caller input.
	ErrValidation = errors.New("validation failed")
	// ErrVectorDimMismatch signals a vector of the wrong dimension.
	ErrVectorDimMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrValidation)
	// ErrPayloadTooLarge signals a document over the ingest size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrEmbeddingBackend signals an embedding provider failure.
	ErrEmbeddingBackend = errors.New("embedding backend error")
	// ErrRerankingBackend signals a re-ranker failure. Never surfaced to clients.
	ErrRerankingBackend = errors.New("reranking backend error")
	// ErrFallbackBackend signals a fallback source failure. Never surfaced to clients.
	ErrFallbackBackend = errors.New("fallback backend error")
	// ErrSynthesisBackend signals a template synthesis failure.
	ErrSynthesisBackend = errors.New("synthesis backend error")
)

// ValidationError carries the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates an error matching ErrValidation.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
