package sdk

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/draftdex/internal/domain"
	chiTransport "github.com/kailas-cloud/draftdex/internal/transport/chi"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrInstanceNotFound = domain.ErrInstanceNotFound
	ErrAlreadyExists    = domain.ErrAlreadyExists
	ErrValidation       = domain.ErrValidation
	ErrPayloadTooLarge  = domain.ErrPayloadTooLarge
	ErrEmbeddingBackend = domain.ErrEmbeddingBackend
	ErrSynthesisBackend = domain.ErrSynthesisBackend
)

var (
	// ErrUnauthorized signals a missing or rejected API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStreamFailed signals a match stream that ended with an error event.
	ErrStreamFailed = errors.New("match stream failed")
	// ErrStreamTruncated signals a match stream that closed before its final event.
	ErrStreamTruncated = errors.New("match stream ended without a result")
)

var codeSentinels = map[chiTransport.ErrorCode]error{
	chiTransport.ErrorCodeUnauthorized:           ErrUnauthorized,
	chiTransport.ErrorCodeBadRequest:             ErrValidation,
	chiTransport.ErrorCodeValidationFailed:       ErrValidation,
	chiTransport.ErrorCodeTemplateNotFound:       ErrNotFound,
	chiTransport.ErrorCodeInstanceNotFound:       ErrInstanceNotFound,
	chiTransport.ErrorCodeAlreadyExists:          ErrAlreadyExists,
	chiTransport.ErrorCodePayloadTooLarge:        ErrPayloadTooLarge,
	chiTransport.ErrorCodeEmbeddingProviderError: ErrEmbeddingBackend,
	chiTransport.ErrorCodeSynthesisProviderError: ErrSynthesisBackend,
}

// APIError is a non-2xx response. It unwraps to the matching sentinel.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("draftdex: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return codeSentinels[chiTransport.ErrorCode(e.Code)]
}
