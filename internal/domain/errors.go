package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed query request (bad limit, offset,
	// bounding box, or similarity threshold).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownField signals an identifier that does not resolve in the field catalog.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidFilter signals a filter expression rejected by the validator.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrSourceNotFound signals an enrichment source missing from the registry.
	ErrSourceNotFound = errors.New("enrichment source not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	// Distinct from validation errors: the request itself was well-formed.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrQueryTimeout signals that the statement hit the server-side execution timeout.
	ErrQueryTimeout = errors.New("query timeout")
	// ErrStoreUnavailable signals a connectivity failure to the relational store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// FilterRejectedError wraps ErrInvalidFilter with the position and reason
// reported by the validator.
type FilterRejectedError struct {
	Reason string
}

func (e *FilterRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidFilter.Error(), e.Reason)
}

func (e *FilterRejectedError) Unwrap() error { return ErrInvalidFilter }

// NewFilterRejected creates a filter rejection error with a caller-facing reason.
func NewFilterRejected(reason string) error {
	return &FilterRejectedError{Reason: reason}
}
