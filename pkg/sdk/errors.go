package paperdex

import (
	"errors"
	"fmt"
)

// Sentinel errors for common API failure codes. Use errors.Is() to check.
var (
	ErrBadRequest       = errors.New("paperdex: bad request")
	ErrInvalidFilter    = errors.New("paperdex: filter rejected")
	ErrUnknownField     = errors.New("paperdex: unknown field")
	ErrSourceNotFound   = errors.New("paperdex: enrichment source not found")
	ErrProviderError    = errors.New("paperdex: embedding provider error")
	ErrQueryTimeout     = errors.New("paperdex: query timed out")
	ErrStoreUnavailable = errors.New("paperdex: store unavailable")
	ErrUnauthorized     = errors.New("paperdex: unauthorized")
)

// APIError is a structured error body returned by the service.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paperdex: %s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// Unwrap maps known codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		if e.HTTPStatus == 401 {
			return ErrUnauthorized
		}
		return ErrBadRequest
	case "invalid_filter":
		return ErrInvalidFilter
	case "unknown_field":
		return ErrUnknownField
	case "source_not_found":
		return ErrSourceNotFound
	case "embedding_provider_error":
		return ErrProviderError
	case "query_timeout":
		return ErrQueryTimeout
	case "store_unavailable":
		return ErrStoreUnavailable
	default:
		return nil
	}
}
