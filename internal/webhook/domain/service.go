package domain

import (
	"context"
	"errors"
	"net/http"

	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
)

type Service interface {
	// IngestHotmart handles the structured purchase-approved shape.
	IngestHotmart(ctx context.Context, payload HotmartPayload, raw []byte) (subscriberdomain.Subscriber, error)
	// IngestGeneric handles an arbitrary JSON payload under a known
	// provider tag.
	IngestGeneric(ctx context.Context, provider subscriberdomain.Provider, raw []byte) (subscriberdomain.Subscriber, error)
	// Ingest infers the provider from headers and payload, then routes to
	// the generic path. The inferred provider is returned for the caller's
	// response body even when the legacy fallback stores a different tag.
	Ingest(ctx context.Context, raw []byte, headers http.Header) (subscriberdomain.Subscriber, subscriberdomain.Provider, error)
}

var (
	ErrEmailNotFound      = errors.New("email not found in webhook payload")
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrInvalidPayload     = errors.New("invalid webhook payload")
)

// IsValidationErr reports whether err is a payload validation failure that
// should be rejected, never retried.
func IsValidationErr(err error) bool {
	switch {
	case errors.Is(err, ErrEmailNotFound),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidEmailFormat),
		errors.Is(err, ErrInvalidPayload):
		return true
	default:
		return false
	}
}
