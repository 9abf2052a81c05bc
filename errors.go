package postgrid

import (
	"github.com/printmail/postgrid-go/internal/apierrors"
)

// Error is returned for every failed request. Use errors.As to inspect its
// Kind, StatusCode, upstream message and structured details.
type Error = apierrors.Error

// FieldError is one structured detail of an Error.
type FieldError = apierrors.FieldError

// Kind classifies an Error.
type Kind = apierrors.Kind

// Error kinds.
const (
	KindAuthentication = apierrors.KindAuthentication
	KindValidation     = apierrors.KindValidation
	KindRateLimit      = apierrors.KindRateLimit
	KindServer         = apierrors.KindServer
	KindNetwork        = apierrors.KindNetwork
	KindConfiguration  = apierrors.KindConfiguration
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = apierrors.ErrMissingAPIKey

	// ErrConfiguration is matched by every configuration error.
	ErrConfiguration = apierrors.ErrConfiguration

	// ErrUnauthorized is returned when the API key is invalid (401).
	ErrUnauthorized = apierrors.ErrUnauthorized

	// ErrValidation is returned when the API rejects a request (4xx) or a
	// response does not match its schema.
	ErrValidation = apierrors.ErrValidation

	// ErrNotFound is returned when a resource does not exist (404).
	ErrNotFound = apierrors.ErrNotFound

	// ErrConflict is returned when a resource's state forbids the operation (409).
	ErrConflict = apierrors.ErrConflict

	// ErrRateLimited is returned when the API rate limit is exceeded (429).
	ErrRateLimited = apierrors.ErrRateLimited

	// ErrServer is returned for upstream failures (5xx).
	ErrServer = apierrors.ErrServer

	// ErrNetwork is returned when no response was received.
	ErrNetwork = apierrors.ErrNetwork
)

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	return apierrors.KindOf(err)
}

// IsRetryable reports whether err is of a kind the client retries on its own.
func IsRetryable(err error) bool {
	return apierrors.KindOf(err).Retryable()
}
