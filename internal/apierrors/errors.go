// Package apierrors provides the shared error taxonomy for the PostGrid client
// and the mapping from HTTP responses onto it.
package apierrors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrConfiguration is matched by every configuration error.
	ErrConfiguration = errors.New("invalid client configuration")

	// ErrUnauthorized is returned when the API key is rejected.
	ErrUnauthorized = errors.New("invalid or expired API key")

	// ErrValidation is matched by request rejections and response schema mismatches.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when the resource is in a state that forbids the operation.
	ErrConflict = errors.New("resource conflict")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServer is matched by upstream 5xx failures.
	ErrServer = errors.New("server error")

	// ErrNetwork is matched by transport failures where no response arrived.
	ErrNetwork = errors.New("network error")

	// ErrRetriesExhausted is returned when the retry loop ends without ever
	// recording a failure.
	ErrRetriesExhausted = errors.New("request failed after multiple retries")
)

// Kind classifies an error into the client's taxonomy.
type Kind string

const (
	// KindAuthentication means the credential was rejected (401).
	KindAuthentication Kind = "authentication"
	// KindValidation means a malformed request (4xx), an unexpected status or
	// a response that does not match the declared schema.
	KindValidation Kind = "validation"
	// KindRateLimit means the upstream throttled the request (429).
	KindRateLimit Kind = "rate_limit"
	// KindServer means an upstream fault (5xx).
	KindServer Kind = "server"
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindConfiguration means the client settings are missing or invalid.
	KindConfiguration Kind = "configuration"
)

// Retryable reports whether errors of this kind may be retried.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimit, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// FieldError is one structured detail reported by the API or by local
// schema validation.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error is the envelope built for every failed request.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Retryable  bool
	RawBody    []byte
	Errors     []FieldError
	RetryAfter time.Duration
	RequestID  string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " error"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("API error %d: %s", e.StatusCode, msg)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request_id: %s)", e.RequestID)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindAuthentication:
		return target == ErrUnauthorized
	case KindRateLimit:
		return target == ErrRateLimited
	case KindServer:
		return target == ErrServer
	case KindNetwork:
		return target == ErrNetwork
	case KindConfiguration:
		return target == ErrConfiguration
	case KindValidation:
		switch e.StatusCode {
		case 404:
			return target == ErrNotFound
		case 409:
			return target == ErrConflict
		}
		return target == ErrValidation
	}
	return false
}

// Network wraps a transport failure.
func Network(err error) *Error {
	return &Error{
		Kind:      KindNetwork,
		Message:   fmt.Sprintf("network error: %v", err),
		Retryable: true,
		Err:       err,
	}
}

// Configuration builds a configuration error.
func Configuration(format string, args ...any) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation builds a local validation error, e.g. a response that does not
// match its schema.
func Validation(message string, details []FieldError, cause error) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Errors:  details,
		Err:     cause,
	}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
