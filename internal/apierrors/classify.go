package apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/printmail/postgrid-go/internal/ratelimit"
)

// maxRawBody bounds how much of an error body is kept for diagnostics.
const maxRawBody = 64 << 10

// errorPayload covers both shapes the API uses for errors:
//
//	{"error": {"type": "...", "message": "...", "errors": [...]}}
//	{"message": "...", "errors": [...]}
type errorPayload struct {
	Error     json.RawMessage `json:"error"`
	Message   string          `json:"message"`
	Errors    json.RawMessage `json:"errors"`
	RequestID string          `json:"requestId"`
}

type nestedError struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// Classify maps a non-2xx response onto the error taxonomy. It never fails:
// malformed bodies fall back to a generic message.
func Classify(statusCode int, header http.Header, body []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		RequestID:  header.Get("X-Request-Id"),
	}
	if len(body) > maxRawBody {
		e.RawBody = body[:maxRawBody]
	} else {
		e.RawBody = body
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		e.Kind = KindAuthentication
		e.Message = "invalid API key"
	case statusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.Retryable = true
		e.RetryAfter = ratelimit.ParseRetryAfter(header.Get("Retry-After"))
		e.Message = "rate limit exceeded"
	case statusCode >= 500 && statusCode <= 599:
		e.Kind = KindServer
		e.Retryable = true
		e.Message = http.StatusText(statusCode)
	case statusCode >= 400 && statusCode <= 499:
		e.Kind = KindValidation
		e.Message = http.StatusText(statusCode)
	default:
		// 1xx and unfollowed 3xx responses do not change on retry.
		e.Kind = KindValidation
		e.Message = fmt.Sprintf("unexpected status %d", statusCode)
	}

	msg, details, requestID := parseErrorBody(body)
	if msg != "" {
		e.Message = msg
	}
	e.Errors = details
	if e.RequestID == "" {
		e.RequestID = requestID
	}
	return e
}

func parseErrorBody(body []byte) (string, []FieldError, string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", nil, ""
	}

	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", nil, ""
	}

	msg := p.Message
	rawErrors := p.Errors

	if len(p.Error) > 0 {
		var nested nestedError
		if err := json.Unmarshal(p.Error, &nested); err == nil {
			if nested.Message != "" {
				msg = nested.Message
			}
			if len(nested.Errors) > 0 {
				rawErrors = nested.Errors
			}
		} else {
			var s string
			if err := json.Unmarshal(p.Error, &s); err == nil && s != "" {
				msg = s
			}
		}
	}

	return msg, parseFieldErrors(rawErrors), p.RequestID
}

// parseFieldErrors accepts a list of objects or a list of strings.
func parseFieldErrors(raw json.RawMessage) []FieldError {
	if len(raw) == 0 {
		return nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]FieldError, 0, len(items))
		for _, item := range items {
			fe := FieldError{
				Field:   stringField(item, "field", "param", "path"),
				Code:    stringField(item, "code", "type"),
				Message: stringField(item, "message", "msg"),
			}
			out = append(out, fe)
		}
		return out
	}

	var messages []string
	if err := json.Unmarshal(raw, &messages); err == nil {
		out := make([]FieldError, 0, len(messages))
		for _, m := range messages {
			out = append(out, FieldError{Message: m})
		}
		return out
	}

	return nil
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
