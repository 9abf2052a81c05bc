package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After.
const DefaultRetryAfter = 5 * time.Second

// MaxRetryAfter caps the wait taken from a Retry-After header.
const MaxRetryAfter = 24 * time.Hour

// Response headers carrying server-side rate limit state.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
)

// ParseRetryAfter parses a Retry-After value given either as delta-seconds or
// as an HTTP date. Missing or malformed values yield DefaultRetryAfter.
func ParseRetryAfter(value string) time.Duration {
	return parseRetryAfterAt(value, time.Now())
}

func parseRetryAfterAt(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return DefaultRetryAfter
		}
		if secs > int(MaxRetryAfter/time.Second) {
			return MaxRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return min(d, MaxRetryAfter)
		}
		return 0
	}
	return DefaultRetryAfter
}

// State is the rate limit state reported by the server on a response.
type State struct {
	Remaining    int
	HasRemaining bool
	ResetAt      time.Time
}

// Empty reports whether the response carried no rate limit headers.
func (s State) Empty() bool {
	return !s.HasRemaining && s.ResetAt.IsZero()
}

// ParseHeaders extracts X-RateLimit-Remaining and X-RateLimit-Reset (unix
// seconds). Unparseable values are ignored.
func ParseHeaders(h http.Header) State {
	var s State
	if v := strings.TrimSpace(h.Get(HeaderRemaining)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 {
				n = 0
			}
			s.Remaining = n
			s.HasRemaining = true
		}
	}
	if v := strings.TrimSpace(h.Get(HeaderReset)); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil && ts > 0 {
			s.ResetAt = time.Unix(ts, 0)
		}
	}
	return s
}
