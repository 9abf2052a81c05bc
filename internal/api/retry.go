package api

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/printmail/postgrid-go/internal/apierrors"
	"github.com/printmail/postgrid-go/internal/ratelimit"
)

// RetryConfig configures retry behavior for failed HTTP requests.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts. A logical request
	// makes at most MaxRetries+1 transport attempts.
	MaxRetries int
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay. Zero means no cap.
	MaxDelay time.Duration
	// Multiplier is the factor by which the delay increases after each attempt.
	Multiplier float64
	// Jitter is the randomization factor (0.0 to 1.0) applied to backoff
	// delays. Zero disables it.
	Jitter float64
}

// DefaultRetryConfig returns the default retry configuration: 3 retries with
// delays of 1s, 2s and 4s for server and network failures.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Multiplier: 2.0,
	}
}

// NextWait decides whether the attempt with the given 0-based index may be
// followed by another one, and how long to wait first.
//
// Authentication, validation and configuration errors never retry. Rate limit
// errors wait for the server's Retry-After regardless of the index. Server and
// network errors back off exponentially.
func (r *RetryConfig) NextWait(attempt int, e *apierrors.Error) (time.Duration, bool) {
	if e == nil || !e.Kind.Retryable() {
		return 0, false
	}
	if attempt >= r.MaxRetries {
		return 0, false
	}
	if e.Kind == apierrors.KindRateLimit {
		return max(e.RetryAfter, 0), true
	}
	return r.Delay(attempt), true
}

// Delay calculates the backoff delay after the given attempt.
func (r *RetryConfig) Delay(attempt int) time.Duration {
	multiplier := r.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(r.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	if r.Jitter > 0 {
		jitterAmount := delay * r.Jitter
		delay = delay - jitterAmount + (rand.Float64() * 2 * jitterAmount)
	}

	return time.Duration(delay)
}

// Attempt describes one iteration of the retry loop.
type Attempt struct {
	// Index is the 0-based attempt number.
	Index int
	// Err is the failure of the previous attempt, nil on the first one.
	Err *apierrors.Error
	// Wait is the delay that preceded this attempt.
	Wait time.Duration
}

// Executor runs a function under a RetryConfig.
type Executor struct {
	Policy *RetryConfig
	Sleep  ratelimit.SleepFunc
	// OnRetry is called before sleeping ahead of each retry.
	OnRetry func(ctx context.Context, next Attempt)
}

// Execute calls fn until it succeeds, fails with an error the policy will not
// retry, or the attempt budget runs out. Errors that are not *apierrors.Error
// (such as context cancellation) end the loop immediately. When the budget is
// exhausted the last observed error is returned.
func Execute[T any](ctx context.Context, ex Executor, fn func(context.Context, Attempt) (T, error)) (T, error) {
	var zero T
	sleep := ex.Sleep
	if sleep == nil {
		sleep = ratelimit.Sleep
	}

	var last error
	attempt := Attempt{}
	for attempt.Index <= ex.Policy.MaxRetries {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		last = err

		var e *apierrors.Error
		if !errors.As(err, &e) {
			return zero, err
		}

		wait, ok := ex.Policy.NextWait(attempt.Index, e)
		if !ok {
			return zero, err
		}

		next := Attempt{Index: attempt.Index + 1, Err: e, Wait: wait}
		if ex.OnRetry != nil {
			ex.OnRetry(ctx, next)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
		attempt = next
	}

	if last != nil {
		return zero, last
	}
	return zero, apierrors.ErrRetriesExhausted
}
