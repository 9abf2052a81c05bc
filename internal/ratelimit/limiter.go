// Package ratelimit implements the client-side fixed-window request budget.
//
// A window admits a fixed number of requests and is replenished in full once
// its reset time passes. Callers that find the budget exhausted sleep until
// the reset time outside of any lock and then re-check, so one sleeping
// caller never serialises the others.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Window is the length of one rate limit window.
const Window = time.Minute

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// minWait guards against a store reporting an already passed reset time.
const minWait = 10 * time.Millisecond

// Limiter admits requests against a Store.
type Limiter struct {
	store  Store
	now    func() time.Time
	sleep  SleepFunc
	logger *slog.Logger
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock overrides the time source and sleep function.
func WithClock(now func() time.Time, sleep SleepFunc) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithLogger sets the logger used for rate limit waits.
func WithLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a limiter over store.
func New(store Store, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:  store,
		now:    time.Now,
		sleep:  Sleep,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewMemory creates an in-process limiter admitting limit requests per Window.
func NewMemory(limit int, opts ...LimiterOption) *Limiter {
	return New(NewMemoryStore(limit, Window), opts...)
}

// Acquire blocks until the request is admitted and returns the time spent
// waiting. It returns ctx.Err() if the context ends while waiting.
func (l *Limiter) Acquire(ctx context.Context) (time.Duration, error) {
	var waited time.Duration
	for {
		now := l.now()
		d, err := l.store.Take(ctx, now)
		if err != nil {
			return waited, err
		}
		if d.Allowed {
			return waited, nil
		}

		wait := d.ResetAt.Sub(now)
		if wait < minWait {
			wait = minWait
		}
		l.logger.WarnContext(ctx, "rate limit reached, waiting for window reset",
			"wait", wait, "reset_at", d.ResetAt)
		if err := l.sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// Observe applies server-reported state. Server values take precedence over
// the local estimate.
func (l *Limiter) Observe(ctx context.Context, s State) error {
	if s.Empty() {
		return nil
	}
	return l.store.Observe(ctx, s, l.now())
}

// Reset discards the current window of stores that support it. Shared stores
// such as RedisStore are left untouched.
func (l *Limiter) Reset(ctx context.Context) error {
	r, ok := l.store.(interface{ Reset(context.Context) error })
	if !ok {
		return nil
	}
	return r.Reset(ctx)
}

// Remaining returns the budget left in the current window.
func (l *Limiter) Remaining(ctx context.Context) (int, error) {
	return l.store.Remaining(ctx, l.now())
}
