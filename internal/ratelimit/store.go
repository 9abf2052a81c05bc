package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one check-and-decrement.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store holds the fixed-window state. Take must perform the reset check and
// the decrement atomically.
type Store interface {
	Take(ctx context.Context, now time.Time) (Decision, error)
	Observe(ctx context.Context, s State, now time.Time) error
	Remaining(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore keeps the window in process memory.
type MemoryStore struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

// NewMemoryStore creates a store admitting limit requests per window. A limit
// below one is raised to one.
func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	limit = max(limit, 1)
	return &MemoryStore{
		limit:     limit,
		window:    window,
		remaining: limit,
	}
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollLocked(now)
	if s.remaining <= 0 {
		return Decision{Allowed: false, ResetAt: s.resetAt}, nil
	}
	s.remaining--
	return Decision{Allowed: true, Remaining: s.remaining, ResetAt: s.resetAt}, nil
}

// Observe implements Store. Server-reported values replace the local estimate.
func (s *MemoryStore) Observe(_ context.Context, st State, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollLocked(now)
	if st.HasRemaining {
		s.remaining = max(st.Remaining, 0)
	}
	if !st.ResetAt.IsZero() {
		s.resetAt = st.ResetAt
	}
	return nil
}

// Remaining implements Store.
func (s *MemoryStore) Remaining(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !now.Before(s.resetAt) {
		return s.limit, nil
	}
	return s.remaining, nil
}

// Reset restores the full budget. The next Take opens a new window.
func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = s.limit
	s.resetAt = time.Time{}
	return nil
}

func (s *MemoryStore) rollLocked(now time.Time) {
	if !now.Before(s.resetAt) {
		s.remaining = s.limit
		s.resetAt = now.Add(s.window)
	}
}
