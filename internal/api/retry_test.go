package api

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/printmail/postgrid-go/internal/apierrors"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", cfg.BaseDelay)
	}
	if cfg.MaxDelay != 0 {
		t.Errorf("MaxDelay = %v, want no cap", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
	if cfg.Jitter != 0 {
		t.Errorf("Jitter = %v, want 0", cfg.Jitter)
	}
}

func TestRetryConfig_NextWait(t *testing.T) {
	cfg := DefaultRetryConfig()

	server := &apierrors.Error{Kind: apierrors.KindServer, StatusCode: 500}
	network := apierrors.Network(errors.New("connection reset"))
	limited := &apierrors.Error{Kind: apierrors.KindRateLimit, StatusCode: 429, RetryAfter: 7 * time.Second}
	auth := &apierrors.Error{Kind: apierrors.KindAuthentication, StatusCode: 401}
	invalid := &apierrors.Error{Kind: apierrors.KindValidation, StatusCode: 422}
	config := apierrors.Configuration("bad")

	tests := []struct {
		name     string
		attempt  int
		err      *apierrors.Error
		wantWait time.Duration
		wantOK   bool
	}{
		{"server first", 0, server, time.Second, true},
		{"server second", 1, server, 2 * time.Second, true},
		{"server third", 2, server, 4 * time.Second, true},
		{"server budget spent", 3, server, 0, false},
		{"network first", 0, network, time.Second, true},
		{"network third", 2, network, 4 * time.Second, true},
		{"rate limit uses retry after", 0, limited, 7 * time.Second, true},
		{"rate limit ignores index", 2, limited, 7 * time.Second, true},
		{"rate limit budget spent", 3, limited, 0, false},
		{"authentication", 0, auth, 0, false},
		{"validation", 0, invalid, 0, false},
		{"configuration", 0, config, 0, false},
		{"nil error", 0, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wait, ok := cfg.NextWait(tt.attempt, tt.err)
			if wait != tt.wantWait || ok != tt.wantOK {
				t.Errorf("NextWait(%d) = (%v, %v), want (%v, %v)", tt.attempt, wait, ok, tt.wantWait, tt.wantOK)
			}
		})
	}
}

func TestRetryConfig_NextWaitZeroRetries(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 0, BaseDelay: time.Second, Multiplier: 2}
	if _, ok := cfg.NextWait(0, &apierrors.Error{Kind: apierrors.KindServer}); ok {
		t.Error("NextWait() allowed a retry with MaxRetries = 0")
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := &RetryConfig{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}

	for _, tt := range tests {
		if got := cfg.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryConfig_DelayWithJitter(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: time.Second, Multiplier: 2.0, Jitter: 0.5}

	for i := 0; i < 100; i++ {
		d := cfg.Delay(0)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("Delay(0) = %v, outside [500ms, 1.5s]", d)
		}
	}
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sleeps = append(s.sleeps, d)
	return nil
}

func TestExecute_SucceedsAfterRetries(t *testing.T) {
	rec := &sleepRecorder{}
	var seen []Attempt
	ex := Executor{Policy: DefaultRetryConfig(), Sleep: rec.Sleep}

	got, err := Execute(context.Background(), ex, func(_ context.Context, a Attempt) (string, error) {
		seen = append(seen, a)
		if a.Index < 2 {
			return "", &apierrors.Error{Kind: apierrors.KindServer, StatusCode: 503}
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "done" {
		t.Errorf("Execute() = %q, want done", got)
	}

	if len(seen) != 3 {
		t.Fatalf("attempts = %d, want 3", len(seen))
	}
	if seen[0].Err != nil || seen[0].Wait != 0 {
		t.Errorf("first attempt = %+v, want zero", seen[0])
	}
	if seen[2].Index != 2 || seen[2].Err == nil || seen[2].Wait != 2*time.Second {
		t.Errorf("third attempt = %+v", seen[2])
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(rec.sleeps, want) {
		t.Errorf("sleeps = %v, want %v", rec.sleeps, want)
	}
}

func TestExecute_ReturnsLastErrorWhenExhausted(t *testing.T) {
	rec := &sleepRecorder{}
	ex := Executor{Policy: &RetryConfig{MaxRetries: 2, BaseDelay: time.Second, Multiplier: 2}, Sleep: rec.Sleep}

	calls := 0
	_, err := Execute(context.Background(), ex, func(_ context.Context, a Attempt) (int, error) {
		calls++
		return 0, &apierrors.Error{Kind: apierrors.KindServer, StatusCode: 500 + a.Index}
	})

	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *apierrors.Error", err)
	}
	if apiErr.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want the last attempt's 502", apiErr.StatusCode)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecute_NonRetryableStopsImmediately(t *testing.T) {
	rec := &sleepRecorder{}
	ex := Executor{Policy: DefaultRetryConfig(), Sleep: rec.Sleep}

	calls := 0
	_, err := Execute(context.Background(), ex, func(context.Context, Attempt) (any, error) {
		calls++
		return nil, &apierrors.Error{Kind: apierrors.KindAuthentication, StatusCode: 401}
	})

	if !errors.Is(err, apierrors.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if calls != 1 || len(rec.sleeps) != 0 {
		t.Errorf("calls = %d, sleeps = %v", calls, rec.sleeps)
	}
}

func TestExecute_ForeignErrorStopsImmediately(t *testing.T) {
	boom := errors.New("boom")
	ex := Executor{Policy: DefaultRetryConfig(), Sleep: (&sleepRecorder{}).Sleep}

	calls := 0
	_, err := Execute(context.Background(), ex, func(context.Context, Attempt) (any, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestExecute_OnRetry(t *testing.T) {
	var retries []Attempt
	ex := Executor{
		Policy: &RetryConfig{MaxRetries: 1, BaseDelay: time.Second, Multiplier: 2},
		Sleep:  (&sleepRecorder{}).Sleep,
		OnRetry: func(_ context.Context, next Attempt) {
			retries = append(retries, next)
		},
	}

	Execute(context.Background(), ex, func(context.Context, Attempt) (any, error) {
		return nil, apierrors.Network(errors.New("reset"))
	})

	if len(retries) != 1 {
		t.Fatalf("OnRetry calls = %d, want 1", len(retries))
	}
	if retries[0].Index != 1 || retries[0].Wait != time.Second || retries[0].Err.Kind != apierrors.KindNetwork {
		t.Errorf("OnRetry attempt = %+v", retries[0])
	}
}

func TestExecute_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := Executor{
		Policy: DefaultRetryConfig(),
		OnRetry: func(context.Context, Attempt) {
			cancel()
		},
	}

	calls := 0
	_, err := Execute(ctx, ex, func(context.Context, Attempt) (any, error) {
		calls++
		return nil, &apierrors.Error{Kind: apierrors.KindServer, StatusCode: 500}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
