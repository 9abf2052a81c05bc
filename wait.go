package postgrid

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
	"github.com/printmail/postgrid-go/internal/apierrors"
	"github.com/printmail/postgrid-go/internal/delivery"
)

const defaultWaitTimeout = 60 * time.Second

// ErrMailCancelled is returned when a mail piece is cancelled before it
// reaches the status being waited for.
var ErrMailCancelled = errors.New("mail piece was cancelled")

// ErrStatusUnreachable is returned when a mail piece completes while waiting
// for it to be cancelled.
var ErrStatusUnreachable = errors.New("mail piece can no longer reach the wanted status")

type waitConfig struct {
	timeout      time.Duration
	pollInterval time.Duration
	maxInterval  time.Duration
}

// WaitOption configures WaitForStatus.
type WaitOption func(*waitConfig)

// WithWaitTimeout bounds the whole wait. Zero or negative disables the
// bound and leaves only the context's deadline.
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// WithPollInterval sets the first interval between status checks.
func WithPollInterval(interval time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.pollInterval = interval
	}
}

// WithMaxPollInterval caps the interval between status checks.
func WithMaxPollInterval(interval time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.maxInterval = interval
	}
}

// statusOrder ranks the statuses a live mail piece moves through.
var statusOrder = map[string]int{
	StatusReady:                0,
	StatusPrinting:             1,
	StatusProcessedForDelivery: 2,
	StatusCompleted:            3,
}

// statusReached reports whether current is want or a later status.
func statusReached(current, want string) (bool, error) {
	if current == want {
		return true, nil
	}
	if current == StatusCancelled {
		return false, ErrMailCancelled
	}
	if current == StatusCompleted && want == StatusCancelled {
		return false, ErrStatusUnreachable
	}
	c, okc := statusOrder[current]
	w, okw := statusOrder[want]
	return okc && okw && c >= w, nil
}

func waitForStatus[T any](
	ctx context.Context,
	c *api.Client,
	resource, id, status string,
	opts []WaitOption,
	fetch func(context.Context, string) (*T, error),
	statusOf func(*T) string,
) (*T, error) {
	if err := requireID(resource, id); err != nil {
		return nil, err
	}
	if _, ok := statusOrder[status]; !ok && status != StatusCancelled {
		return nil, apierrors.Validation("unknown status "+strconv.Quote(status), []apierrors.FieldError{{
			Field:   "status",
			Code:    "oneof",
			Message: "status must be one of ready, printing, processed_for_delivery, completed or cancelled",
		}}, nil)
	}

	cfg := &waitConfig{timeout: defaultWaitTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	poller := delivery.NewPoller(delivery.Config{
		InitialInterval: cfg.pollInterval,
		MaxBackoff:      cfg.maxInterval,
		Logger:          c.Logger().With("resource", resource, "id", id, "want", status),
	})

	var latest *T
	err := poller.Wait(ctx, func(ctx context.Context) (string, bool, error) {
		item, err := fetch(ctx, id)
		if err != nil {
			return "", false, err
		}
		latest = item
		current := statusOf(item)
		done, err := statusReached(current, status)
		return current, done, err
	})
	return latest, err
}

// WaitForStatus polls a letter until it reaches status or a later one. On
// error the last fetched letter, if any, is returned with it.
func (s *LetterService) WaitForStatus(ctx context.Context, id, status string, opts ...WaitOption) (*Letter, error) {
	return waitForStatus(ctx, s.api, "letter", id, status, opts, s.Get,
		func(l *Letter) string { return l.Status })
}

// WaitForStatus polls a postcard until it reaches status or a later one. On
// error the last fetched postcard, if any, is returned with it.
func (s *PostcardService) WaitForStatus(ctx context.Context, id, status string, opts ...WaitOption) (*Postcard, error) {
	return waitForStatus(ctx, s.api, "postcard", id, status, opts, s.Get,
		func(p *Postcard) string { return p.Status })
}
