package delivery

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/printmail/postgrid-go/internal/apierrors"
	"github.com/printmail/postgrid-go/internal/ratelimit"
)

const (
	PollingInitialInterval   = 2 * time.Second
	PollingMaxBackoff        = 30 * time.Second
	PollingBackoffMultiplier = 1.5
	PollingJitterFactor      = 0.3
)

// Check reports the current status of the tracked object and whether the
// wait is over. A non-nil error that is not retryable ends the wait.
type Check func(ctx context.Context) (status string, done bool, err error)

// Config controls a Poller. Zero values use the package defaults. A negative
// JitterFactor disables jitter.
type Config struct {
	InitialInterval   time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFactor      float64
	Logger            *slog.Logger
}

// Poller waits for a Check to report done.
type Poller struct {
	initial    time.Duration
	maxBackoff time.Duration
	multiplier float64
	jitter     float64
	logger     *slog.Logger
	sleep      ratelimit.SleepFunc
	rand       func() float64
}

// NewPoller creates a Poller from cfg.
func NewPoller(cfg Config) *Poller {
	p := &Poller{
		initial:    cfg.InitialInterval,
		maxBackoff: cfg.MaxBackoff,
		multiplier: cfg.BackoffMultiplier,
		jitter:     cfg.JitterFactor,
		logger:     cfg.Logger,
		sleep:      ratelimit.Sleep,
		rand:       rand.Float64,
	}
	if p.initial <= 0 {
		p.initial = PollingInitialInterval
	}
	if p.maxBackoff <= 0 {
		p.maxBackoff = PollingMaxBackoff
	}
	if p.maxBackoff < p.initial {
		p.maxBackoff = p.initial
	}
	if p.multiplier < 1 {
		p.multiplier = PollingBackoffMultiplier
	}
	switch {
	case p.jitter == 0:
		p.jitter = PollingJitterFactor
	case p.jitter < 0:
		p.jitter = 0
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Wait calls check immediately and then on every interval until it reports
// done, returns a non-retryable error, or ctx ends.
func (p *Poller) Wait(ctx context.Context, check Check) error {
	var (
		last     string
		seen     bool
		interval = p.initial
	)

	for {
		status, done, err := check(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !apierrors.KindOf(err).Retryable() {
				return err
			}
			p.logger.Debug("status poll failed", "error", err, "next", interval)
		case done:
			return nil
		case !seen || status != last:
			if seen {
				p.logger.Debug("status changed", "from", last, "to", status)
			}
			last, seen = status, true
			interval = p.initial
		default:
			interval = p.grow(interval)
		}

		if err := p.sleep(ctx, p.withJitter(interval)); err != nil {
			return err
		}
	}
}

func (p *Poller) grow(interval time.Duration) time.Duration {
	next := time.Duration(float64(interval) * p.multiplier)
	if next > p.maxBackoff {
		next = p.maxBackoff
	}
	return next
}

func (p *Poller) withJitter(interval time.Duration) time.Duration {
	return interval + time.Duration(p.rand()*p.jitter*float64(interval))
}
