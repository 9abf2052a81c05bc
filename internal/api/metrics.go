package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/printmail/postgrid-go/internal/apierrors"
)

// Metrics records the request lifecycle as Prometheus metrics. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	attemptDuration    *prometheus.HistogramVec
	retriesTotal       *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	rateLimitWait      prometheus.Histogram
	rateLimitRemaining prometheus.Gauge
	dedupHits          prometheus.Counter
}

// NewMetrics registers the client metrics with registerer. Clients sharing a
// registerer share the collectors registered by the first of them.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postgrid_requests_total",
				Help: "Total number of HTTP attempts made to the PostGrid API",
			},
			[]string{"method", "status_code"},
		)),
		attemptDuration: register(registerer, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postgrid_request_duration_seconds",
				Help:    "Duration of individual HTTP attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)),
		retriesTotal: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postgrid_retries_total",
				Help: "Total number of retries by the kind of the failure that caused them",
			},
			[]string{"method", "kind"},
		)),
		errorsTotal: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postgrid_errors_total",
				Help: "Total number of logical requests that failed, by error kind",
			},
			[]string{"method", "kind"},
		)),
		rateLimitWait: register(registerer, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "postgrid_rate_limit_wait_seconds",
				Help:    "Time spent waiting for the client-side rate limit window",
				Buckets: []float64{0.1, 1, 5, 15, 30, 60},
			},
		)),
		rateLimitRemaining: register(registerer, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "postgrid_rate_limit_remaining",
				Help: "Requests left in the current rate limit window",
			},
		)),
		dedupHits: register(registerer, prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postgrid_deduplicated_requests_total",
				Help: "Total number of GET requests served by an identical in-flight request",
			},
		)),
	}
}

// register adds c to registerer, returning the collector already registered
// under the same descriptor if there is one. Any other registration error
// panics, as promauto does.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if registerer == nil {
		return c
	}
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordAttempt records one transport attempt. statusCode is 0 when no
// response was received.
func (m *Metrics) RecordAttempt(method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.attemptDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRetry records a retry caused by an error of the given kind.
func (m *Metrics) RecordRetry(method string, kind apierrors.Kind) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(method, string(kind)).Inc()
}

// RecordError records a logical request that failed.
func (m *Metrics) RecordError(method string, kind apierrors.Kind) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "other"
	}
	m.errorsTotal.WithLabelValues(method, string(kind)).Inc()
}

// RecordRateLimitWait records time spent blocked by the rate limiter.
func (m *Metrics) RecordRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWait.Observe(d.Seconds())
}

// SetRateLimitRemaining publishes the budget left in the current window.
func (m *Metrics) SetRateLimitRemaining(n int) {
	if m == nil {
		return
	}
	m.rateLimitRemaining.Set(float64(n))
}

// RecordDedupHit records a GET served by another caller's request.
func (m *Metrics) RecordDedupHit() {
	if m == nil {
		return
	}
	m.dedupHits.Inc()
}
