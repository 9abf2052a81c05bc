package postgrid

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/printmail/postgrid-go/internal/config"
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	userAgent  string

	// Retry backoff
	retryBaseDelay  time.Duration
	retryMultiplier float64
	retryMaxDelay   time.Duration

	// Rate limiting
	rateLimit   int
	limiter     *RateLimiter
	redisURL    string
	redisClient redis.UniversalClient

	logger      *slog.Logger
	debug       bool
	registerer  prometheus.Registerer
	deduplicate bool
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		baseURL:   config.DefaultBaseURL,
		timeout:   config.DefaultTimeout,
		retries:   config.DefaultMaxRetries,
		rateLimit: config.DefaultRateLimit,
		userAgent: userAgent,
	}
}

// applyConfig seeds the client configuration from loaded settings.
func (c *clientConfig) applyConfig(cfg *config.Config) {
	c.baseURL = cfg.BaseURL
	c.timeout = cfg.Timeout
	c.retries = cfg.MaxRetries
	c.rateLimit = cfg.RateLimit
	c.redisURL = cfg.RedisURL
	c.debug = cfg.Debug
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the API base URL.
// Default: https://api.postgrid.com/print-mail/v1/
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client. Its Timeout takes the place of
// WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of a single HTTP attempt.
// Default: 30 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries after the first attempt. Zero
// disables retries.
// Default: 3
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryBackoff sets the delay after the first failed attempt and the
// factor it grows by on each further attempt. Rate limited requests always
// wait for the server's Retry-After instead.
// Default: 1 second, 2.0
func WithRetryBackoff(base time.Duration, multiplier float64) Option {
	return func(c *clientConfig) {
		c.retryBaseDelay = base
		c.retryMultiplier = multiplier
	}
}

// WithMaxRetryDelay caps the backoff delay.
// Default: no cap
func WithMaxRetryDelay(d time.Duration) Option {
	return func(c *clientConfig) {
		c.retryMaxDelay = d
	}
}

// WithRateLimit sets the number of requests admitted per minute.
// Default: 50
func WithRateLimit(requestsPerMinute int) Option {
	return func(c *clientConfig) {
		c.rateLimit = requestsPerMinute
	}
}

// WithRateLimiter makes the client draw from an existing budget, typically
// another client's RateLimiter(). It takes precedence over WithRateLimit and
// WithRedis.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// WithRedis keeps the rate limit window in Redis so every process using the
// same API key shares one budget.
func WithRedis(client redis.UniversalClient) Option {
	return func(c *clientConfig) {
		c.redisClient = client
	}
}

// WithRedisURL is like WithRedis but connects to the given redis:// URL.
func WithRedisURL(url string) Option {
	return func(c *clientConfig) {
		c.redisURL = url
	}
}

// WithLogger sets the logger for retries, rate limit waits and response
// validation failures.
// Default: discard
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithDebug logs request diagnostics to stderr when no logger is set.
func WithDebug(debug bool) Option {
	return func(c *clientConfig) {
		c.debug = debug
	}
}

// WithMetrics registers Prometheus metrics for the client with registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = registerer
	}
}

// WithDeduplication collapses identical concurrent GET requests into a single
// HTTP call whose response is shared.
func WithDeduplication() Option {
	return func(c *clientConfig) {
		c.deduplicate = true
	}
}
