package postgrid

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/printmail/postgrid-go/internal/api"
	"github.com/printmail/postgrid-go/internal/apierrors"
	"github.com/printmail/postgrid-go/internal/config"
	"github.com/printmail/postgrid-go/internal/ratelimit"
)

// Request describes a raw API request for endpoints without a typed wrapper.
type Request = api.Request

// RateLimiter is a fixed-window request budget that can be shared between
// clients.
type RateLimiter = ratelimit.Limiter

// NewRateLimiter creates an in-process budget admitting requestsPerMinute
// requests per minute. Values below one admit one request per minute.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return ratelimit.NewMemory(requestsPerMinute)
}

// NewRedisRateLimiter creates a budget stored in Redis under a key derived
// from apiKey, shared by every process using the same key.
func NewRedisRateLimiter(client redis.UniversalClient, apiKey string, requestsPerMinute int) *RateLimiter {
	store := ratelimit.NewRedisStore(client, ratelimit.KeyForAPIKey(apiKey), requestsPerMinute, ratelimit.Window)
	return ratelimit.New(store)
}

// Client is the PostGrid Print & Mail API client. It is safe for concurrent
// use.
type Client struct {
	apiClient *api.Client

	Contacts               *ContactService
	Letters                *LetterService
	Postcards              *PostcardService
	Templates              *TemplateService
	TemplateEditorSessions *TemplateEditorSessionService
	Trackers               *TrackerService
	Webhooks               *WebhookService
}

// New creates a new client with the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newClient(apiKey, cfg)
}

// NewFromEnv creates a client from the process configuration: POSTGRID_*
// environment variables, a .env file and the optional POSTGRID_CONFIG_FILE.
// Options override the loaded values.
func NewFromEnv(opts ...Option) (*Client, error) {
	loaded, err := config.Load()
	if err != nil {
		return nil, err
	}

	cfg := defaultClientConfig()
	cfg.applyConfig(loaded)
	for _, opt := range opts {
		opt(cfg)
	}
	return newClient(loaded.APIKey, cfg)
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
	defaultErr    error
)

// Default returns the process-wide client built by NewFromEnv. Every call
// returns the same client, so all its users share one session and one rate
// limit budget.
func Default() (*Client, error) {
	defaultOnce.Do(func() {
		defaultClient, defaultErr = NewFromEnv()
	})
	return defaultClient, defaultErr
}

func newClient(apiKey string, cfg *clientConfig) (*Client, error) {
	settings := config.Config{
		APIKey:     apiKey,
		BaseURL:    cfg.baseURL,
		Timeout:    cfg.timeout,
		MaxRetries: cfg.retries,
		RateLimit:  cfg.rateLimit,
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		if cfg.debug {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		} else {
			logger = slog.New(slog.DiscardHandler)
		}
	}

	limiter, err := buildLimiter(apiKey, cfg, logger)
	if err != nil {
		return nil, err
	}

	retry := api.DefaultRetryConfig()
	retry.MaxRetries = cfg.retries
	if cfg.retryBaseDelay > 0 {
		retry.BaseDelay = cfg.retryBaseDelay
	}
	if cfg.retryMultiplier > 0 {
		retry.Multiplier = cfg.retryMultiplier
	}
	retry.MaxDelay = cfg.retryMaxDelay

	var metrics *api.Metrics
	if cfg.registerer != nil {
		metrics = api.NewMetrics(cfg.registerer)
	}

	apiClient, err := api.NewClient(api.Config{
		BaseURL:     cfg.baseURL,
		APIKey:      apiKey,
		HTTPClient:  cfg.httpClient,
		Timeout:     cfg.timeout,
		Retry:       retry,
		Limiter:     limiter,
		OwnsLimiter: cfg.limiter == nil,
		Logger:      logger,
		Metrics:     metrics,
		Deduplicate: cfg.deduplicate,
		UserAgent:   cfg.userAgent,
	})
	if err != nil {
		return nil, err
	}

	return newClientWithAPI(apiClient), nil
}

func newClientWithAPI(apiClient *api.Client) *Client {
	c := &Client{apiClient: apiClient}
	c.Contacts = &ContactService{api: apiClient}
	c.Letters = &LetterService{api: apiClient}
	c.Postcards = &PostcardService{api: apiClient}
	c.Templates = &TemplateService{api: apiClient}
	c.TemplateEditorSessions = &TemplateEditorSessionService{api: apiClient}
	c.Trackers = &TrackerService{api: apiClient}
	c.Webhooks = &WebhookService{api: apiClient}
	return c
}

// buildLimiter picks the rate limit budget: an explicit limiter, then Redis,
// then a private in-memory window.
func buildLimiter(apiKey string, cfg *clientConfig, logger *slog.Logger) (*RateLimiter, error) {
	if cfg.limiter != nil {
		return cfg.limiter, nil
	}

	rdb := cfg.redisClient
	if rdb == nil && cfg.redisURL != "" {
		opts, err := redis.ParseURL(cfg.redisURL)
		if err != nil {
			return nil, apierrors.Configuration("redis URL: %v", err)
		}
		rdb = redis.NewClient(opts)
	}

	if rdb != nil {
		store := ratelimit.NewRedisStore(rdb, ratelimit.KeyForAPIKey(apiKey), cfg.rateLimit, ratelimit.Window)
		return ratelimit.New(store, ratelimit.WithLogger(logger)), nil
	}
	return ratelimit.NewMemory(cfg.rateLimit, ratelimit.WithLogger(logger)), nil
}

// RateLimiter returns the client's budget so other clients can share it
// through WithRateLimiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.apiClient.Limiter()
}

// Request performs a raw request through the client's rate limiting, retry
// and validation pipeline.
func (c *Client) Request(ctx context.Context, req *Request) (map[string]any, error) {
	return c.apiClient.Request(ctx, req)
}

// Close releases idle connections and, unless the rate limiter came from
// WithRateLimiter, starts a fresh rate limit window. It is safe to call more
// than once; the client opens a new session on its next request.
func (c *Client) Close() error {
	return c.apiClient.Close()
}
