package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/printmail/postgrid-go/internal/apierrors"
	"github.com/printmail/postgrid-go/internal/ratelimit"
)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 50
	DefaultUserAgent = "postgrid-go"
)

// Header names sent on every request.
const (
	HeaderAPIKey         = "x-api-key"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Config holds the API client configuration.
type Config struct {
	// BaseURL is the absolute URL every relative request path is joined onto.
	BaseURL string
	// APIKey is sent in the x-api-key header.
	APIKey string
	// HTTPClient replaces the session the client would otherwise build. It is
	// reused after Close.
	HTTPClient *http.Client
	// Timeout bounds a single transport attempt. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retry is the retry policy. Defaults to DefaultRetryConfig().
	Retry *RetryConfig
	// Limiter is the request budget. When nil a private in-memory limiter
	// admitting RateLimit requests per minute is created.
	Limiter *ratelimit.Limiter
	// OwnsLimiter marks Limiter as private to this client, so Close resets
	// its window. Always true when Limiter is nil.
	OwnsLimiter bool
	// RateLimit is used only when Limiter is nil. Defaults to DefaultRateLimit.
	RateLimit int
	// Logger receives retry, rate limit and schema diagnostics.
	Logger *slog.Logger
	// Metrics is optional.
	Metrics *Metrics
	// Deduplicate collapses identical concurrent GET requests into one.
	Deduplicate bool
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
}

// Client is the HTTP API client. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	timeout   time.Duration
	userAgent string
	retry     *RetryConfig
	limiter   *ratelimit.Limiter
	ownsLim   bool
	logger    *slog.Logger
	metrics   *Metrics
	validate  *validator.Validate
	dedup     bool
	group     singleflight.Group

	mu         sync.Mutex
	session    *http.Client
	httpClient *http.Client

	sleep             ratelimit.SleepFunc
	newIdempotencyKey func() string
}

// NewClient creates a new API client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		e := apierrors.Configuration("API key is required")
		e.Err = apierrors.ErrMissingAPIKey
		return nil, e
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || !base.IsAbs() || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, apierrors.Configuration("base URL %q is not an absolute http(s) URL", cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return nil, apierrors.Configuration("timeout must not be negative, got %v", cfg.Timeout)
	}
	if cfg.Retry != nil && cfg.Retry.MaxRetries < 0 {
		return nil, apierrors.Configuration("max retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Limiter == nil && cfg.RateLimit < 0 {
		return nil, apierrors.Configuration("rate limit must be positive, got %d", cfg.RateLimit)
	}

	c := &Client{
		baseURL:           base,
		apiKey:            cfg.APIKey,
		timeout:           cfg.Timeout,
		userAgent:         cfg.UserAgent,
		retry:             cfg.Retry,
		limiter:           cfg.Limiter,
		ownsLim:           cfg.OwnsLimiter,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		validate:          newValidator(),
		dedup:             cfg.Deduplicate,
		httpClient:        cfg.HTTPClient,
		sleep:             ratelimit.Sleep,
		newIdempotencyKey: uuid.NewString,
	}

	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.retry == nil {
		c.retry = DefaultRetryConfig()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.limiter == nil {
		limit := cfg.RateLimit
		if limit == 0 {
			limit = DefaultRateLimit
		}
		c.limiter = ratelimit.NewMemory(limit, ratelimit.WithLogger(c.logger))
		c.ownsLim = true
	}

	return c, nil
}

// Limiter returns the client's rate limiter so other clients can share it.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// BaseURL returns the URL relative paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// conn returns the open session, creating one if needed.
func (c *Client) conn() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		if c.httpClient != nil {
			c.session = c.httpClient
		} else {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			c.session = &http.Client{
				Transport: transport,
				Timeout:   c.timeout,
			}
		}
		c.logger.Debug("opened HTTP session", "base_url", c.baseURL.String())
	}
	return c.session
}

// Close releases the session's idle connections. It is safe to call more than
// once, and a later request opens a new session. A limiter owned by the client
// starts a fresh window; a shared one keeps its budget.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.CloseIdleConnections()
		c.session = nil
		c.logger.Debug("closed HTTP session")
	}
	if c.ownsLim {
		return c.limiter.Reset(context.Background())
	}
	return nil
}

// Do performs a request and decodes the response into result.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	_, err := c.Request(ctx, &Request{
		Method: method,
		Path:   path,
		Body:   body,
		Result: result,
	})
	return err
}

// Request performs one logical request, retrying transient failures.
//
// When req.Result is set the response is decoded into it and validated, and
// the returned map is nil. Otherwise the parsed response is returned: JSON
// objects as-is, other JSON values under "data", and non-JSON bodies under
// "text".
func (c *Client) Request(ctx context.Context, req *Request) (map[string]any, error) {
	method := strings.ToUpper(req.Method)
	if !allowedMethods[method] {
		return nil, fmt.Errorf("unsupported HTTP method %q", req.Method)
	}

	u, err := resolveURL(c.baseURL, req.Path, req.Params)
	if err != nil {
		return nil, err
	}
	p, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	header := c.headers(method, req.Headers, p)

	var res *rawResponse
	if method == http.MethodGet && c.dedup && p == nil {
		res, err = c.shared(ctx, method+" "+u.String(), func() (*rawResponse, error) {
			return c.execute(ctx, method, u, p, header)
		})
	} else {
		res, err = c.execute(ctx, method, u, p, header)
	}
	if err != nil {
		c.metrics.RecordError(method, apierrors.KindOf(err))
		c.logger.DebugContext(ctx, "request failed", "method", method, "path", u.Path, "error", err)
		return nil, err
	}

	out, err := c.decode(res, req.Result)
	if err != nil {
		c.metrics.RecordError(method, apierrors.KindOf(err))
		c.logger.WarnContext(ctx, "response did not match the expected schema",
			"method", method, "path", u.Path, "error", err)
		return nil, err
	}
	return out, nil
}

func (c *Client) headers(method string, extra http.Header, p *payload) http.Header {
	h := make(http.Header)
	h.Set(HeaderAPIKey, c.apiKey)
	h.Set("Accept", "application/json")
	h.Set("User-Agent", c.userAgent)
	if p != nil {
		h.Set("Content-Type", p.contentType)
	}
	for k, vs := range extra {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	if method == http.MethodPost && h.Get(HeaderIdempotencyKey) == "" {
		h.Set(HeaderIdempotencyKey, c.newIdempotencyKey())
	}
	return h
}

// shared runs fn once for all concurrent callers with the same key. The
// request runs under the first caller's context; every caller stops waiting
// when its own context ends.
func (c *Client) shared(ctx context.Context, key string, fn func() (*rawResponse, error)) (*rawResponse, error) {
	leader := false
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		return fn()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if !leader {
			c.metrics.RecordDedupHit()
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*rawResponse), nil
	}
}

func (c *Client) execute(ctx context.Context, method string, u *url.URL, p *payload, header http.Header) (*rawResponse, error) {
	ex := Executor{
		Policy: c.retry,
		Sleep:  c.sleep,
		OnRetry: func(ctx context.Context, next Attempt) {
			c.metrics.RecordRetry(method, next.Err.Kind)
			c.logger.WarnContext(ctx, "retrying request",
				"method", method,
				"path", u.Path,
				"attempt", next.Index+1,
				"max_attempts", c.retry.MaxRetries+1,
				"wait", next.Wait,
				"kind", next.Err.Kind,
				"status", next.Err.StatusCode,
			)
		},
	}
	return Execute(ctx, ex, func(ctx context.Context, _ Attempt) (*rawResponse, error) {
		return c.attempt(ctx, method, u, p, header)
	})
}

// attempt makes one transport attempt after acquiring a rate limit slot.
func (c *Client) attempt(ctx context.Context, method string, u *url.URL, p *payload, header http.Header) (*rawResponse, error) {
	waited, err := c.limiter.Acquire(ctx)
	if waited > 0 {
		c.metrics.RecordRateLimitWait(waited)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierrors.Network(fmt.Errorf("rate limiter: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), p.reader())
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = header.Clone()

	start := time.Now()
	resp, err := c.conn().Do(httpReq)
	if err != nil {
		c.metrics.RecordAttempt(method, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierrors.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.metrics.RecordAttempt(method, resp.StatusCode, elapsed)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierrors.Network(fmt.Errorf("read response body: %w", err))
	}

	c.logger.DebugContext(ctx, "api response",
		"method", method,
		"path", u.Path,
		"status", resp.StatusCode,
		"duration", elapsed,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierrors.Classify(resp.StatusCode, resp.Header, body)
	}

	c.observe(ctx, resp.Header)
	return &rawResponse{
		statusCode: resp.StatusCode,
		header:     resp.Header,
		body:       body,
	}, nil
}

// observe applies the server's rate limit headers to the limiter.
func (c *Client) observe(ctx context.Context, h http.Header) {
	if err := c.limiter.Observe(ctx, ratelimit.ParseHeaders(h)); err != nil {
		c.logger.WarnContext(ctx, "failed to apply rate limit headers", "error", err)
		return
	}
	if c.metrics == nil {
		return
	}
	if remaining, err := c.limiter.Remaining(ctx); err == nil {
		c.metrics.SetRateLimitRemaining(remaining)
	}
}
