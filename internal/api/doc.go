// Package api is the request engine behind the PostGrid client. It owns the
// HTTP session, enforces the client-side rate limit, retries transient
// failures and decodes responses.
//
// # Request Lifecycle
//
// Every logical request runs through [Execute]. Each attempt first acquires a
// slot from the shared [ratelimit.Limiter], then sends the request. A 2xx
// response updates the limiter from the X-RateLimit-Remaining and
// X-RateLimit-Reset headers and is decoded. Any other outcome is classified by
// [apierrors.Classify] and handed to [RetryConfig.NextWait]:
//
//   - 401 and other 4xx responses fail immediately.
//   - 429 waits for Retry-After (5s when absent) and retries.
//   - 5xx responses and transport failures back off exponentially (1s, 2s, 4s).
//
// A logical request makes at most MaxRetries+1 attempts. POST requests carry
// one Idempotency-Key for all of them.
//
// # Responses
//
// When [Request.Result] is set the body is decoded into it and checked
// against its validate struct tags; a mismatch is a validation error and is
// not retried. Otherwise [Client.Request] returns the parsed body as a map.
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use. Multiple goroutines may call
// methods on a single Client simultaneously.
package api
