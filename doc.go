// Package postgrid provides a Go client for the PostGrid Print & Mail API.
//
// The client manages contacts, letters, postcards, templates, trackers and
// webhooks. Every call goes through one request engine that keeps a fixed
// per-minute request budget, retries transient failures and validates
// responses before returning typed results.
//
// Basic usage:
//
//	client, err := postgrid.New("test_sk_...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	contact, err := client.Contacts.Create(ctx, postgrid.ContactParams{
//	    FirstName:    "Ada",
//	    AddressLine1: "20-20 Bay St",
//	    City:         "Toronto",
//	    CountryCode:  "CA",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	letter, err := client.Letters.Create(ctx, postgrid.LetterParams{
//	    To:       postgrid.ContactID(contact.ID),
//	    From:     postgrid.ContactID("contact_sender"),
//	    Template: "template_123",
//	})
//
// # Configuration
//
// [NewFromEnv] and [Default] read POSTGRID_API_KEY, POSTGRID_BASE_URL,
// POSTGRID_TIMEOUT, POSTGRID_MAX_RETRIES, POSTGRID_RATE_LIMIT,
// POSTGRID_REDIS_URL and POSTGRID_DEBUG from the environment, a .env file, or
// the YAML file named by POSTGRID_CONFIG_FILE. [Default] returns the same
// client on every call.
//
// # Rate Limiting and Retries
//
// Each client admits at most the configured number of requests per minute
// (50 by default) and blocks callers until the window resets. Clients can
// share one budget with [WithRateLimiter], or across processes with
// [WithRedis]. Server and network failures are retried with exponential
// backoff (1s, 2s, 4s); 429 responses wait for Retry-After. Authentication
// and validation failures are returned immediately.
//
// # Errors
//
// Failed requests return an [*Error] carrying a [Kind]. Use errors.Is with
// the sentinels ([ErrUnauthorized], [ErrNotFound], [ErrRateLimited], ...) or
// errors.As to inspect the status code and upstream message.
package postgrid
