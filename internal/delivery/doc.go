// Package delivery tracks mail pieces through production by polling their
// status until a wanted state is reached.
//
// # Polling
//
// A [Poller] calls a [Check] repeatedly. The interval starts at
// [PollingInitialInterval] and grows by [PollingBackoffMultiplier] up to
// [PollingMaxBackoff] while the reported status stays the same. Any change of
// status resets the interval. Every wait gets up to [PollingJitterFactor] of
// random jitter so that many waiters do not poll in lockstep.
//
//	p := delivery.NewPoller(delivery.Config{Logger: logger})
//	err := p.Wait(ctx, func(ctx context.Context) (string, bool, error) {
//	    letter, err := letters.Get(ctx, id)
//	    if err != nil {
//	        return "", false, err
//	    }
//	    return letter.Status, letter.Status == "completed", nil
//	})
//
// # Errors
//
// Errors the API client would retry on its own (rate limits, server and
// network failures) are logged and polling continues. Any other error ends
// the wait.
package delivery
