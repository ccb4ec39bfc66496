// Package retry provides backoff strategies and a bounded retry loop.
//
// The loop is used by the rate-limit governor to retry throttled table calls:
// the governor supplies a RetryIf that only accepts throttle errors and a
// Sleep hook so tests can drive time with a fake clock.
//
//	err := retry.Do(func() error {
//		return client.UpdateRange(ctx, ws, "A2", "P2", rows)
//	}, &retry.Config{
//		MaxAttempts: 4,
//		Backoff:     retry.NewBackoff("fixed", 65*time.Second, 0),
//		RetryIf:     errors.IsThrottle,
//	})
package retry
