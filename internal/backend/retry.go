package backend

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, doubling the wait before each retry
// starting from initialDelay. It returns nil on the first success and the
// last error once the attempts are spent. Calls are not retried
// automatically anywhere in this package; callers opt in per operation.
func Retry(ctx context.Context, attempts int, initialDelay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := initialDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
