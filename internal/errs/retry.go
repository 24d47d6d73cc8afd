package errs

import (
	"context"
	"time"
)

// RetryConfig controls Retry's backoff schedule.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
}

// DefaultRetryConfig mirrors the calendar/carrier client backoff schedule:
// 1s, 2s, 4s capped at 30s, three attempts total.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
}

// Retry calls fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is exhausted. On a KindRateLimited error carrying a
// RetryAfterSeconds hint, that hint overrides the computed backoff delay.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := delay
		if typed, ok := lastErr.(*Error); ok && typed.Kind == KindRateLimited && typed.RetryAfterSeconds > 0 {
			wait = time.Duration(typed.RetryAfterSeconds) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
