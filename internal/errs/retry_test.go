package errs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return New(KindTransientNetwork, "test.op", errors.New("boom"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryStopsImmediatelyOnNonRetryable(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig, func(ctx context.Context) error {
		attempts++
		return New(KindInvalidInput, "test.op", errors.New("bad input"))
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetryExhaustsMaxAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return New(KindTransientNetwork, "test.op", errors.New("still failing"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryHonorsRateLimitHint(t *testing.T) {
	attempts := 0
	start := time.Now()
	// InitialDelay is huge, but the rate-limit hint of 1 second should
	// override it rather than blocking for an hour.
	Retry(context.Background(), RetryConfig{MaxAttempts: 2, InitialDelay: time.Hour, MaxDelay: time.Hour}, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return &Error{Kind: KindRateLimited, Op: "test.op", RetryAfterSeconds: 1}
		}
		return nil
	})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("expected retry to honor the short rate-limit hint instead of the huge default delay, took %v", elapsed)
	}
}

func TestIsAndRetryable(t *testing.T) {
	err := New(KindRateLimited, "op", nil)
	if !Is(err, KindRateLimited) {
		t.Fatal("expected Is to match kind")
	}
	if !Retryable(err) {
		t.Fatal("expected rate limited errors to be retryable")
	}
	if Retryable(New(KindInvalidInput, "op", nil)) {
		t.Fatal("expected invalid input errors to not be retryable")
	}
}
