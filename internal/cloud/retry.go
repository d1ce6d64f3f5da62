package cloud

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// DefaultCallTimeout bounds a single provider or manager call. Distinct
// from the retry policy: a timed-out call may still be retried.
const DefaultCallTimeout = 2 * time.Minute

// DefaultMaxAttempts is the default attempt budget for destroy attempts and
// cleanup actions alike.
const DefaultMaxAttempts = 3

// RetryPolicy defines the attempt budget and backoff applied uniformly to
// coordinator destroy attempts and executor cleanup actions.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Backoff returns the exponential delay with jitter for a zero-based
// attempt number.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	return time.Duration(rand.Float64() * base)
}

// WithCallTimeout wraps ctx with the per-call timeout.
func WithCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultCallTimeout)
}

// Retry runs fn up to the policy's attempt budget, backing off between
// attempts, retrying only errors Retryable considers transient.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt < policy.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(policy.Backoff(attempt)):
			}
		}
	}
	return fmt.Errorf("%d attempts exhausted: %w", policy.MaxAttempts, lastErr)
}
