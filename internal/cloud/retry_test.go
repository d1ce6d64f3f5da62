package cloud

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: still busy", ErrDependencyBlocked)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		return fmt.Errorf("%w: no access", ErrPermissionDenied)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(2), func() error {
		calls++
		return fmt.Errorf("%w: still busy", ErrDependencyBlocked)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyBlocked)
	assert.Equal(t, 2, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, func() error {
		return fmt.Errorf("%w: busy", ErrDependencyBlocked)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffIsBounded(t *testing.T) {
	policy := DefaultRetryPolicy()
	for attempt := 0; attempt < 10; attempt++ {
		d := policy.Backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, policy.MaxDelay)
	}
}

func TestDryRunSkipsMutations(t *testing.T) {
	fake := NewFake()
	fake.Interfaces["subnet-1"] = []ENI{{ID: "eni-1", Status: "available"}}
	fake.Buckets["demo-logs"] = BucketCensus{Versions: 2, DeleteMarkers: 1}

	dry := NewDryRun(fake)

	require.NoError(t, dry.DeleteInterface(context.Background(), "eni-1"))
	assert.Len(t, fake.Interfaces["subnet-1"], 1)

	n, err := dry.PurgeBucket(context.Background(), "demo-logs")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, fake.Buckets["demo-logs"].Empty())

	// Reads pass through to the real inventory.
	enis, err := dry.ListInterfaces(context.Background(), "subnet-1")
	require.NoError(t, err)
	assert.Len(t, enis, 1)

	for _, call := range fake.Calls {
		assert.NotEqual(t, "DeleteInterface/eni-1", call)
		assert.NotEqual(t, "PurgeBucket/demo-logs", call)
	}
}
