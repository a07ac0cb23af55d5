package web

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLimiter_AcquireRelease(t *testing.T) {
	limiter := NewJobLimiter(2, time.Second)
	ctx := context.Background()

	assert.Equal(t, 0, limiter.ActiveCount())
	assert.Equal(t, 2, limiter.Available())

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))
	assert.Equal(t, 2, limiter.ActiveCount())
	assert.Equal(t, 0, limiter.Available())

	limiter.Release()
	assert.Equal(t, 1, limiter.ActiveCount())
	assert.Equal(t, 1, limiter.Available())

	limiter.Release()
	assert.Equal(t, 0, limiter.ActiveCount())
}

func TestJobLimiter_Timeout(t *testing.T) {
	limiter := NewJobLimiter(1, 20*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	assert.False(t, limiter.TryAcquire())

	err := limiter.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTooManyJobs)
	assert.EqualValues(t, 1, limiter.Status().Rejected)
}

func TestJobLimiter_ContextCancelled(t *testing.T) {
	limiter := NewJobLimiter(1, time.Minute)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, limiter.Acquire(ctx), context.Canceled)
	assert.Zero(t, limiter.Status().Rejected, "cancellation is not a rejection")
}

func TestJobLimiter_Defaults(t *testing.T) {
	limiter := NewJobLimiter(0, 0)
	status := limiter.Status()
	assert.Equal(t, DefaultMaxConcurrentJobs, status.MaxConcurrent)
	assert.Equal(t, DefaultMaxConcurrentJobs, status.Available)
	assert.Equal(t, DefaultMaxWaitTime, limiter.maxWait)
}

func TestJobLimiter_WaitForDrain(t *testing.T) {
	limiter := NewJobLimiter(3, time.Second)
	assert.NoError(t, limiter.WaitForDrain(context.Background()), "idle limiter drains immediately")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		require.True(t, limiter.TryAcquire())
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(30 * time.Millisecond)
			limiter.Release()
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, limiter.WaitForDrain(ctx))
	assert.Equal(t, 0, limiter.ActiveCount())
	wg.Wait()
}

func TestJobLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewJobLimiter(1, time.Second)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.WaitForDrain(ctx), context.DeadlineExceeded)
}

func TestJobLimiter_FreeSlotDoesNotWait(t *testing.T) {
	limiter := NewJobLimiter(1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, limiter.Acquire(ctx), "a free slot is taken before the context is consulted")
	assert.Equal(t, 1, limiter.ActiveCount())
	limiter.Release()
}
