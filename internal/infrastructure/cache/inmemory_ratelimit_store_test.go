package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimitStore_Increment(t *testing.T) {
	store := NewInMemoryRateLimitStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	t.Run("counts hits within a window", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			count, resetAt, err := store.Increment(ctx, "10.0.0.1", 15*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, count)
			assert.Equal(t, base.Add(15*time.Minute), resetAt)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		count, _, err := store.Increment(ctx, "10.0.0.2", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("window resets after expiry", func(t *testing.T) {
		now = base.Add(15 * time.Minute)
		count, resetAt, err := store.Increment(ctx, "10.0.0.1", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, now.Add(15*time.Minute), resetAt)
	})
}

func TestInMemoryRateLimitStore_Cleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	store.now = func() time.Time { return now }

	_, _, _ = store.Increment(ctx, "short", time.Second)
	_, _, _ = store.Increment(ctx, "long", time.Hour)
	assert.Equal(t, 2, store.Size())

	now = now.Add(2 * time.Second)
	store.cleanup()

	assert.Equal(t, 1, store.Size(), "expired window should be evicted")
}

func TestInMemoryRateLimitStore_Concurrent(t *testing.T) {
	store := NewInMemoryRateLimitStore(0)
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Increment(ctx, "burst", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := store.Increment(ctx, "burst", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}

func TestInMemoryRateLimitStore_CloseIdempotent(t *testing.T) {
	store := NewInMemoryRateLimitStore(time.Millisecond)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
