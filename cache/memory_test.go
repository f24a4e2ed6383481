package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulpecula-social/auth/cache"
)

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMemoryGetMissing(t *testing.T) {
	store := cache.NewMemory()

	_, err := store.Get(context.Background(), "absent")
	assert.True(t, cache.IsNotFound(err))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := cache.NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	now = now.Add(time.Minute + time.Second)

	_, err := store.Get(ctx, "k")
	assert.True(t, cache.IsNotFound(err))
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := cache.NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", "v", 0))

	now = now.Add(240 * time.Hour)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMemorySetIfExists(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()

	ok, err := store.SetIfExists(ctx, "k", "v", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "must not create missing keys")

	_, err = store.Get(ctx, "k")
	assert.True(t, cache.IsNotFound(err))

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	ok, err = store.SetIfExists(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestMemoryTake(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	got, err := store.Take(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = store.Take(ctx, "k")
	assert.True(t, cache.IsNotFound(err))
}

func TestMemoryTakeConcurrent(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	const workers = 32
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, "k"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one taker must win")
}

func TestMemoryDeleteAbsent(t *testing.T) {
	store := cache.NewMemory()
	assert.NoError(t, store.Delete(context.Background(), "absent"))
}
