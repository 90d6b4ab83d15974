package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets window-expiry tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	return store, clock
}

func TestMemoryStoreWindow(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore()

	// exactly maxRequests submissions within the window succeed
	for i := range 3 {
		d, err := store.Increment(ctx, "ops@fleet.co", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "submission %d should be allowed", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	// the (maxRequests+1)th submission in the same window is denied
	d, err := store.Increment(ctx, "ops@fleet.co", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Positive(t, d.RetryAfter)

	// after the window elapses the identity starts fresh
	clock.Advance(61 * time.Second)
	d, err = store.Increment(ctx, "ops@fleet.co", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestMemoryStoreIsolatesIdentities(t *testing.T) {
	ctx := context.Background()
	store, _ := newClockedStore()

	for range 3 {
		_, err := store.Increment(ctx, "a@fleet.co", 3, time.Minute)
		require.NoError(t, err)
	}

	d, err := store.Increment(ctx, "b@fleet.co", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "another identity must not share the window")
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store, _ := newClockedStore()

	for range 4 {
		_, err := store.Increment(ctx, "a@fleet.co", 3, time.Minute)
		require.NoError(t, err)
	}
	require.NoError(t, store.Reset(ctx, "a@fleet.co"))

	d, err := store.Increment(ctx, "a@fleet.co", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore()

	_, err := store.Increment(ctx, "old@fleet.co", 3, time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = store.Increment(ctx, "fresh@fleet.co", 3, time.Minute)
	require.NoError(t, err)

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

// Two concurrent submissions at the limit boundary must not both be
// admitted.
func TestMemoryStoreConcurrentBoundary(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const limit = 3
	const attempts = 20

	var wg sync.WaitGroup
	allowed := make(chan bool, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := store.Increment(ctx, "race@fleet.co", limit, time.Minute)
			require.NoError(t, err)
			allowed <- d.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	admitted := 0
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	assert.Equal(t, limit, admitted)
}

func TestLimiterDefaults(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter(store, 0, 0)

	ctx := context.Background()
	for i := range 3 {
		d, err := l.Allow(ctx, "x@y.co")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "submission %d", i+1)
	}
	d, err := l.Allow(ctx, "x@y.co")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "ops@fleet.co", NormalizeIdentity("  Ops@Fleet.CO "))
	assert.Equal(t, "", NormalizeIdentity("   "))
}
