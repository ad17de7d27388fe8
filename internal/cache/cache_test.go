package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for TTL tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCacheTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string, string](10, time.Minute, WithClock(clock.Now))

	c.Set("k", "v")
	clock.Advance(30 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok, "entry should still be fresh")
	assert.Equal(t, "v", v)

	clock.Advance(31 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should have expired")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Expirations)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 0, stats.Size, "expired entry is removed")
}

func TestCachePerEntryTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, time.Hour, WithClock(clock.Now))

	c.SetWithTTL("short", 1, time.Second)
	c.Set("long", 2)

	clock.Advance(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestCacheLRUEviction(t *testing.T) {
	c := New[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes least recently used
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCacheUpdateExistingKeyDoesNotEvict(t *testing.T) {
	c := New[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	assert.Equal(t, int64(0), c.Stats().Evictions)
	assert.Equal(t, 2, c.Len())

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestCacheClearResetsCounters(t *testing.T) {
	c := New[string, int](1, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("b")
	c.Get("a")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, Stats{MaxSize: 1}, stats)
}

func TestCachePurgeKeepsCounters(t *testing.T) {
	c := New[string, int](10, time.Minute)
	c.Set("a", 1)
	c.Get("a")

	c.Purge()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestCacheDefaults(t *testing.T) {
	c := New[int, int](0, 0)
	assert.Equal(t, DefaultMaxSize, c.Stats().MaxSize)
	assert.Equal(t, DefaultTTL, c.defaultTTL)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[string, int](50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Size, 50)
	assert.Equal(t, int64(8*200), stats.Hits+stats.Misses)
}
