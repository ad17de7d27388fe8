package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	// DefaultMaxSize is used when a cache is created with a non-positive size
	DefaultMaxSize = 1000
	// DefaultTTL is used when a cache is created with a non-positive TTL
	DefaultTTL = time.Hour
)

// entry is a cached value with its insertion time and time-to-live
type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Stats is a point-in-time view of cache counters
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	HitRate     float64 `json:"hit_rate"`
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for TTL tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Cache is a thread-safe key/value store with per-entry TTL and LRU eviction.
// All operations are serialized by a single mutex.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[K, *entry[V]]
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// New creates a cache holding at most maxSize entries
func New[K comparable, V any](maxSize int, defaultTTL time.Duration, opts ...Option) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	lru, err := simplelru.NewLRU[K, *entry[V]](maxSize, nil)
	if err != nil {
		// Only fails for non-positive sizes, which are normalized above
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Cache[K, V]{
		lru:        lru,
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

// Get returns the value for key. An expired entry is removed and counted as
// both an expiration and a miss. A hit promotes the entry to most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok {
		c.misses++
		return zero, false
	}

	if e.expired(c.now()) {
		c.lru.Remove(key)
		c.expirations++
		c.misses++
		return zero, false
	}

	// Get (not Peek) moves the entry to the front
	c.lru.Get(key)
	c.hits++
	return e.value, true
}

// Set stores value under key with the default TTL
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. A non-positive ttl selects the default.
// Inserting a new key into a full cache evicts the least recently used entry.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[V]{value: value, insertedAt: c.now(), ttl: ttl}
	if evicted := c.lru.Add(key, e); evicted {
		c.evictions++
	}
}

// Len returns the number of entries, including ones that have expired but
// were not looked up yet
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops all entries and resets every counter
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
	c.expirations = 0
}

// Purge drops all entries but keeps the counters
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Stats returns the current counters
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Size:        c.lru.Len(),
		MaxSize:     c.maxSize,
		HitRate:     hitRate,
	}
}
