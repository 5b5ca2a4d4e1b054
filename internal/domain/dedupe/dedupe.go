// Package dedupe remembers which (user, day) pairs are already finalized so
// repeated reads can skip the history lookup.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/pulse/pkg/metrics"
)

// Cache is a set of finalized keys. It is an optimization only; the store's
// unique index remains the guard against duplicate entries.
type Cache interface {
	// Seen reports whether key was recorded.
	Seen(ctx context.Context, key string) bool

	// Record adds key. It returns true if key was already present.
	Record(ctx context.Context, key string) bool

	Size() int64
}

// Key builds the cache key for a user's finalized day.
func Key(userID, day string) string {
	return userID + "@" + day
}

// inMemoryCache keeps keys in insertion order. When bounded (maxSize > 0)
// the oldest key is evicted first; otherwise it grows without limit.
type inMemoryCache struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
	size    atomic.Int64
}

// NewInMemory creates an in-memory finalized-day cache.
func NewInMemory(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.seen = make(map[string]*list.Element)
	c.order = list.New()
	return c
}

func (c *inMemoryCache) Seen(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[key]
	return ok
}

func (c *inMemoryCache) Record(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[key]; ok {
		return true
	}
	if c.maxSize > 0 && len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[key] = c.order.PushFront(key)
	c.size.Add(1)
	metrics.UpdateFinalizedCacheSize(c.size.Load())
	return false
}

// evictOldest must be called with c.mu held.
func (c *inMemoryCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.seen, el.Value.(string))
	c.size.Add(-1)
}

func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
