package tmdb

import (
	"sync"
	"time"
)

// sweepEvery is how many writes pass between sweeps of expired entries.
const sweepEvery = 100

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a small expiring map. Expired entries are dropped on read and
// swept periodically on write.
type ttlCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]cacheEntry[V]
	ttl     time.Duration
	writes  int
	now     func() time.Time
}

func newTTLCache[K comparable, V any](ttl time.Duration) *ttlCache[K, V] {
	return &ttlCache[K, V]{
		entries: make(map[K]cacheEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *ttlCache[K, V]) get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().Before(e.expiresAt) {
		return e.value, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock; a fresh value may have landed meanwhile.
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.expiresAt) {
			return e.value, true
		}
		delete(c.entries, key)
	}
	return zero, false
}

func (c *ttlCache[K, V]) set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.writes++
	if c.writes%sweepEvery == 0 {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

func (c *ttlCache[K, V]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
