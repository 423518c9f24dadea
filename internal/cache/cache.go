// Package cache provides an explicit keyed result cache used to memoize
// normalization output and per-country anomaly results. Keys combine the
// dataset fingerprint with the parameters of the computation, so changing
// either naturally misses and recomputes.
package cache

import (
	"sync"
	"time"
)

// entry is a cached value with its expiry bookkeeping.
type entry[V any] struct {
	value    V
	cachedAt time.Time
	expires  time.Time
	hitCount int
}

// Cache is a TTL-bounded key→value cache safe for concurrent use.
type Cache[V any] struct {
	entries   map[string]entry[V]
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
}

// New creates a cache with the given entry TTL and maximum size.
// A maxSize of 0 disables storage entirely.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached value. Expired entries count as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expires) {
		c.missCount++
		var zero V
		return zero, false
	}

	e.hitCount++
	c.entries[key] = e
	c.hitCount++

	return e.value, true
}

// Set stores a value under key, evicting the oldest entry when full.
func (c *Cache[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry[V]{
		value:    value,
		cachedAt: time.Now(),
		expires:  time.Now().Add(c.ttl),
	}
}

// Invalidate removes a single entry.
func (c *Cache[V]) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry. Called when the input dataset changes.
func (c *Cache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[V]) Stats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	totalRequests := c.hitCount + c.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(c.hitCount) / float64(totalRequests)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"max_size":    c.maxSize,
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   hitRatio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
