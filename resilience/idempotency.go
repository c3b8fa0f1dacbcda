package resilience

import (
	"sync"
	"time"
)

// IdempotencyCache stores operation results keyed by a caller-supplied
// idempotency token. Entries are created at first successful completion
// and reused by any later call presenting the same key before expiry.
type IdempotencyCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*idempotencyEntry
}

type idempotencyEntry struct {
	value     any
	expiresAt time.Time
}

// NewIdempotencyCache creates a cache with the given TTL.
// A non-positive TTL defaults to one hour.
func NewIdempotencyCache(ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IdempotencyCache{
		ttl:     ttl,
		entries: make(map[string]*idempotencyEntry),
	}
}

// Get retrieves a cached result. Returns (nil, false) on miss or expiry.
func (c *IdempotencyCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		// Expired - clean up lazily
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores a result under the key for the cache TTL.
func (c *IdempotencyCache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = &idempotencyEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Delete removes a cached result. Idempotent - no effect on miss.
func (c *IdempotencyCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *IdempotencyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
