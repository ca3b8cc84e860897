// Package cache provides a small TTL cache used to absorb bursts of
// near-simultaneous read requests (status, diffs, repository scans) that
// would otherwise each spawn a git subprocess.
package cache

import (
	"strings"
	"sync"
	"time"
)

type record[V any] struct {
	data     V
	storedAt time.Time
}

// Cache is a key-to-value store with expiry-on-read. Entries older than the
// TTL are logically absent: they are deleted lazily on the next Get of that
// key, never by a background sweeper. Safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]record[V]
	now     func() time.Time
}

// New creates a cache whose entries expire ttl after being set.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]record[V]),
		now:     time.Now,
	}
}

// NewWithClock creates a cache with an injectable clock for tests.
func NewWithClock[V any](ttl time.Duration, now func() time.Time) *Cache[V] {
	c := New[V](ttl)
	c.now = now
	return c
}

// Get returns the value for key if present and not expired. An expired
// entry is evicted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	if c.now().Sub(rec.storedAt) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}

	return rec.data, true
}

// Set stores a value, resetting its expiry window.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = record[V]{data: value, storedAt: c.now()}
}

// Delete removes a key. Missing keys are a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteByPrefix removes every key with the given prefix, leaving others
// untouched. Used to invalidate all cached reads for one repository.
func (c *Cache[V]) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]record[V])
}

// Len returns the number of stored entries, counting expired ones that
// have not yet been evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
