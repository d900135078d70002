// Package cache provides the time-to-live response cache used by the weather
// client to avoid redundant network calls within a freshness window.
package cache

import (
	"sync"
	"time"

	"skysense/internal/types"
)

// entry is a cached value with its absolute expiry.
type entry[V any] struct {
	value  V
	expiry time.Time
}

// ResponseCache maps request signatures to cached values. Expiry is lazy:
// entries are checked against the clock when read and removed once expired.
type ResponseCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	clock   types.Clock
}

// New creates an empty cache. A nil clock uses the system clock.
func New[V any](clock types.Clock) *ResponseCache[V] {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &ResponseCache[V]{
		entries: make(map[string]entry[V]),
		clock:   clock,
	}
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *ResponseCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiry: c.clock.Now().Add(ttl)}
}

// Get returns the value for key if present and fresh. An expired entry is
// removed and reported absent.
func (c *ResponseCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.clock.Now().After(e.expiry) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Has reports whether a fresh entry exists for key.
func (c *ResponseCache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *ResponseCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *ResponseCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, including expired entries that
// have not been read since expiring.
func (c *ResponseCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (c *ResponseCache[V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
