// Package monitor implements the stateful diagnostics monitors: throttled
// connection snapshots, latency probing with bounded history, and
// TTL-cached DNS and TLS certificate lookups. Each monitor owns its cache
// and rate-limit state and guards it with a mutex.
package monitor

import (
	"time"

	"github.com/diagtools/diag/pkg/types"
)

// cacheEntry pairs a cached value with the moment it was fetched. Entries
// are replaced wholesale on refresh, never mutated in place.
type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// ttlCache maps keys to values that expire after a fixed TTL. It carries
// no lock of its own; the owning monitor serializes access.
type ttlCache[K comparable, T any] struct {
	ttl     time.Duration
	entries map[K]cacheEntry[T]
}

func newTTLCache[K comparable, T any](ttl time.Duration) *ttlCache[K, T] {
	return &ttlCache[K, T]{
		ttl:     ttl,
		entries: make(map[K]cacheEntry[T]),
	}
}

// get returns the value for key if its entry is still fresh at now.
func (c *ttlCache[K, T]) get(key K, now time.Time) (T, bool) {
	entry, ok := c.entries[key]
	if !ok || now.Sub(entry.fetchedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return entry.value, true
}

// put stores value for key, stamped with now.
func (c *ttlCache[K, T]) put(key K, value T, now time.Time) {
	c.entries[key] = cacheEntry[T]{value: value, fetchedAt: now}
}

// stats counts all entries and the subset still fresh at now. Stale
// entries stay in the map until overwritten, so Size can exceed Entries.
func (c *ttlCache[K, T]) stats(now time.Time) types.CacheStats {
	fresh := 0
	for _, entry := range c.entries {
		if now.Sub(entry.fetchedAt) < c.ttl {
			fresh++
		}
	}
	return types.CacheStats{Size: len(c.entries), Entries: fresh}
}
