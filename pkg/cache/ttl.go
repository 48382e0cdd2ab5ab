// Package cache provides a thread-safe TTL cache with fetch-through support.
// It backs the shared per-user relationship-state cache so that multiple
// connections belonging to one user reuse a single upstream fetch.
package cache

import (
	"context"
	"sync"
	"time"
)

// entry represents one cached value.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *entry[V]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// TTL is a thread-safe cache that evicts items after a fixed time-to-live.
type TTL[V any] struct {
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	items           map[string]*entry[V]

	shutdown chan struct{}
	done     chan struct{}
}

// NewTTL creates a TTL cache and starts its background cleanup goroutine with
// the caller's context.
func NewTTL[V any](ctx context.Context, ttl, cleanupInterval time.Duration) *TTL[V] {
	c := &TTL[V]{
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*entry[V]),
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}
	go c.cleanup(ctx)
	return c
}

// Get retrieves a value by key, checking for expiration.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || e.isExpired() {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the configured TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = &entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes an entry by key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// GetOrFetch returns the cached value for key, calling fetch and caching its
// result on a miss. Concurrent misses for the same key may each call fetch;
// last write wins, which is acceptable for snapshot-style data.
func (c *TTL[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Size returns the current number of entries, expired ones included until the
// next cleanup pass.
func (c *TTL[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background cleanup goroutine.
func (c *TTL[V]) Close() {
	select {
	case <-c.shutdown:
	default:
		close(c.shutdown)
	}
	<-c.done
}

// cleanup periodically removes expired entries.
func (c *TTL[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTL[V]) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}
