package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryTextCache is the single-process TextCache used when Redis is not
// configured.
type MemoryTextCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]memoryTextEntry
}

type memoryTextEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryTextCache(maxSize int) *MemoryTextCache {
	return &MemoryTextCache{
		maxSize: maxSize,
		items:   make(map[string]memoryTextEntry),
	}
}

func (c *MemoryTextCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryTextCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Crude bound: drop everything expired, then refuse nothing. The cache
	// holds short insight strings, so precision eviction is not worth it.
	if len(c.items) >= c.maxSize {
		now := time.Now()
		for k, e := range c.items {
			if now.After(e.expiresAt) {
				delete(c.items, k)
			}
		}
	}

	c.items[key] = memoryTextEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// CleanExpired sweeps expired entries and reports the count removed.
func (c *MemoryTextCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}
