// Package cache provides the in-process LRU cache used for analytics
// responses and a pluggable text cache (memory or Redis) for generated
// insight text.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the generic in-process cache interface.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// TextCache caches strings with a TTL, possibly out of process. Get's
// second return reports a hit.
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Text cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// NewTextCache selects a text cache backend from configuration.
func NewTextCache(backend, redisAddr string) (TextCache, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryTextCache(256), nil
	case BackendRedis:
		if redisAddr == "" {
			return nil, fmt.Errorf("redis cache backend requires an address")
		}
		return NewRedisTextCache(redisAddr), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// Cleaner is implemented by caches that support expired-entry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins the periodic sweep in a background goroutine.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range m.caches {
				c.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
