package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/application/posting"
)

type seenEntry struct {
	expiresAt time.Time
}

// InMemoryIdempotencyCache is a map-backed duplicate filter for
// single-instance deployments and tests.
type InMemoryIdempotencyCache struct {
	mu        sync.RWMutex
	entries   map[string]seenEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyCache creates the cache and starts a background
// goroutine that evicts expired entries.
func NewInMemoryIdempotencyCache() *InMemoryIdempotencyCache {
	c := &InMemoryIdempotencyCache{
		entries:  make(map[string]seenEntry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

func cacheKey(deviceID, eventID uuid.UUID) string {
	return deviceID.String() + ":" + eventID.String()
}

// Seen reports whether the device already submitted this event ID.
func (c *InMemoryIdempotencyCache) Seen(ctx context.Context, deviceID, eventID uuid.UUID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[cacheKey(deviceID, eventID)]
	if !exists || time.Now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Remember records the wire identity with a TTL.
func (c *InMemoryIdempotencyCache) Remember(ctx context.Context, deviceID, eventID uuid.UUID, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(deviceID, eventID)] = seenEntry{
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryIdempotencyCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *InMemoryIdempotencyCache) evictExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (c *InMemoryIdempotencyCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

var _ posting.IdempotencyCache = (*InMemoryIdempotencyCache)(nil)
