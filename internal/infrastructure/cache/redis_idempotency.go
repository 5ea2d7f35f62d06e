package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ahtrading/backend/internal/application/posting"
)

// RedisIdempotencyCache is a Redis-backed duplicate filter for submitted
// events. It is a cache, not the source of truth: the outbox table keeps the
// durable wire identity, and a cache miss only costs a store lookup.
type RedisIdempotencyCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyCache wraps an existing Redis client.
func NewRedisIdempotencyCache(client *redis.Client, keyPrefix string) *RedisIdempotencyCache {
	if keyPrefix == "" {
		keyPrefix = "outbox:seen:"
	}
	return &RedisIdempotencyCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *RedisIdempotencyCache) key(deviceID, eventID uuid.UUID) string {
	return c.keyPrefix + deviceID.String() + ":" + eventID.String()
}

// Seen reports whether the device already submitted this event ID.
func (c *RedisIdempotencyCache) Seen(ctx context.Context, deviceID, eventID uuid.UUID) (bool, error) {
	exists, err := c.client.Exists(ctx, c.key(deviceID, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency cache: %w", err)
	}
	return exists > 0, nil
}

// Remember records the wire identity with a TTL.
func (c *RedisIdempotencyCache) Remember(ctx context.Context, deviceID, eventID uuid.UUID, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, c.key(deviceID, eventID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to update idempotency cache: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisIdempotencyCache) Close() error {
	return c.client.Close()
}

var _ posting.IdempotencyCache = (*RedisIdempotencyCache)(nil)
