package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTextCache stores insight text in Redis so generated text survives
// restarts and is shared across API instances.
type RedisTextCache struct {
	client *redis.Client
}

func NewRedisTextCache(addr string) *RedisTextCache {
	return &RedisTextCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *RedisTextCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisTextCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisTextCache) Close() error {
	return c.client.Close()
}
