package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) port.Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("client.Get: %w", err)
	}

	return value, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("client.Del: %w", err)
	}
	return nil
}

func (c *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("iter.Err: %w", err)
	}

	if err := c.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("c.Delete: %w", err)
	}
	return nil
}

func (c *redisCache) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	value, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("client.Incr: %w", err)
	}

	// First increment created the key, attach its lifetime.
	if value == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return value, fmt.Errorf("client.Expire: %w", err)
		}
	}

	return value, nil
}
