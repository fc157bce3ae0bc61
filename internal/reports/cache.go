package reports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores rendered report payloads in Redis. Concurrent requests for the
// same key collapse into a single build via singleflight. Reports tolerate
// stale reads, so a cache hit within TTL is always acceptable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache builds Cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetOrBuild returns the cached JSON payload for key, or runs build once,
// caches the result and returns it. Cache failures degrade to building.
func (c *Cache) GetOrBuild(ctx context.Context, key string, build func(context.Context) (any, error)) ([]byte, error) {
	if c == nil || c.client == nil {
		return c.buildJSON(ctx, build)
	}

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		payload, err := c.buildJSON(ctx, build)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			// Reports still work without the cache.
			return payload, nil
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Invalidate drops a cached report.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) buildJSON(ctx context.Context, build func(context.Context) (any, error)) ([]byte, error) {
	v, err := build(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
