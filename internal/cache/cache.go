package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache memoizes expensive results in Redis. A nil *Cache is valid and
// disables caching, so callers never branch on configuration.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at addr. Returns nil (caching disabled) when addr
// is empty.
func New(addr string) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Memoize returns the cached value for key, or calls fn and stores its
// result for ttl. Cache failures degrade to calling fn directly.
func Memoize[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var result T

	if c == nil {
		return fn()
	}

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(cached, &result); jsonErr == nil {
			return result, nil
		}
	}

	result, err = fn()
	if err != nil {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		c.client.Set(ctx, key, data, ttl)
	}

	return result, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
