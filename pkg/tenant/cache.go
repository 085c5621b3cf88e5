package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores positive host resolutions. Misses are never cached so a newly
// onboarded store or domain resolves immediately.
type Cache interface {
	Get(ctx context.Context, host string) (*Resolution, bool, error)
	Set(ctx context.Context, host string, res *Resolution) error
	Delete(ctx context.Context, hosts ...string) error
}

const cacheKeyPrefix = "tenant:host:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(host string) string {
	return cacheKeyPrefix + host
}

func (c *RedisCache) Get(ctx context.Context, host string) (*Resolution, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(host)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var res Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, host string, res *Resolution) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(host), data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, hosts ...string) error {
	if len(hosts) == 0 {
		return nil
	}
	keys := make([]string, len(hosts))
	for i, h := range hosts {
		keys[i] = cacheKey(h)
	}
	return c.client.Del(ctx, keys...).Err()
}
