package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "tracker:cache:"

// Redis is a small read-through cache for computed payloads. A zero TTL
// disables it: reads always miss and writes are dropped.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl, prefix: defaultPrefix}
}

func (r *Redis) enabled() bool {
	return r != nil && r.client != nil && r.ttl > 0
}

// Get decodes the cached value for key into dst and reports whether it was
// present. Undecodable entries are evicted and reported as a miss.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !r.enabled() {
		return false, nil
	}
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		_ = r.client.Del(ctx, r.prefix+key).Err()
		return false, nil
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	if !r.enabled() {
		return nil
	}
	raw, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every entry under the cache prefix.
func (r *Redis) Invalidate(ctx context.Context) error {
	if !r.enabled() {
		return nil
	}
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
