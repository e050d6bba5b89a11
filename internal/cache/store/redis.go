package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the alternative L2 backend for deployments that already
// run Redis next to the data path. TTLs map onto native key expiry, so
// CleanupExpired has nothing to sweep and always reports zero.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates an L2 store over an existing Redis client.
// All keys are namespaced under prefix to keep the cache separable from
// other tenants of the same instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "marketgate:cache:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get returns the value for key; missing and expired keys both miss
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry from redis: %w", err)
	}
	return value, true, nil
}

// Set writes the entry with native TTL expiry
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry to redis: %w", err)
	}
	return nil
}

// Delete removes the entry if present
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry from redis: %w", err)
	}
	return nil
}

// Clear drops every entry under the store's prefix
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to clear cache entry %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache entries: %w", err)
	}
	return nil
}

// CleanupExpired is a no-op: redis expires keys natively
func (s *RedisStore) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
