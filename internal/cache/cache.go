// Package cache provides an optional redis-backed cache. A Cache constructed
// without a reachable redis is disabled: every lookup misses and every write
// is a no-op, so callers never branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// Cache wraps a redis client for JSON cache-aside use.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to redis at addr. An empty addr or a failed ping yields a
// disabled cache, logged as a warning.
func New(addr string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if addr == "" {
		return &Cache{logger: logger}
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, caching disabled", zap.String("addr", addr), zap.Error(err))
		return &Cache{logger: logger}
	}
	logger.Info("redis cache connected", zap.String("addr", addr))
	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON fetches key and unmarshals it into dest. It returns (false, nil) on
// a miss or when the cache is disabled.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals value and stores it under key with the provided TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
