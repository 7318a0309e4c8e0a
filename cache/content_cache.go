package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ContentKeyPrefix  = "content:v:"
	ContentVersionKey = "content:version"
)

// ContentCache stores decoded ERP content by key.
type ContentCache interface {
	// Get decodes the cached value into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst interface{}) bool
	// SetAsync stores value in the background.
	SetAsync(key string, value interface{})
	// Invalidate drops every cached entry.
	Invalidate(ctx context.Context) error
}

// RedisContentCache versions its keys so Invalidate is a single INCR.
type RedisContentCache struct {
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisContentCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisContentCache {
	return &RedisContentCache{redis: client, ttl: ttl, logger: logger}
}

func (c *RedisContentCache) Get(ctx context.Context, key string, dst interface{}) bool {
	version, err := c.getVersion(ctx)
	if err != nil {
		return false
	}

	data, err := c.redis.Get(ctx, c.versionedKey(version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Content cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Failed to unmarshal cached content", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *RedisContentCache) SetAsync(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to marshal content for cache", zap.String("key", key), zap.Error(err))
		return
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := c.getVersion(bgCtx)
		if err != nil {
			return
		}
		if err := c.redis.Set(bgCtx, c.versionedKey(version, key), data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache content", zap.String("key", key), zap.Error(err))
		}
	}()
}

func (c *RedisContentCache) Invalidate(ctx context.Context) error {
	newVersion, err := c.redis.Incr(ctx, ContentVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate content cache: %w", err)
	}
	c.logger.Info("Content cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

func (c *RedisContentCache) getVersion(ctx context.Context) (int64, error) {
	ver, err := c.redis.Get(ctx, ContentVersionKey).Int64()
	if err == nil && ver > 0 {
		return ver, nil
	}
	if errors.Is(err, redis.Nil) {
		// SetNX so a concurrent Invalidate is never overwritten.
		if err := c.redis.SetNX(ctx, ContentVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.redis.Get(ctx, ContentVersionKey).Int64()
	}
	if err == nil {
		err = fmt.Errorf("invalid content cache version %d", ver)
	}
	return 0, err
}

func (c *RedisContentCache) versionedKey(version int64, key string) string {
	return fmt.Sprintf("%s%d:%s", ContentKeyPrefix, version, key)
}

// NoopCache is used when no Redis is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) bool { return false }
func (NoopCache) SetAsync(string, interface{}) {}
func (NoopCache) Invalidate(context.Context) error { return nil }

var (
	_ ContentCache = (*RedisContentCache)(nil)
	_ ContentCache = NoopCache{}
)
