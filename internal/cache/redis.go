package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-qualifier/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache is a Cache backed by redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a redis client from the cache configuration.
func NewRedisCache(cfg config.CacheConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisCache{client: rdb}
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Ping tests the redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get retrieves a value by key. A missing key is a miss, not an error.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value with the given expiration.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the redis connection.
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// FromConfig builds a result cache for cfg. A disabled cache, or one with no
// address, yields a nil *ResultCache and results are never cached. A redis
// that does not answer a ping falls back to a bounded in-memory cache. The
// returned close function releases the redis connection if one was opened.
func FromConfig(ctx context.Context, logger *zap.Logger, cfg config.CacheConfig) (*ResultCache, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl, err := cfg.TTLDuration()
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	if !cfg.Enabled || strings.TrimSpace(cfg.Address) == "" {
		logger.Debug("result caching disabled",
			zap.String("op", "cache.FromConfig"),
		)
		return nil, noop, nil
	}

	redisCache := NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory result cache",
			zap.String("op", "cache.FromConfig"),
			zap.String("address", cfg.Address),
			zap.Error(err),
		)
		_ = redisCache.Close()
		return NewResultCache(logger, NewMemoryCache(), ttl), noop, nil
	}

	logger.Info("using redis result cache",
		zap.String("op", "cache.FromConfig"),
		zap.String("address", cfg.Address),
		zap.Duration("ttl", ttl),
	)
	return NewResultCache(logger, redisCache, ttl), redisCache.Close, nil
}
