package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// RedisCacheAdapter is the CachePort for multi-instance deployments, where
// history invalidation has to reach every resolver replica.
type RedisCacheAdapter struct {
	client *redis.Client
	logger out.LoggerPort
}

func NewRedisCacheAdapter(cfg *config.Config, logger out.LoggerPort) (*RedisCacheAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Cache.RedisAddr,
		Username:     cfg.Cache.RedisUsername,
		Password:     cfg.Cache.RedisPassword,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCacheAdapter{
		client: client,
		logger: logger.WithModule("RedisCacheAdapter"),
	}, nil
}

func (c *RedisCacheAdapter) Get(ctx context.Context, key domain.CacheKey) ([]byte, bool) {
	value, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache.get.failed", out.LogFields{
				"key":   key.String(),
				"error": err.Error(),
			})
		}
		return nil, false
	}

	return value, true
}

func (c *RedisCacheAdapter) Set(ctx context.Context, key domain.CacheKey, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key.String(), value, ttl).Err(); err != nil {
		// A failed write only costs a refetch later
		c.logger.Warn("cache.set.failed", out.LogFields{
			"key":   key.String(),
			"error": err.Error(),
		})
	}
}

func (c *RedisCacheAdapter) Delete(ctx context.Context, key domain.CacheKey) {
	if err := c.client.Del(ctx, key.String()).Err(); err != nil {
		c.logger.Warn("cache.delete.failed", out.LogFields{
			"key":   key.String(),
			"error": err.Error(),
		})
	}
}
