package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUCacheAdapter is the in-process CachePort. Per-entry TTLs are enforced on
// read on top of the list-wide expiry, since history and unit entries carry
// different lifetimes.
type LRUCacheAdapter struct {
	cache  *expirable.LRU[string, lruEntry]
	mu     sync.RWMutex
	logger out.LoggerPort
}

func NewLRUCacheAdapter(cfg *config.Config, logger out.LoggerPort) (*LRUCacheAdapter, error) {
	if !cfg.Cache.Enabled {
		logger.Info("cache.disabled", out.LogFields{
			"message": "Cache is disabled",
		})
		return nil, nil
	}

	// The list-wide TTL is the longest entry lifetime in use
	maxTTL := cfg.UnitsTTL()
	if cfg.HistoryTTL() > maxTTL {
		maxTTL = cfg.HistoryTTL()
	}

	return &LRUCacheAdapter{
		cache:  expirable.NewLRU[string, lruEntry](cfg.Cache.Size, nil, maxTTL),
		logger: logger.WithModule("LRUCacheAdapter"),
	}, nil
}

func (c *LRUCacheAdapter) Get(ctx context.Context, key domain.CacheKey) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache.Get(key.String())
	if !exists {
		c.logger.Debug("cache.get.miss", out.LogFields{
			"key": key.String(),
		})
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		c.logger.Debug("cache.get.expired", out.LogFields{
			"key": key.String(),
		})
		return nil, false
	}

	return entry.value, true
}

func (c *LRUCacheAdapter) Set(ctx context.Context, key domain.CacheKey, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("cache.set", out.LogFields{
		"key":   key.String(),
		"bytes": len(value),
		"ttl":   ttl.String(),
	})

	c.cache.Add(key.String(), lruEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

func (c *LRUCacheAdapter) Delete(ctx context.Context, key domain.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(key.String())
}
