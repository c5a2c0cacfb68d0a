package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mikey/llm-translator/internal/core"
	"go.uber.org/zap"
)

// LRUCache is a bounded in-memory implementation of the CacheRepository
// interface for long-running processes. The least recently used entry is
// evicted once maxEntries is reached.
type LRUCache struct {
	lru    *expirable.LRU[core.CacheKey, core.CacheEntry]
	logger *zap.Logger
}

// NewLRUCache creates a new bounded cache. A zero ttl keeps entries until evicted.
func NewLRUCache(maxEntries int, ttl time.Duration, logger *zap.Logger) (*LRUCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("lru cache requires a positive max entries, got %d", maxEntries)
	}

	onEvict := func(key core.CacheKey, _ core.CacheEntry) {
		logger.Debug("Evicted translation from cache", zap.String("language", key.Language))
	}

	return &LRUCache{
		lru:    expirable.NewLRU[core.CacheKey, core.CacheEntry](maxEntries, onEvict, ttl),
		logger: logger,
	}, nil
}

// Get retrieves a cached translation
func (c *LRUCache) Get(ctx context.Context, key core.CacheKey) (*core.CacheEntry, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if entry.Expired(time.Now()) {
		c.lru.Remove(key)
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set stores a cache entry, evicting the least recently used entry when full
func (c *LRUCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	c.lru.Add(entry.Key, *entry)
	return nil
}

// Delete removes a cache entry
func (c *LRUCache) Delete(ctx context.Context, key core.CacheKey) error {
	c.lru.Remove(key)
	return nil
}

// Cleanup removes entries whose own expiry has passed
func (c *LRUCache) Cleanup(ctx context.Context) error {
	now := time.Now()
	expiredCount := 0
	for _, key := range c.lru.Keys() {
		if entry, ok := c.lru.Peek(key); ok && entry.Expired(now) {
			c.lru.Remove(key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of cached entries
func (c *LRUCache) Len() int {
	return c.lru.Len()
}
