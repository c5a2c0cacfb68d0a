package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/llm-translator/internal/core"
	"go.uber.org/zap"
)

// PostgresCache is a PostgreSQL implementation of the CacheRepository interface
type PostgresCache struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewPostgresCache creates a new PostgreSQL cache
func NewPostgresCache(ctx context.Context, dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*PostgresCache, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS translation_cache (
			cache_key CHAR(64) PRIMARY KEY,
			language TEXT NOT NULL,
			source_text TEXT NOT NULL,
			translated_text TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_translation_cache_expires_at ON translation_cache (expires_at)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &PostgresCache{
		pool:        pool,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a cached translation
func (c *PostgresCache) Get(ctx context.Context, key core.CacheKey) (*core.CacheEntry, error) {
	var createdAt, expiresAt int64
	entry := core.CacheEntry{Key: key}

	err := c.pool.QueryRow(ctx, `
		SELECT translated_text, model, created_at, expires_at
		FROM translation_cache
		WHERE cache_key = $1 AND (expires_at = 0 OR expires_at > $2)
	`, key.Hash(), time.Now().UnixMilli()).Scan(&entry.TranslatedText, &entry.Model, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.CreatedAt, entry.ExpiresAt = fromMillis(createdAt), fromMillis(expiresAt)
	return &entry, nil
}

// Set stores a cache entry
func (c *PostgresCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO translation_cache
			(cache_key, language, source_text, translated_text, model, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cache_key) DO UPDATE SET
			translated_text = EXCLUDED.translated_text,
			model = EXCLUDED.model,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, entry.Key.Hash(), entry.Key.Language, entry.Key.Text, entry.TranslatedText, entry.Model,
		toMillis(entry.CreatedAt), toMillis(entry.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (c *PostgresCache) Delete(ctx context.Context, key core.CacheKey) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM translation_cache WHERE cache_key = $1`, key.Hash()); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *PostgresCache) Cleanup(ctx context.Context) error {
	tag, err := c.pool.Exec(ctx, `
		DELETE FROM translation_cache
		WHERE expires_at <> 0 AND expires_at <= $1
	`, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", tag.RowsAffected()))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *PostgresCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the connection pool
func (c *PostgresCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.pool.Close()
	})
}
