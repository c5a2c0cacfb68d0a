package core

import (
	"context"
)

// LLMClient defines the interface for the localization backend
type LLMClient interface {
	// Translate renders the request text in the target language
	Translate(ctx context.Context, req *TranslationRequest) (*TranslationResult, error)
}

// CacheRepository defines the interface for caching resolved translations
type CacheRepository interface {
	// Get retrieves a cached entry, returning an error matching ErrCacheMiss when absent
	Get(ctx context.Context, key CacheKey) (*CacheEntry, error)

	// Set stores a cache entry, replacing any previous entry for the same key
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key CacheKey) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
