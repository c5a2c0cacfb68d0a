package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TranslationRequest represents a piece of UI copy to be localized
type TranslationRequest struct {
	Text           string
	TargetLanguage string
}

// ResultSource records how a translation was resolved
type ResultSource string

const (
	SourceIdentity    ResultSource = "identity"
	SourceEmpty       ResultSource = "empty"
	SourceNumeric     ResultSource = "numeric"
	SourcePassthrough ResultSource = "passthrough"
	SourceCache       ResultSource = "cache"
	SourceBackend     ResultSource = "backend"
	SourceFallback    ResultSource = "fallback"
)

// TranslationResult represents the outcome of a translation
type TranslationResult struct {
	TranslatedText string
	Source         ResultSource
	Model          string
	ResolvedAt     time.Time
}

// CacheKey identifies a cached translation by target language and source text
type CacheKey struct {
	Language string
	Text     string
}

// Hash returns a fixed-size digest of the key, suitable as a database primary key
func (k CacheKey) Hash() string {
	sum := sha256.Sum256([]byte(k.Language + "\x00" + k.Text))
	return hex.EncodeToString(sum[:])
}

// String returns a readable form of the key for logging
func (k CacheKey) String() string {
	return k.Language + ":" + k.Text
}

type CacheEntry struct {
	Key            CacheKey
	TranslatedText string
	Model          string
	CreatedAt      time.Time
	// ExpiresAt is zero for entries that never expire
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at the given time
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
