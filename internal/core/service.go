package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PassthroughChecker matches text that must be returned untranslated
type PassthroughChecker interface {
	IsPassthrough(text string) bool
}

// ServiceOptions configures the translation service
type ServiceOptions struct {
	// DefaultLanguage is the native language of the source copy
	DefaultLanguage string
	// MinLength is the minimum trimmed rune count worth translating
	MinLength int
	// Coalesce makes concurrent misses for the same key share one backend call
	Coalesce bool
	// BackendTimeout bounds each backend call; zero means no bound
	BackendTimeout time.Duration
	// CacheTTL sets the expiry of new cache entries; zero means never
	CacheTTL time.Duration
	// BatchConcurrency bounds the number of parallel resolutions in a batch
	BatchConcurrency int
}

// Stats is a snapshot of the service counters
type Stats struct {
	Requests      int64 `json:"requests"`
	ShortCircuits int64 `json:"short_circuits"`
	CacheHits     int64 `json:"cache_hits"`
	BackendCalls  int64 `json:"backend_calls"`
	Fallbacks     int64 `json:"fallbacks"`
	CacheErrors   int64 `json:"cache_errors"`
}

type counters struct {
	requests      atomic.Int64
	shortCircuits atomic.Int64
	cacheHits     atomic.Int64
	backendCalls  atomic.Int64
	fallbacks     atomic.Int64
	cacheErrors   atomic.Int64
}

// TranslationService mediates between UI copy and the localization backend
type TranslationService struct {
	llmClient   LLMClient
	cache       CacheRepository
	passthrough PassthroughChecker
	logger      *zap.Logger
	opts        ServiceOptions
	inflight    singleflight.Group
	stats       counters
}

// NewTranslationService creates a new translation service.
// A nil cache disables caching; a nil passthrough checker disables term matching.
func NewTranslationService(
	llmClient LLMClient,
	cache CacheRepository,
	passthrough PassthroughChecker,
	logger *zap.Logger,
	opts ServiceOptions,
) *TranslationService {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TranslationService{
		llmClient:   llmClient,
		cache:       cache,
		passthrough: passthrough,
		logger:      logger,
		opts:        opts,
	}
}

// DefaultLanguage returns the native language code of the source copy
func (s *TranslationService) DefaultLanguage() string {
	return s.opts.DefaultLanguage
}

// Resolve returns text rendered in targetLanguage, or text itself when it
// cannot be translated. It never fails.
func (s *TranslationService) Resolve(ctx context.Context, text, targetLanguage string) string {
	return s.ResolveRequest(ctx, &TranslationRequest{Text: text, TargetLanguage: targetLanguage}).TranslatedText
}

// ResolveRequest is Resolve with provenance of the returned text
func (s *TranslationService) ResolveRequest(ctx context.Context, req *TranslationRequest) *TranslationResult {
	s.stats.requests.Add(1)

	if result, ok := s.shortCircuit(req); ok {
		s.stats.shortCircuits.Add(1)
		return result
	}

	key := CacheKey{Language: NormalizeLanguage(req.TargetLanguage), Text: req.Text}

	if entry, ok := s.lookup(ctx, key); ok {
		s.stats.cacheHits.Add(1)
		s.logger.Debug("Cache hit for translation", zap.String("language", key.Language))
		return &TranslationResult{
			TranslatedText: entry.TranslatedText,
			Source:         SourceCache,
			Model:          entry.Model,
			ResolvedAt:     time.Now(),
		}
	}

	if !s.opts.Coalesce {
		return s.translate(ctx, req.Text, key)
	}

	// The shared call outlives any single caller; each waiter gives up on its own context.
	ch := s.inflight.DoChan(key.Hash(), func() (interface{}, error) {
		return s.translate(context.WithoutCancel(ctx), req.Text, key), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Shared in-flight translation", zap.String("language", key.Language))
		}
		result := *res.Val.(*TranslationResult)
		return &result
	case <-ctx.Done():
		s.stats.fallbacks.Add(1)
		s.logger.Warn("Caller gave up waiting for translation, returning original text",
			zap.String("language", key.Language),
			zap.Error(ctx.Err()))
		return &TranslationResult{TranslatedText: req.Text, Source: SourceFallback, ResolvedAt: time.Now()}
	}
}

// ResolveBatch resolves texts concurrently, preserving input order
func (s *TranslationService) ResolveBatch(ctx context.Context, texts []string, targetLanguage string) []*TranslationResult {
	results := make([]*TranslationResult, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = s.ResolveRequest(gctx, &TranslationRequest{Text: text, TargetLanguage: targetLanguage})
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Invalidate drops a cached translation so the next resolution calls the backend
func (s *TranslationService) Invalidate(ctx context.Context, text, targetLanguage string) error {
	if s.cache == nil {
		return nil
	}
	key := CacheKey{Language: NormalizeLanguage(targetLanguage), Text: text}
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to invalidate translation: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the service counters
func (s *TranslationService) Stats() Stats {
	return Stats{
		Requests:      s.stats.requests.Load(),
		ShortCircuits: s.stats.shortCircuits.Load(),
		CacheHits:     s.stats.cacheHits.Load(),
		BackendCalls:  s.stats.backendCalls.Load(),
		Fallbacks:     s.stats.fallbacks.Load(),
		CacheErrors:   s.stats.cacheErrors.Load(),
	}
}

// shortCircuit resolves requests that never reach the cache or the backend
func (s *TranslationService) shortCircuit(req *TranslationRequest) (*TranslationResult, bool) {
	var text string
	var source ResultSource

	switch {
	case SameBaseLanguage(req.TargetLanguage, s.opts.DefaultLanguage):
		text, source = req.Text, SourceIdentity
	case IsBlank(req.Text):
		text, source = "", SourceEmpty
	case IsNumeric(req.Text):
		text, source = req.Text, SourceNumeric
	case IsShorterThan(req.Text, s.opts.MinLength):
		text, source = req.Text, SourcePassthrough
	case s.passthrough != nil && s.passthrough.IsPassthrough(req.Text):
		text, source = req.Text, SourcePassthrough
	default:
		return nil, false
	}

	return &TranslationResult{
		TranslatedText: text,
		Source:         source,
		ResolvedAt:     time.Now(),
	}, true
}

// lookup reads the cache, treating any read error as a miss
func (s *TranslationService) lookup(ctx context.Context, key CacheKey) (*CacheEntry, bool) {
	if s.cache == nil {
		return nil, false
	}

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.stats.cacheErrors.Add(1)
			s.logger.Error("Failed to read translation cache", zap.Error(err))
		}
		return nil, false
	}
	if entry == nil || entry.Expired(time.Now()) {
		return nil, false
	}
	return entry, true
}

// translate calls the backend and stores successful results. Failures fall
// back to the original text and are never cached.
func (s *TranslationService) translate(ctx context.Context, text string, key CacheKey) *TranslationResult {
	s.stats.backendCalls.Add(1)

	result, err := s.callBackend(ctx, &TranslationRequest{Text: text, TargetLanguage: key.Language})
	if err != nil {
		s.stats.fallbacks.Add(1)
		s.logger.Warn("Translation failed, showing original text",
			zap.String("language", key.Language),
			zap.Int("text_length", len(text)),
			zap.Error(err))
		return &TranslationResult{
			TranslatedText: text,
			Source:         SourceFallback,
			ResolvedAt:     time.Now(),
		}
	}

	if s.cache != nil {
		now := time.Now()
		entry := &CacheEntry{
			Key:            key,
			TranslatedText: result.TranslatedText,
			Model:          result.Model,
			CreatedAt:      now,
		}
		if s.opts.CacheTTL > 0 {
			entry.ExpiresAt = now.Add(s.opts.CacheTTL)
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.stats.cacheErrors.Add(1)
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return &TranslationResult{
		TranslatedText: result.TranslatedText,
		Source:         SourceBackend,
		Model:          result.Model,
		ResolvedAt:     time.Now(),
	}
}

// callBackend invokes the LLM client, converting panics and empty output into errors
func (s *TranslationService) callBackend(ctx context.Context, req *TranslationRequest) (result *TranslationResult, err error) {
	if s.llmClient == nil {
		return nil, fmt.Errorf("%w: no client configured", ErrBackendUnavailable)
	}

	if s.opts.BackendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.BackendTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: backend panic: %v", ErrBackendUnavailable, r)
		}
	}()

	result, err = s.llmClient.Translate(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil || strings.TrimSpace(result.TranslatedText) == "" {
		return nil, fmt.Errorf("%w: empty translated text", ErrBackendMalformedResponse)
	}
	return result, nil
}
