package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/llm-translator/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockLLMClient is a mock implementation of core.LLMClient
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.TranslationResult), args.Error(1)
}

// fakeCache is a map-backed core.CacheRepository with injectable failures
type fakeCache struct {
	mu      sync.Mutex
	entries map[core.CacheKey]*core.CacheEntry
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[core.CacheKey]*core.CacheEntry)}
}

func (c *fakeCache) Get(_ context.Context, key core.CacheKey) (*core.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	return entry, nil
}

func (c *fakeCache) Set(_ context.Context, entry *core.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[entry.Key] = entry
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key core.CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Cleanup(context.Context) error { return nil }

func (c *fakeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *fakeCache) has(lang, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[core.CacheKey{Language: lang, Text: text}]
	return ok
}

func request(text, lang string) interface{} {
	return mock.MatchedBy(func(req *core.TranslationRequest) bool {
		return req.Text == text && req.TargetLanguage == lang
	})
}

func newService(t *testing.T, client core.LLMClient, cache core.CacheRepository, opts core.ServiceOptions) *core.TranslationService {
	t.Helper()
	if opts.MinLength == 0 {
		opts.MinLength = 2
	}
	return core.NewTranslationService(client, cache, nil, zaptest.NewLogger(t), opts)
}

func TestResolve_DefaultLanguageIsIdentity(t *testing.T) {
	client := new(MockLLMClient)
	cache := newFakeCache()
	service := newService(t, client, cache, core.ServiceOptions{DefaultLanguage: "en"})
	ctx := context.Background()

	for _, text := range []string{"Hello", "", "   ", "42", "Start Your Smart Farming Journey"} {
		for _, lang := range []string{"en", "EN", "en-US", " en "} {
			assert.Equal(t, text, service.Resolve(ctx, text, lang))
		}
	}

	client.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything)
	assert.Equal(t, 0, cache.len())
}

func TestResolve_BlankTextShortCircuits(t *testing.T) {
	client := new(MockLLMClient)
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	assert.Equal(t, "", service.Resolve(ctx, "", "hi"))
	assert.Equal(t, "", service.Resolve(ctx, "   ", "hi"))
	assert.Equal(t, "", service.Resolve(ctx, "\t\n", "hi"))

	client.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything)
}

func TestResolve_NumericTextShortCircuits(t *testing.T) {
	client := new(MockLLMClient)
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	for _, text := range []string{"12345", " 3.14 ", "-7", "1e6", "0x1F"} {
		assert.Equal(t, text, service.Resolve(ctx, text, "hi"))
	}

	client.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything)
}

func TestResolve_CacheHitAvoidsSecondCall(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते", Model: "test"}, nil).Once()
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	first := service.ResolveRequest(ctx, &core.TranslationRequest{Text: "Hello", TargetLanguage: "hi"})
	second := service.ResolveRequest(ctx, &core.TranslationRequest{Text: "Hello", TargetLanguage: "hi"})

	assert.Equal(t, "नमस्ते", first.TranslatedText)
	assert.Equal(t, core.SourceBackend, first.Source)
	assert.Equal(t, "नमस्ते", second.TranslatedText)
	assert.Equal(t, core.SourceCache, second.Source)
	client.AssertNumberOfCalls(t, "Translate", 1)
}

func TestResolve_LanguageCodeIsNormalizedForCaching(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil).Once()
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", "HI"))
	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", " hi "))
	client.AssertNumberOfCalls(t, "Translate", 1)
}

func TestResolve_FailureFallsBackWithoutCaching(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(nil, fmt.Errorf("%w: connection refused", core.ErrBackendUnavailable)).Once()
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil).Once()
	cache := newFakeCache()
	service := newService(t, client, cache, core.ServiceOptions{})
	ctx := context.Background()

	result := service.ResolveRequest(ctx, &core.TranslationRequest{Text: "Hello", TargetLanguage: "hi"})
	assert.Equal(t, "Hello", result.TranslatedText)
	assert.Equal(t, core.SourceFallback, result.Source)
	assert.False(t, cache.has("hi", "Hello"))

	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", "hi"))
	assert.True(t, cache.has("hi", "Hello"))
	client.AssertNumberOfCalls(t, "Translate", 2)
}

func TestResolve_MalformedResponsesFallBack(t *testing.T) {
	tests := []struct {
		name   string
		result *core.TranslationResult
		err    error
	}{
		{"malformed error", nil, fmt.Errorf("%w: no translatedText", core.ErrBackendMalformedResponse)},
		{"nil result", nil, nil},
		{"empty text", &core.TranslationResult{TranslatedText: ""}, nil},
		{"whitespace text", &core.TranslationResult{TranslatedText: "  \n"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockLLMClient)
			if tt.result == nil {
				client.On("Translate", mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				client.On("Translate", mock.Anything, mock.Anything).Return(tt.result, tt.err)
			}
			cache := newFakeCache()
			service := newService(t, client, cache, core.ServiceOptions{})

			assert.Equal(t, "Hello", service.Resolve(context.Background(), "Hello", "hi"))
			assert.Equal(t, 0, cache.len())
		})
	}
}

func TestResolve_DistinctLanguagesDoNotCollide(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil).Once()
	client.On("Translate", mock.Anything, request("Hello", "bn")).
		Return(&core.TranslationResult{TranslatedText: "নমস্কার"}, nil).Once()
	cache := newFakeCache()
	service := newService(t, client, cache, core.ServiceOptions{})
	ctx := context.Background()

	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", "hi"))
	assert.False(t, cache.has("bn", "Hello"))
	assert.Equal(t, "নমস্কার", service.Resolve(ctx, "Hello", "bn"))
	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", "hi"))
	assert.Equal(t, "নমস্কার", service.Resolve(ctx, "Hello", "bn"))

	assert.Equal(t, 2, cache.len())
	client.AssertNumberOfCalls(t, "Translate", 2)
}

func TestResolve_EndToEnd(t *testing.T) {
	const (
		source     = "Start Your Smart Farming Journey"
		translated = "अपनी स्मार्ट खेती यात्रा शुरू करें"
	)
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request(source, "hi")).
		Return(&core.TranslationResult{TranslatedText: translated}, nil).Once()
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	assert.Equal(t, translated, service.Resolve(ctx, source, "hi"))
	client.AssertNumberOfCalls(t, "Translate", 1)

	assert.Equal(t, translated, service.Resolve(ctx, source, "hi"))
	client.AssertNumberOfCalls(t, "Translate", 1)
}

func TestResolve_UnchangedTranslationIsStillCached(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("OK", "hi")).
		Return(&core.TranslationResult{TranslatedText: "OK"}, nil).Once()
	cache := newFakeCache()
	service := newService(t, client, cache, core.ServiceOptions{})

	assert.Equal(t, "OK", service.Resolve(context.Background(), "OK", "hi"))
	assert.True(t, cache.has("hi", "OK"))
}

func TestResolve_CacheErrorsDoNotSurface(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil)
	cache := newFakeCache()
	cache.getErr = errors.New("disk I/O error")
	cache.setErr = errors.New("disk full")
	service := newService(t, client, cache, core.ServiceOptions{})

	assert.Equal(t, "नमस्ते", service.Resolve(context.Background(), "Hello", "hi"))
	assert.Equal(t, int64(2), service.Stats().CacheErrors)
}

func TestResolve_NilCacheAlwaysCallsBackend(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil)
	service := newService(t, client, nil, core.ServiceOptions{})
	ctx := context.Background()

	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", "hi"))
	assert.Equal(t, "नमस्ते", service.Resolve(ctx, "Hello", "hi"))
	client.AssertNumberOfCalls(t, "Translate", 2)
	require.NoError(t, service.Invalidate(ctx, "Hello", "hi"))
}

func TestResolve_PanickingBackendFallsBack(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, mock.Anything).Panic("nil map write")
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})

	assert.Equal(t, "Hello", service.Resolve(context.Background(), "Hello", "hi"))
	assert.Equal(t, int64(1), service.Stats().Fallbacks)
}

type blockingClient struct{}

func (blockingClient) Translate(ctx context.Context, _ *core.TranslationRequest) (*core.TranslationResult, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, ctx.Err())
}

func TestResolve_BackendTimeoutFallsBack(t *testing.T) {
	cache := newFakeCache()
	service := newService(t, blockingClient{}, cache, core.ServiceOptions{BackendTimeout: 20 * time.Millisecond})

	assert.Equal(t, "Hello", service.Resolve(context.Background(), "Hello", "hi"))
	assert.Equal(t, 0, cache.len())
}

func TestResolve_ShortTextAndPassthroughTerms(t *testing.T) {
	client := new(MockLLMClient)
	service := core.NewTranslationService(client, newFakeCache(), termSet{"kisansetu": true}, zaptest.NewLogger(t),
		core.ServiceOptions{MinLength: 2})
	ctx := context.Background()

	assert.Equal(t, "A", service.Resolve(ctx, "A", "hi"))
	assert.Equal(t, "KisanSetu", service.Resolve(ctx, "KisanSetu", "hi"))
	client.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything)
}

type termSet map[string]bool

func (s termSet) IsPassthrough(text string) bool { return s[strings.ToLower(text)] }

// countingClient counts calls and blocks until released
type countingClient struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingClient) Translate(_ context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	c.calls.Add(1)
	<-c.release
	return &core.TranslationResult{TranslatedText: "[" + req.TargetLanguage + "] " + req.Text}, nil
}

// resolveConcurrently starts n resolutions of the same key, releases the
// backend once they are all blocked in it, and returns their results
func resolveConcurrently(service *core.TranslationService, client *countingClient, n int) []string {
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = service.Resolve(context.Background(), "Hello", "hi")
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(client.release)
	wg.Wait()
	return results
}

func TestResolve_CoalescedCallsShareOneBackendCall(t *testing.T) {
	client := &countingClient{release: make(chan struct{})}
	service := newService(t, client, newFakeCache(), core.ServiceOptions{Coalesce: true})

	for _, got := range resolveConcurrently(service, client, 8) {
		assert.Equal(t, "[hi] Hello", got)
	}
	assert.Equal(t, int32(1), client.calls.Load())
}

// contextClient blocks until released or until its context is done
type contextClient struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *contextClient) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	c.calls.Add(1)
	select {
	case <-c.release:
		return &core.TranslationResult{TranslatedText: "[" + req.TargetLanguage + "] " + req.Text}, nil
	case <-ctx.Done():
		return nil, core.ErrBackendUnavailable
	}
}

func TestResolve_CoalescedCallerCancellationDoesNotAffectOthers(t *testing.T) {
	client := &contextClient{release: make(chan struct{})}
	cache := newFakeCache()
	service := newService(t, client, cache, core.ServiceOptions{Coalesce: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan string, 1)
	go func() { first <- service.Resolve(ctx, "Hello", "hi") }()
	assert.Eventually(t, func() bool { return client.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan string, 1)
	go func() { second <- service.Resolve(context.Background(), "Hello", "hi") }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case got := <-first:
		assert.Equal(t, "Hello", got, "cancelled caller falls back to the original text")
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(client.release)
	select {
	case got := <-second:
		assert.Equal(t, "[hi] Hello", got)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}

	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, "[hi] Hello", service.Resolve(context.Background(), "Hello", "hi"), "shared result is cached")
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestResolve_UncoalescedCallsMayDuplicate(t *testing.T) {
	client := &countingClient{release: make(chan struct{})}
	cache := newFakeCache()
	service := newService(t, client, cache, core.ServiceOptions{})

	for _, got := range resolveConcurrently(service, client, 4) {
		assert.Equal(t, "[hi] Hello", got)
	}
	assert.Equal(t, int32(4), client.calls.Load())
	assert.Equal(t, 1, cache.len())
}

func TestResolveBatch_PreservesOrder(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Schemes", "ta")).
		Return(&core.TranslationResult{TranslatedText: "திட்டங்கள்"}, nil)
	client.On("Translate", mock.Anything, request("Success Stories", "ta")).
		Return(&core.TranslationResult{TranslatedText: "வெற்றிக் கதைகள்"}, nil)
	client.On("Translate", mock.Anything, request("500+", "ta")).
		Return(nil, core.ErrBackendUnavailable)
	service := newService(t, client, newFakeCache(), core.ServiceOptions{BatchConcurrency: 2})

	results := service.ResolveBatch(context.Background(), []string{"Schemes", "", "500+", "Success Stories"}, "ta")

	require.Len(t, results, 4)
	assert.Equal(t, "திட்டங்கள்", results[0].TranslatedText)
	assert.Equal(t, core.SourceEmpty, results[1].Source)
	assert.Equal(t, "500+", results[2].TranslatedText)
	assert.Equal(t, core.SourceFallback, results[2].Source)
	assert.Equal(t, "வெற்றிக் கதைகள்", results[3].TranslatedText)
	client.AssertExpectations(t)
}

func TestInvalidate_ForcesNewBackendCall(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil)
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	service.Resolve(ctx, "Hello", "hi")
	require.NoError(t, service.Invalidate(ctx, "Hello", "HI"))
	service.Resolve(ctx, "Hello", "hi")

	client.AssertNumberOfCalls(t, "Translate", 2)
}

func TestStats(t *testing.T) {
	client := new(MockLLMClient)
	client.On("Translate", mock.Anything, request("Hello", "hi")).
		Return(&core.TranslationResult{TranslatedText: "नमस्ते"}, nil)
	service := newService(t, client, newFakeCache(), core.ServiceOptions{})
	ctx := context.Background()

	service.Resolve(ctx, "Hello", "en")
	service.Resolve(ctx, "Hello", "hi")
	service.Resolve(ctx, "Hello", "hi")

	stats := service.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(1), stats.ShortCircuits)
	assert.Equal(t, int64(1), stats.BackendCalls)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(0), stats.Fallbacks)
}
