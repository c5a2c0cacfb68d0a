package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/llm-translator/internal/adapters/cache"
	"github.com/mikey/llm-translator/internal/config"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/languages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// dictClient translates from a fixed dictionary keyed by "lang:text"
type dictClient struct {
	translations map[string]string
	calls        atomic.Int32
}

func (c *dictClient) Translate(_ context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	c.calls.Add(1)
	t, ok := c.translations[req.TargetLanguage+":"+req.Text]
	if !ok {
		return nil, core.ErrBackendUnavailable
	}
	return &core.TranslationResult{TranslatedText: t, Source: core.SourceBackend, Model: "dict"}, nil
}

func newDictClient() *dictClient {
	return &dictClient{translations: map[string]string{
		"hi:Hello":                            "नमस्ते",
		"bn:Hello":                            "হ্যালো",
		"hi:Start Your Smart Farming Journey": "अपनी स्मार्ट खेती यात्रा शुरू करें",
		"hi:Crop Health":                      "फसल स्वास्थ्य",
	}}
}

func newTestService(t *testing.T, client core.LLMClient) *core.TranslationService {
	t.Helper()
	logger := zaptest.NewLogger(t)
	memCache := cache.NewMemoryCache(logger, 0)
	t.Cleanup(memCache.Stop)
	return core.NewTranslationService(client, memCache, nil, logger, core.ServiceOptions{MinLength: 2})
}

func newTestFrontend(t *testing.T, client core.LLMClient, cfg config.ServerConfig) *HTTPFrontend {
	t.Helper()
	registry, err := languages.NewRegistry(nil, "en")
	require.NoError(t, err)
	return NewHTTPFrontend(newTestService(t, client), registry, zaptest.NewLogger(t), cfg)
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddress:  "127.0.0.1:0",
		MaxBatchSize:   3,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		AllowedOrigins: []string{"https://kisan.example"},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHTTPFrontend_Translate(t *testing.T) {
	client := newDictClient()
	h := newTestFrontend(t, client, defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodPost, "/api/translate", `{"text": "Hello", "targetLanguage": "hi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[translationResponse](t, rec)
	assert.Equal(t, "नमस्ते", resp.TranslatedText)
	assert.Equal(t, core.SourceBackend, resp.Source)

	rec = do(t, h, http.MethodPost, "/api/translate", `{"text": "Hello", "targetLanguage": "hi-IN"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[translationResponse](t, rec)
	assert.Equal(t, "नमस्ते", resp.TranslatedText)
	assert.Equal(t, core.SourceCache, resp.Source)

	assert.Equal(t, int32(1), client.calls.Load())
}

func TestHTTPFrontend_Translate_Fallback(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodPost, "/api/translate", `{"text": "Weather Forecast", "targetLanguage": "ta"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, "a failed translation is not an HTTP error")
	resp := decodeBody[translationResponse](t, rec)
	assert.Equal(t, "Weather Forecast", resp.TranslatedText)
	assert.Equal(t, core.SourceFallback, resp.Source)
}

func TestHTTPFrontend_Translate_BadRequests(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	tests := []struct {
		name string
		body string
	}{
		{"broken JSON", `{"text": "Hello"`},
		{"missing language", `{"text": "Hello"}`},
		{"blank language", `{"text": "Hello", "targetLanguage": "  "}`},
		{"unsupported language", `{"text": "Hello", "targetLanguage": "fr"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/translate", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestHTTPFrontend_Translate_ContentType(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodPost, "/api/translate", `text=Hello`, map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHTTPFrontend_Batch(t *testing.T) {
	client := newDictClient()
	h := newTestFrontend(t, client, defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodPost, "/api/translate/batch",
		`{"texts": ["Crop Health", "", "2024"], "targetLanguage": "hi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[batchResponse](t, rec)
	require.Len(t, resp.Translations, 3)
	assert.Equal(t, translationResponse{TranslatedText: "फसल स्वास्थ्य", Source: core.SourceBackend}, resp.Translations[0])
	assert.Equal(t, translationResponse{TranslatedText: "", Source: core.SourceEmpty}, resp.Translations[1])
	assert.Equal(t, translationResponse{TranslatedText: "2024", Source: core.SourceNumeric}, resp.Translations[2])
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestHTTPFrontend_Batch_TooLarge(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodPost, "/api/translate/batch",
		`{"texts": ["a", "b", "c", "d"], "targetLanguage": "hi"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPFrontend_Languages(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/languages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[languagesResponse](t, rec)
	assert.Equal(t, "en", resp.DefaultLanguage)
	assert.Len(t, resp.Languages, 15)
	assert.Equal(t, "हिन्दी", resp.Languages[1].NativeName)

	rec = do(t, h, http.MethodGet, "/api/languages/negotiate", "", map[string]string{
		"Accept-Language": "fr-FR,mr-IN;q=0.8,en;q=0.5",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mr", decodeBody[languages.Language](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/languages/negotiate", "", nil)
	assert.Equal(t, "en", decodeBody[languages.Language](t, rec).Code)
}

func TestHTTPFrontend_Stats(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	do(t, h, http.MethodPost, "/api/translate", `{"text": "Hello", "targetLanguage": "hi"}`, nil)
	do(t, h, http.MethodPost, "/api/translate", `{"text": "Hello", "targetLanguage": "hi"}`, nil)
	do(t, h, http.MethodPost, "/api/translate", `{"text": "Hello", "targetLanguage": "en"}`, nil)

	rec := do(t, h, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[core.Stats](t, rec)
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(1), stats.BackendCalls)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.ShortCircuits)
}

func TestHTTPFrontend_RequestIDAndCORS(t *testing.T) {
	h := newTestFrontend(t, newDictClient(), defaultServerConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, h, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = do(t, h, http.MethodOptions, "/api/translate", "", map[string]string{
		"Origin":                        "https://kisan.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://kisan.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	rec = do(t, h, http.MethodGet, "/api/languages", "", map[string]string{"Origin": "https://kisan.example"})
	assert.Equal(t, "https://kisan.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")

	// Responses differ by origin, so a disallowed origin still needs Vary for shared caches.
	rec = do(t, h, http.MethodGet, "/api/languages", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestHTTPFrontend_Invalidate(t *testing.T) {
	client := newDictClient()
	h := newTestFrontend(t, client, defaultServerConfig()).Handler()
	body := `{"text":"Hello","targetLanguage":"hi"}`

	rec := do(t, h, http.MethodPost, "/api/translate", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/translate", body, nil)
	assert.Equal(t, core.SourceCache, decodeBody[translationResponse](t, rec).Source)
	assert.Equal(t, int32(1), client.calls.Load())

	rec = do(t, h, http.MethodDelete, "/api/translate", body, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/translate", body, nil)
	resp := decodeBody[translationResponse](t, rec)
	assert.Equal(t, "नमस्ते", resp.TranslatedText)
	assert.Equal(t, core.SourceBackend, resp.Source)
	assert.Equal(t, int32(2), client.calls.Load())

	rec = do(t, h, http.MethodDelete, "/api/translate", `{"text":"Hello","targetLanguage":"fr"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/translate", `{"text":"Hello"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPFrontend_StartStop(t *testing.T) {
	f := newTestFrontend(t, newDictClient(), defaultServerConfig())
	require.NoError(t, f.Start())
	assert.Error(t, f.Start(), "second start must fail")

	resp, err := http.Get("http://" + f.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.Stop())
	assert.Empty(t, f.Addr())
	assert.NoError(t, f.Stop(), "stop is idempotent")
}

func TestCliFrontend_TranslateLines(t *testing.T) {
	client := newDictClient()
	var out bytes.Buffer
	f := NewCliFrontend(newTestService(t, client), zaptest.NewLogger(t), &out, false)

	in := strings.NewReader("Hello\n\n42\nStart Your Smart Farming Journey\nHello\n")
	n, err := f.TranslateLines(context.Background(), in, "hi")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, "नमस्ते\n\n42\nअपनी स्मार्ट खेती यात्रा शुरू करें\nनमस्ते\n", out.String())
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestCliFrontend_Verbose(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFrontend(newTestService(t, newDictClient()), zaptest.NewLogger(t), &out, true)

	_, err := f.Translate(context.Background(), &core.TranslationRequest{Text: "Hello", TargetLanguage: "bn"})
	require.NoError(t, err)
	_, err = f.Translate(context.Background(), &core.TranslationRequest{Text: "Hello", TargetLanguage: "en"})
	require.NoError(t, err)

	assert.Equal(t, "[backend dict] হ্যালো\n[identity -] Hello\n", out.String())
}

func TestCliFrontend_MissingLanguage(t *testing.T) {
	f := NewCliFrontend(newTestService(t, newDictClient()), zaptest.NewLogger(t), io.Discard, false)

	_, err := f.Translate(context.Background(), &core.TranslationRequest{Text: "Hello"})
	assert.ErrorIs(t, err, ErrMissingLanguage)
}
