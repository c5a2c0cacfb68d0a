package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/mikey/llm-translator/internal/config"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/languages"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second
)

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type batchRequest struct {
	Texts          []string `json:"texts"`
	TargetLanguage string   `json:"targetLanguage"`
}

type translationResponse struct {
	TranslatedText string            `json:"translatedText"`
	Source         core.ResultSource `json:"source"`
}

type batchResponse struct {
	Translations []translationResponse `json:"translations"`
}

type languagesResponse struct {
	DefaultLanguage string               `json:"defaultLanguage"`
	Languages       []languages.Language `json:"languages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPFrontend serves the translation service as a JSON API
type HTTPFrontend struct {
	service  Translator
	registry *languages.Registry
	logger   *zap.Logger
	cfg      config.ServerConfig
	router   chi.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHTTPFrontend creates a new HTTP frontend
func NewHTTPFrontend(
	service Translator,
	registry *languages.Registry,
	logger *zap.Logger,
	cfg config.ServerConfig,
) *HTTPFrontend {
	f := &HTTPFrontend{
		service:  service,
		registry: registry,
		logger:   logger,
		cfg:      cfg,
	}
	f.router = f.routes()
	return f
}

// Handler returns the HTTP handler serving the API
func (f *HTTPFrontend) Handler() http.Handler {
	return f.router
}

func (f *HTTPFrontend) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(f.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: f.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept-Language", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/languages", f.handleLanguages)
		r.Get("/languages/negotiate", f.handleNegotiate)
		r.Get("/stats", f.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/translate", f.handleTranslate)
			r.Post("/translate/batch", f.handleBatch)
			r.Delete("/translate", f.handleInvalidate)
		})
	})

	return r
}

// Translate validates and resolves a single request
func (f *HTTPFrontend) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	lang, err := f.validateLanguage(req.TargetLanguage)
	if err != nil {
		return nil, err
	}
	return f.service.ResolveRequest(ctx, &core.TranslationRequest{Text: req.Text, TargetLanguage: lang}), nil
}

// Start binds the listen address and serves in the background
func (f *HTTPFrontend) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.server != nil {
		return errors.New("http frontend already started")
	}

	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}

	f.listener = ln
	f.server = &http.Server{
		Handler:           f.router,
		ReadTimeout:       f.cfg.ReadTimeout,
		ReadHeaderTimeout: f.cfg.ReadTimeout,
		WriteTimeout:      f.cfg.WriteTimeout,
	}

	f.logger.Info("HTTP frontend starting", zap.String("address", ln.Addr().String()))

	server := f.server
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (f *HTTPFrontend) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return ""
	}
	return f.listener.Addr().String()
}

// Stop gracefully shuts the server down, waiting for in-flight requests
func (f *HTTPFrontend) Stop() error {
	f.mu.Lock()
	server := f.server
	f.server, f.listener = nil, nil
	f.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func (f *HTTPFrontend) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !f.decode(w, r, &req) {
		return
	}

	result, err := f.Translate(r.Context(), &core.TranslationRequest{Text: req.Text, TargetLanguage: req.TargetLanguage})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toResponse(result))
}

func (f *HTTPFrontend) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !f.decode(w, r, &req) {
		return
	}

	lang, err := f.validateLanguage(req.TargetLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.cfg.MaxBatchSize > 0 && len(req.Texts) > f.cfg.MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch of %d texts exceeds limit of %d", len(req.Texts), f.cfg.MaxBatchSize))
		return
	}

	results := f.service.ResolveBatch(r.Context(), req.Texts, lang)
	resp := batchResponse{Translations: make([]translationResponse, 0, len(results))}
	for _, result := range results {
		resp.Translations = append(resp.Translations, toResponse(result))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (f *HTTPFrontend) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !f.decode(w, r, &req) {
		return
	}

	lang, err := f.validateLanguage(req.TargetLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := f.service.Invalidate(r.Context(), req.Text, lang); err != nil {
		f.logger.Error("Failed to invalidate translation",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to invalidate translation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (f *HTTPFrontend) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		DefaultLanguage: f.registry.Default().Code,
		Languages:       f.registry.All(),
	})
}

func (f *HTTPFrontend) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.registry.Negotiate(r.Header.Get("Accept-Language")))
}

func (f *HTTPFrontend) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.service.Stats())
}

// validateLanguage returns the canonical code of a supported target language
func (f *HTTPFrontend) validateLanguage(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", ErrMissingLanguage
	}
	lang, ok := f.registry.Lookup(code)
	if !ok {
		return "", fmt.Errorf("unsupported targetLanguage %q", code)
	}
	return lang.Code, nil
}

func (f *HTTPFrontend) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		f.logger.Debug("Rejected request body",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (f *HTTPFrontend) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		f.logger.Debug("HTTP request",
			zap.String("request_id", ww.Header().Get(requestIDHeader)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// requestID tags every request and response with an X-Request-ID
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func toResponse(result *core.TranslationResult) translationResponse {
	return translationResponse{
		TranslatedText: result.TranslatedText,
		Source:         result.Source,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
