package frontend

import (
	"context"
	"errors"

	"github.com/mikey/llm-translator/internal/core"
)

// ErrMissingLanguage is returned when a request has no target language
var ErrMissingLanguage = errors.New("targetLanguage is required")

// Translator is the part of the translation service the frontends use
type Translator interface {
	ResolveRequest(ctx context.Context, req *core.TranslationRequest) *core.TranslationResult
	ResolveBatch(ctx context.Context, texts []string, targetLanguage string) []*core.TranslationResult
	Invalidate(ctx context.Context, text, targetLanguage string) error
	Stats() core.Stats
}
