package ports

import (
	"context"

	"github.com/mikey/llm-translator/internal/core"
)

// Frontend defines the interface for the surfaces that hand UI copy to the translation service
type Frontend interface {
	// Translate resolves a single request and returns the rendered result
	Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
