package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/llm-translator/internal/adapters/bedrock"
	"github.com/mikey/llm-translator/internal/adapters/gemini"
	"github.com/mikey/llm-translator/internal/adapters/openai"
	"github.com/mikey/llm-translator/internal/config"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient(ctx context.Context) (core.LLMClient, error) {
	provider := f.cfg.GetLLM().Provider

	f.logger.Info("Creating LLM client", zap.String("provider", provider))

	switch provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient(ctx)
	case "gemini":
		if f.cfg.GetGemini().APIKey == "" {
			return nil, errors.New("gemini API key is required")
		}
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient(ctx)
	case "openai":
		// Local OpenAI-compatible servers may run without a key
		if f.cfg.GetOpenAI().APIKey == "" && f.cfg.GetOpenAI().BaseURL == "" {
			return nil, errors.New("openai API key is required")
		}
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient(ctx)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
