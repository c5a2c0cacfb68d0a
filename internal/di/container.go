package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-translator/internal/config"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/factory"
	"github.com/mikey/llm-translator/internal/languages"
	"github.com/mikey/llm-translator/internal/logging"
	"github.com/mikey/llm-translator/internal/passthrough"
	"github.com/mikey/llm-translator/internal/ports"
	"github.com/mikey/llm-translator/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideTranslation(container); err != nil {
		return nil, err
	}

	// Register frontend
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) (ports.Frontend, error) {
		return f.CreateFrontend()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideTranslation registers everything the translation service needs,
// given a *config.Config and a *zap.Logger
func provideTranslation(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient(context.Background())
	}); err != nil {
		return err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository(context.Background())
	}); err != nil {
		return err
	}

	// Register passthrough terms
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.PassthroughChecker, error) {
		translationCfg, err := cfg.GetTranslation()
		if err != nil {
			return nil, err
		}
		return passthrough.NewChecker(translationCfg.PassthroughTerms, logger), nil
	}); err != nil {
		return err
	}

	// Register supported languages
	if err := container.Provide(func(cfg *config.Config) (*languages.Registry, error) {
		translationCfg, err := cfg.GetTranslation()
		if err != nil {
			return nil, err
		}
		return languages.NewRegistry(translationCfg.Languages, translationCfg.DefaultLanguage)
	}); err != nil {
		return err
	}

	// Register service options
	if err := container.Provide(newServiceOptions); err != nil {
		return err
	}

	// Register translation service
	return container.Provide(core.NewTranslationService)
}

func newServiceOptions(cfg *config.Config) (core.ServiceOptions, error) {
	translationCfg, err := cfg.GetTranslation()
	if err != nil {
		return core.ServiceOptions{}, err
	}
	cacheCfg, err := cfg.GetCache()
	if err != nil {
		return core.ServiceOptions{}, err
	}

	return core.ServiceOptions{
		DefaultLanguage:  translationCfg.DefaultLanguage,
		MinLength:        translationCfg.MinLength,
		Coalesce:         translationCfg.Coalesce,
		BackendTimeout:   translationCfg.BackendTimeout,
		CacheTTL:         cacheCfg.TTL,
		BatchConcurrency: translationCfg.BatchConcurrency,
	}, nil
}
