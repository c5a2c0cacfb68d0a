package factory

import (
	"fmt"
	"os"

	"github.com/mikey/llm-translator/internal/adapters/frontend"
	"github.com/mikey/llm-translator/internal/config"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/languages"
	"github.com/mikey/llm-translator/internal/ports"
	"go.uber.org/zap"
)

// FrontendFactory creates frontends based on configuration
type FrontendFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *core.TranslationService
	registry *languages.Registry
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.TranslationService,
	registry *languages.Registry,
) *FrontendFactory {
	return &FrontendFactory{
		cfg:      cfg,
		logger:   logger,
		service:  service,
		registry: registry,
	}
}

// CreateFrontend creates a frontend based on the configuration
func (f *FrontendFactory) CreateFrontend() (ports.Frontend, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch serverCfg.FrontendType {
	case "http":
		return frontend.NewHTTPFrontend(f.service, f.registry, f.logger, serverCfg), nil
	case "cli":
		return frontend.NewCliFrontend(f.service, f.logger, os.Stdout, f.cfg.GetBool("cli.verbose")), nil
	default:
		return nil, fmt.Errorf("unsupported frontend type: %s", serverCfg.FrontendType)
	}
}
