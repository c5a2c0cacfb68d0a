package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/di"
	"github.com/mikey/llm-translator/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	fe ports.Frontend,
	llmClient core.LLMClient,
	cacheRepo core.CacheRepository,
	service *core.TranslationService,
) error {
	defer logger.Sync()

	if err := fe.Start(); err != nil {
		logger.Error("Failed to start frontend", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := fe.Stop(); err != nil {
		logger.Error("Failed to stop frontend", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	stats := service.Stats()
	logger.Info("Shutdown complete",
		zap.Int64("requests", stats.Requests),
		zap.Int64("cache_hits", stats.CacheHits),
		zap.Int64("backend_calls", stats.BackendCalls),
		zap.Int64("fallbacks", stats.Fallbacks))
	return nil
}
