package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-translator/internal/adapters/frontend"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if flags.Language == "" {
		fmt.Fprintln(os.Stderr, "-lang is required")
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	cli *frontend.CliFrontend,
	llmClient core.LLMClient,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if closer, ok := llmClient.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close LLM client", zap.Error(err))
			}
		}
		if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}()

	if flags.Text != "" {
		_, err := cli.Translate(ctx, &core.TranslationRequest{Text: flags.Text, TargetLanguage: flags.Language})
		return err
	}

	// Read texts from file or stdin
	var in io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		in = file
		logger.Info("Reading texts from file", zap.String("file", flags.InputFile))
	}

	n, err := cli.TranslateLines(ctx, in, flags.Language)
	logger.Debug("Translated lines", zap.Int("count", n))
	return err
}
