package frontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/llm-translator/internal/core"
	"go.uber.org/zap"
)

// CliFrontend translates text from the command line, one result per line
type CliFrontend struct {
	service Translator
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCliFrontend creates a new CLI frontend writing results to out
func NewCliFrontend(service Translator, logger *zap.Logger, out io.Writer, verbose bool) *CliFrontend {
	return &CliFrontend{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// Translate resolves a request and prints the result
func (f *CliFrontend) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	if strings.TrimSpace(req.TargetLanguage) == "" {
		return nil, ErrMissingLanguage
	}

	start := time.Now()
	result := f.service.ResolveRequest(ctx, req)

	f.logger.Debug("Translated text",
		zap.String("language", req.TargetLanguage),
		zap.String("source", string(result.Source)),
		zap.Duration("duration", time.Since(start)))

	var err error
	if f.verbose {
		model := result.Model
		if model == "" {
			model = "-"
		}
		_, err = fmt.Fprintf(f.out, "[%s %s] %s\n", result.Source, model, result.TranslatedText)
	} else {
		_, err = fmt.Fprintln(f.out, result.TranslatedText)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write translation: %w", err)
	}

	return result, nil
}

// TranslateLines translates each line of in, preserving line order.
// Blank lines come out blank.
func (f *CliFrontend) TranslateLines(ctx context.Context, in io.Reader, targetLanguage string) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	count := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := f.Translate(ctx, &core.TranslationRequest{Text: scanner.Text(), TargetLanguage: targetLanguage}); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read input: %w", err)
	}
	return count, nil
}

// Start is a no-op for the CLI frontend
func (f *CliFrontend) Start() error {
	return nil
}

// Stop is a no-op for the CLI frontend
func (f *CliFrontend) Stop() error {
	return nil
}
