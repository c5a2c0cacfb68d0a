package utils

import (
	"fmt"
	"unicode/utf8"

	"github.com/mikey/llm-translator/internal/core"
	"go.uber.org/zap"
)

// TextProcessor provides utilities for processing text sent to the backend
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated + "…"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Drop invalid UTF-8 sequences
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// ProcessText sanitizes text and rejects it when larger than maxSize bytes.
// Translating a truncated text would cache a partial translation, so
// oversized text is an error rather than being cut.
func (tp *TextProcessor) ProcessText(text string, maxSize int) (string, error) {
	sanitized := tp.SanitizeUTF8(text)

	if maxSize > 0 && len(sanitized) > maxSize {
		tp.logger.Debug("Text exceeds backend size limit",
			zap.Int("size", len(sanitized)),
			zap.Int("max_size", maxSize),
			zap.String("preview", tp.TruncateText(sanitized, 64)))
		return "", fmt.Errorf("%w: text of %d bytes exceeds limit of %d", core.ErrBackendUnavailable, len(sanitized), maxSize)
	}

	return sanitized, nil
}
