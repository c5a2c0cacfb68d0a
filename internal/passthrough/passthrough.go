package passthrough

import (
	"strings"

	"go.uber.org/zap"
)

// Checker matches copy that must never be translated, such as brand and product names
type Checker struct {
	terms  map[string]struct{}
	logger *zap.Logger
}

// NewChecker creates a new passthrough checker
func NewChecker(terms []string, logger *zap.Logger) *Checker {
	// Normalize terms (trimmed, lowercase)
	normalized := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		t := normalize(term)
		if t == "" {
			continue
		}
		normalized[t] = struct{}{}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized passthrough checker", zap.Int("terms", len(normalized)))
	}

	return &Checker{
		terms:  normalized,
		logger: logger,
	}
}

// IsPassthrough checks if the text is one of the configured terms
func (c *Checker) IsPassthrough(text string) bool {
	if c == nil || len(c.terms) == 0 {
		return false
	}

	t := normalize(text)
	if _, ok := c.terms[t]; ok {
		if c.logger != nil {
			c.logger.Debug("Text is a passthrough term", zap.String("text", t))
		}
		return true
	}

	return false
}

// Len returns the number of configured terms
func (c *Checker) Len() int {
	if c == nil {
		return 0
	}
	return len(c.terms)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
