package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/llm-translator/internal/core"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SystemPrompt is sent as the system message to chat-style backends
const SystemPrompt = "You are a translation system for an agriculture platform website. Respond only with JSON."

const translationPromptFormat = `Translate the following text to %s (language code "%s").
Keep the meaning, tone and any numbers, brand names or punctuation intact.
Respond with a JSON object containing:
- translatedText: string (the translated text)

Text:
%s

Respond only with the JSON object and nothing else.`

// LanguageName returns the English name of a language code, or the code itself when unknown
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// BuildTranslationPrompt formats the prompt sent to the localization backend
func BuildTranslationPrompt(text, targetLanguage string) string {
	return fmt.Sprintf(translationPromptFormat, LanguageName(targetLanguage), targetLanguage, text)
}

type translationResponse struct {
	TranslatedText *string `json:"translatedText"`
	Translated     *string `json:"translated_text"`
}

func (r translationResponse) text() (string, bool) {
	for _, s := range []*string{r.TranslatedText, r.Translated} {
		if s != nil && strings.TrimSpace(*s) != "" {
			return *s, true
		}
	}
	return "", false
}

// ParseTranslationResponse extracts the translated text from a backend
// reply. The reply may wrap the JSON object in prose or a code fence.
func ParseTranslationResponse(responseText string) (string, error) {
	var resp translationResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(responseText)), &resp); err != nil {
		jsonStr, ok := ExtractJSON(responseText)
		if !ok {
			return "", fmt.Errorf("%w: no JSON object in response", core.ErrBackendMalformedResponse)
		}
		if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
			return "", fmt.Errorf("%w: failed to parse response as JSON: %v", core.ErrBackendMalformedResponse, err)
		}
	}

	text, ok := resp.text()
	if !ok {
		return "", fmt.Errorf("%w: response has no translatedText", core.ErrBackendMalformedResponse)
	}
	return text, nil
}

// ExtractJSON returns the outermost {...} span of text
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
