package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxTextSize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(utils.SystemPrompt)},
	}

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxTextSize:   maxTextSize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Translate asks Gemini to translate the request text
func (c *GeminiClient) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	text, err := c.textProcessor.ProcessText(req.Text, c.maxTextSize)
	if err != nil {
		return nil, err
	}

	prompt := utils.BuildTranslationPrompt(text, req.TargetLanguage)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate content with Gemini: %v", core.ErrBackendUnavailable, err)
	}

	responseText, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	translated, err := utils.ParseTranslationResponse(responseText)
	if err != nil {
		c.logger.Debug("Unparseable Gemini response",
			zap.String("language", req.TargetLanguage),
			zap.String("response", c.textProcessor.TruncateText(responseText, 256)))
		return nil, err
	}

	return &core.TranslationResult{
		TranslatedText: translated,
		Source:         core.SourceBackend,
		Model:          c.modelName,
		ResolvedAt:     time.Now(),
	}, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response from Gemini", core.ErrBackendMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text in Gemini response", core.ErrBackendMalformedResponse)
	}
	return sb.String(), nil
}
