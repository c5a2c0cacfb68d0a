package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxTextSize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxTextSize:   maxTextSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Translate asks the chat completion API to translate the request text
func (c *OpenAIClient) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	text, err := c.textProcessor.ProcessText(req.Text, c.maxTextSize)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: utils.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: utils.BuildTranslationPrompt(text, req.TargetLanguage),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create chat completion with OpenAI: %v", core.ErrBackendUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from OpenAI", core.ErrBackendMalformedResponse)
	}

	responseText := resp.Choices[0].Message.Content
	translated, err := utils.ParseTranslationResponse(responseText)
	if err != nil {
		c.logger.Debug("Unparseable OpenAI response",
			zap.String("language", req.TargetLanguage),
			zap.String("completion_id", resp.ID),
			zap.String("response", c.textProcessor.TruncateText(responseText, 256)))
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = c.modelName
	}

	return &core.TranslationResult{
		TranslatedText: translated,
		Source:         core.SourceBackend,
		Model:          model,
		ResolvedAt:     time.Now(),
	}, nil
}
