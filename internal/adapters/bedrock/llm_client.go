package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-translator/internal/core"
	"github.com/mikey/llm-translator/internal/utils"
	"go.uber.org/zap"
)

// InvokeModelAPI is the subset of the Bedrock runtime client used for translation
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client        InvokeModelAPI
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxTextSize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client InvokeModelAPI,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxTextSize:   maxTextSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Translate invokes the configured Bedrock model to translate the request text
func (c *BedrockClient) Translate(ctx context.Context, req *core.TranslationRequest) (*core.TranslationResult, error) {
	text, err := c.textProcessor.ProcessText(req.Text, c.maxTextSize)
	if err != nil {
		return nil, err
	}

	payload, err := c.buildPayload(utils.BuildTranslationPrompt(text, req.TargetLanguage))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to invoke Bedrock model: %v", core.ErrBackendUnavailable, err)
	}

	responseText, err := c.extractCompletion(resp.Body)
	if err != nil {
		return nil, err
	}

	translated, err := utils.ParseTranslationResponse(responseText)
	if err != nil {
		c.logger.Debug("Unparseable Bedrock response",
			zap.String("model_id", c.modelID),
			zap.String("language", req.TargetLanguage),
			zap.String("response", c.textProcessor.TruncateText(responseText, 256)))
		return nil, err
	}

	return &core.TranslationResult{
		TranslatedText: translated,
		Source:         core.SourceBackend,
		Model:          c.modelID,
		ResolvedAt:     time.Now(),
	}, nil
}

// buildPayload renders the model-specific request body
func (c *BedrockClient) buildPayload(prompt string) ([]byte, error) {
	switch {
	case c.isAnthropicTextModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n%s\n\nAssistant:", utils.SystemPrompt, prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"system":            utils.SystemPrompt,
			"max_tokens":        c.maxTokens,
			"temperature":       c.temperature,
			"top_p":             c.topP,
			"messages": []map[string]interface{}{
				{"role": "user", "content": prompt},
			},
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": utils.SystemPrompt + "\n\n" + prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      utils.SystemPrompt + "\n\n" + prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
}

// extractCompletion pulls the generated text out of a model-specific response body
func (c *BedrockClient) extractCompletion(body []byte) (string, error) {
	switch {
	case c.isAnthropicTextModel():
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("%w: failed to unmarshal Claude response: %v", core.ErrBackendMalformedResponse, err)
		}
		return claudeResp.Completion, nil

	case c.isAnthropicModel():
		var messagesResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &messagesResp); err != nil {
			return "", fmt.Errorf("%w: failed to unmarshal Claude response: %v", core.ErrBackendMalformedResponse, err)
		}
		var sb strings.Builder
		for _, block := range messagesResp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("%w: empty response from Claude model", core.ErrBackendMalformedResponse)
		}
		return sb.String(), nil

	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("%w: failed to unmarshal Titan response: %v", core.ErrBackendMalformedResponse, err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("%w: empty response from Titan model", core.ErrBackendMalformedResponse)
		}
		return titanResp.Results[0].OutputText, nil

	default:
		var genericResp struct {
			Output     string `json:"output"`
			Text       string `json:"text"`
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("%w: failed to unmarshal generic response: %v", core.ErrBackendMalformedResponse, err)
		}
		for _, s := range []string{genericResp.Output, genericResp.Text, genericResp.Generation} {
			if s != "" {
				return s, nil
			}
		}
		// Some models answer with the translation object itself
		return string(body), nil
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.claude")
}

// isAnthropicTextModel checks for the legacy Claude models that only speak the text completion API
func (c *BedrockClient) isAnthropicTextModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude-v2") ||
		strings.HasPrefix(c.modelID, "anthropic.claude-instant")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
