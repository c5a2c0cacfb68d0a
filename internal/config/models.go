package config

import (
	"fmt"
	"time"

	"github.com/mikey/llm-translator/internal/languages"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxTextSize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxTextSize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxTextSize int
}

// TranslationConfig represents the translation mediator settings
type TranslationConfig struct {
	DefaultLanguage  string
	MinLength        int
	PassthroughTerms []string
	Coalesce         bool
	BackendTimeout   time.Duration
	BatchConcurrency int
	Languages        []languages.Language
}

// CacheConfig represents the translation cache settings
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	MaxEntries       int
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	PostgresDSN      string
}

// ServerConfig represents the frontend settings
type ServerConfig struct {
	FrontendType   string
	ListenAddress  string
	MaxBatchSize   int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxTextSize: c.GetInt("bedrock.max_text_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxTextSize: c.GetInt("gemini.max_text_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxTextSize: c.GetInt("openai.max_text_size"),
	}
}

// GetTranslation returns the translation mediator configuration
func (c *Config) GetTranslation() (TranslationConfig, error) {
	timeout, err := c.GetDuration("translation.backend_timeout")
	if err != nil {
		return TranslationConfig{}, err
	}

	var langs []languages.Language
	if err := c.v.UnmarshalKey("translation.languages", &langs); err != nil {
		return TranslationConfig{}, fmt.Errorf("invalid translation languages: %w", err)
	}

	return TranslationConfig{
		DefaultLanguage:  c.GetString("translation.default_language"),
		MinLength:        c.GetInt("translation.min_length"),
		PassthroughTerms: c.GetStringSlice("translation.passthrough_terms"),
		Coalesce:         c.GetBool("translation.coalesce"),
		BackendTimeout:   timeout,
		BatchConcurrency: c.GetInt("translation.batch_concurrency"),
		Languages:        langs,
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}

	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		MaxEntries:       c.GetInt("cache.max_entries"),
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		PostgresDSN:      c.GetString("cache.postgres_dsn"),
	}, nil
}

// GetServer returns the frontend configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		FrontendType:   c.GetString("server.frontend_type"),
		ListenAddress:  c.GetString("server.listen_address"),
		MaxBatchSize:   c.GetInt("server.max_batch_size"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		AllowedOrigins: c.GetStringSlice("server.allowed_origins"),
	}, nil
}

// defaultLanguages renders the built-in language list as plain maps for viper
func defaultLanguages() []map[string]string {
	out := make([]map[string]string, 0, len(languages.Default))
	for _, l := range languages.Default {
		out = append(out, map[string]string{
			"code":        l.Code,
			"name":        l.Name,
			"native_name": l.NativeName,
		})
	}
	return out
}
