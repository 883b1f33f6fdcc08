// Package provider builds the configured language-model client.
package provider

import (
	"fmt"

	"github.com/MikeSquared-Agency/scribe/internal/anthropic"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/llm"
	"github.com/MikeSquared-Agency/scribe/internal/openai"
)

// New selects the client for cfg.LLMProvider. Defaults to Anthropic.
func New(cfg config.Config) (llm.Client, error) {
	provider := cfg.LLMProvider
	if provider == "" {
		provider = llm.ProviderAnthropic
	}

	switch provider {
	case llm.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %s", provider)
		}
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.Model), nil
	case llm.ProviderOpenAI:
		c, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
