package config

import (
	"os"
	"strconv"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
)

type Config struct {
	Port                int
	NatsURL             string
	NatsToken           string
	DatabaseURL         string
	LogLevel            string
	LLMProvider         string
	AnthropicAPIKey     string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	Model               string
	Temperature         float64
	ConfidenceThreshold int
	MinContentLength    int
	MaxTokens           int
	APIToken            string
	SlackBotToken       string
	SlackChannel        string
}

// Default models per provider, used when SCRIBE_MODEL is unset.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

func Load() Config {
	cfg := Config{
		Port:                envInt("SCRIBE_PORT", 8760),
		NatsURL:             envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:           envStr("NATS_TOKEN", ""),
		DatabaseURL:         envStr("DATABASE_URL", ""),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		LLMProvider:         envStr("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey:     envStr("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       envStr("OPENAI_BASE_URL", ""),
		Model:               envStr("SCRIBE_MODEL", ""),
		Temperature:         envFloat("SCRIBE_TEMPERATURE", 0.3),
		ConfidenceThreshold: envInt("SCRIBE_CONFIDENCE_THRESHOLD", 70),
		MinContentLength:    envInt("SCRIBE_MIN_CONTENT_LENGTH", 10),
		MaxTokens:           envInt("SCRIBE_MAX_TOKENS", 8192),
		APIToken:            envStr("SCRIBE_API_TOKEN", ""),
		SlackBotToken:       envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:        envStr("SLACK_REVIEW_CHANNEL", ""),
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
		if cfg.LLMProvider == "openai" {
			cfg.Model = DefaultOpenAIModel
		}
	}
	return cfg
}

// MappingConfig derives the content mapping engine defaults.
func (c Config) MappingConfig() mapping.Config {
	return mapping.Config{
		DefaultModel:        c.Model,
		DefaultTemperature:  c.Temperature,
		ConfidenceThreshold: c.ConfidenceThreshold,
		MaxTokens:           c.MaxTokens,
	}
}

// GapConfig derives the gap detection engine defaults.
func (c Config) GapConfig() gaps.Config {
	return gaps.Config{
		DefaultModel:        c.Model,
		DefaultTemperature:  c.Temperature,
		ConfidenceThreshold: c.ConfidenceThreshold,
		MinContentLength:    c.MinContentLength,
		MaxTokens:           c.MaxTokens,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
