// Package openai adapts the OpenAI chat completions API to llm.Client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MikeSquared-Agency/scribe/internal/llm"
)

const defaultMaxTokens = 8192

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	openai openai.Client
	model  string
}

// NewClient builds a client; extra options are appended after the defaults.
func NewClient(cfg Config, extra ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(120 * time.Second),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		openai: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}

	slog.DebugContext(ctx, "llm chat completed",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CheckHealth implements llm.Client by retrieving the configured model.
func (c *Client) CheckHealth(ctx context.Context) (llm.Health, error) {
	_, err := c.openai.Models.Get(ctx, c.model)
	if err == nil {
		return llm.Health{Available: true, Model: c.model}, nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode >= 500) {
		return llm.Health{Available: false, Model: c.model}, nil
	}
	return llm.Health{}, fmt.Errorf("openai models: %w", err)
}
