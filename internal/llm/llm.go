// Package llm defines the language-model boundary used by the mapping and gap
// engines, plus helpers for decoding structured model output.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Provider names accepted by provider.New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ErrMalformedResponse marks model output that could not be decoded or failed validation.
var ErrMalformedResponse = errors.New("malformed model response")

// Client is the language-model collaborator. Generate returns the completion
// text; CheckHealth reports whether the configured model is reachable.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
	CheckHealth(ctx context.Context) (Health, error)
}

// Options override per-call model settings. Zero values mean "client default".
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Health is the payload of a health check.
type Health struct {
	Available bool   `json:"available"`
	Model     string `json:"model,omitempty"`
}

// Validator is implemented by response types that check their own invariants after decoding.
type Validator interface {
	Validate() error
}

// DecodeJSON extracts the JSON document from raw model output, unmarshals it into T
// and runs T's Validate method when present. Every failure wraps ErrMalformedResponse.
func DecodeJSON[T any](raw string) (T, error) {
	var v T
	text := extractJSON(raw)
	if text == "" {
		return v, fmt.Errorf("%w: no JSON document in output", ErrMalformedResponse)
	}
	// Decode only the first value; models often add prose after the document.
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if val, ok := any(&v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return v, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return v, nil
}

// extractJSON strips markdown fences and any prose before the JSON document.
// Whatever follows the document is left for the decoder to ignore.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	return s[start:]
}

// SchemaFor renders the JSON schema of T for inclusion in a prompt.
func SchemaFor[T any]() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	data, err := json.MarshalIndent(reflector.Reflect(v), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Temp returns a pointer to t, for Options.Temperature.
func Temp(t float64) *float64 {
	return &t
}
