// Package llm abstracts chat-completion providers behind a small
// polymorphic interface, selected by an agent's provider field.
package llm

import (
	"context"
	"strings"
)

// Request carries everything one completion call needs. BaseURL overrides
// the provider's default endpoint (OpenAI-compatible vendors expose the
// same wire format under their own hosts).
type Request struct {
	Model   string
	BaseURL string
	APIKey  string
	System  string
	User    string
}

// Provider is a single LLM vendor. Complete returns the raw text of the
// model's reply; sampling is deterministic (temperature 0) so the same
// prompt and context reproduce the same portfolio.
type Provider interface {
	Name() string
	// DefaultKeyEnv is the environment variable consulted when an agent
	// does not name its own credential.
	DefaultKeyEnv() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ForName selects a provider implementation by vendor identifier. Unknown
// vendors are treated as OpenAI-compatible endpoints, which covers the
// long tail of providers that speak the same chat-completion format behind
// a custom base URL.
func ForName(name string) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai":
		return &openaiProvider{name: "openai"}
	case "anthropic":
		return &anthropicProvider{}
	default:
		return &openaiProvider{name: strings.ToLower(strings.TrimSpace(name))}
	}
}
