package core

import (
	"context"
	"errors"
	"strings"
)

// Selectable model identifiers, matched case-insensitively.
const (
	ProviderGoogle   = "google"   // web search shortcut, never calls an LLM
	ProviderGemini   = "gemini"   // also the default backend
	ProviderChatGPT  = "chatgpt"
	ProviderClaude   = "claude"
	ProviderOpenMind = "openmind" // built-in default selection
)

// ErrMissingAPIKey is returned when neither a stored credential nor the
// built-in default key can serve a request.
var ErrMissingAPIKey = errors.New("no API key available for provider")

// Provider is one LLM backend. Generate performs a stateless single-turn
// exchange: the composed payload goes out, the reply text comes back. No
// conversation history is ever included.
type Provider interface {
	Name() string
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
}

// ProviderRegistry maps model identifiers to providers.
type ProviderRegistry struct {
	providers map[string]Provider
}

func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

func (r *ProviderRegistry) Lookup(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}
