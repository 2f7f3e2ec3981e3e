// Package summarize implements the pluggable LLM summarizer client (C3):
// an abstractive summary plus a keyword list, polymorphic across providers.
package summarize

import (
	"context"
	"strings"
)

// Client is the provider-agnostic contract both providers satisfy.
type Client interface {
	// Summarize produces an abstractive summary of text, capped at
	// maxTokens of output.
	Summarize(ctx context.Context, text string, maxTokens int) (string, error)
	// Keywords extracts up to k keywords from text.
	Keywords(ctx context.Context, text string, k int) ([]string, error)
	// ModelName identifies the concrete model in use, recorded onto
	// Paper.SummaryModel.
	ModelName() string
}

// NewClient is a factory selecting the concrete provider named by
// provider ("openai" or "anthropic"), mirroring the single-provider
// NewClient pattern generalized to a small registry.
func NewClient(provider string, cfg Config) (Client, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	default:
		return nil, UnsupportedProviderError{Provider: provider}
	}
}

// Config carries the settings shared by both providers.
type Config struct {
	APIKey      string
	BaseURL     string // OpenAI-compatible override; ignored by Anthropic
	Model       string
	Temperature float32
}

// UnsupportedProviderError is returned by NewClient for an unknown
// provider name.
type UnsupportedProviderError struct {
	Provider string
}

func (e UnsupportedProviderError) Error() string {
	return "unsupported summarizer provider: " + e.Provider
}

// Truncation budgets applied before sending text to a provider.
const (
	openAICharBudget    = 8000
	anthropicCharBudget = 100000
)

func truncate(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	return text[:budget]
}

// postProcessKeywords splits a comma-separated keyword response, trims,
// drops empties, dedupes case-insensitively, and caps at k — shared by
// both providers since the post-processing contract is provider-agnostic.
func postProcessKeywords(raw string, k int) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, k)

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
		if len(out) >= k {
			break
		}
	}

	return out
}
