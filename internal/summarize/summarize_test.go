package summarize

import (
	"strings"
	"testing"
)

func TestPostProcessKeywordsDedupesAndTrims(t *testing.T) {
	raw := " Transformer, attention,  Attention , neural network, , transformer "
	got := postProcessKeywords(raw, 10)

	want := []string{"Transformer", "attention", "neural network"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i, kw := range want {
		if got[i] != kw {
			t.Errorf("expected keyword[%d] = %q, got %q", i, kw, got[i])
		}
	}
}

func TestPostProcessKeywordsCapsAtK(t *testing.T) {
	raw := "a, b, c, d, e"
	got := postProcessKeywords(raw, 2)
	if len(got) != 2 {
		t.Errorf("expected 2 keywords, got %d: %v", len(got), got)
	}
}

func TestTruncateRespectsBudget(t *testing.T) {
	text := strings.Repeat("x", 100)
	got := truncate(text, 10)
	if len(got) != 10 {
		t.Errorf("expected truncated length 10, got %d", len(got))
	}

	short := "short text"
	if truncate(short, 100) != short {
		t.Errorf("expected short text to pass through unchanged")
	}
}

func TestNewClientUnsupportedProvider(t *testing.T) {
	_, err := NewClient("does-not-exist", Config{APIKey: "key"})
	if err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
	if _, ok := err.(UnsupportedProviderError); !ok {
		t.Errorf("expected UnsupportedProviderError, got %T", err)
	}
}

func TestNewClientOpenAIRequiresAPIKey(t *testing.T) {
	_, err := NewClient("openai", Config{})
	if err == nil {
		t.Fatalf("expected error when API key is missing")
	}
}

func TestNewClientAnthropicRequiresAPIKey(t *testing.T) {
	_, err := NewClient("anthropic", Config{})
	if err == nil {
		t.Fatalf("expected error when API key is missing")
	}
}
