package summarize

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"refnet/internal/xerrors"
)

// AnthropicProvider summarizes and extracts keywords via the Anthropic
// Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider constructs an AnthropicProvider from Config.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, xerrors.Wrap(xerrors.ErrPermanent, "anthropic: missing API key")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}, nil
}

// ModelName returns the configured model id.
func (p *AnthropicProvider) ModelName() string { return p.model }

// Summarize produces an abstractive summary via a Messages call.
func (p *AnthropicProvider) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	text = truncate(text, anthropicCharBudget)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: "Summarize the following academic paper text concisely and accurately."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}
	return strings.TrimSpace(joinTextBlocks(msg)), nil
}

// Keywords extracts up to k keywords via a Messages call.
func (p *AnthropicProvider) Keywords(ctx context.Context, text string, k int) ([]string, error) {
	text = truncate(text, anthropicCharBudget)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: "Extract the most important keywords from the following text. Respond with a comma-separated list only."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, classifyAnthropicError(err)
	}
	return postProcessKeywords(joinTextBlocks(msg), k), nil
}

func joinTextBlocks(msg *anthropic.Message) string {
	var builder strings.Builder
	for _, block := range msg.Content {
		if text := block.AsText(); text.Text != "" {
			builder.WriteString(text.Text)
		}
	}
	return builder.String()
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return xerrors.Wrap(xerrors.ErrPermanent, "anthropic: %v", err)
	}
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return xerrors.Wrap(xerrors.ErrRateLimited, "anthropic: %v", err)
	case apiErr.StatusCode == http.StatusNotFound:
		return xerrors.Wrap(xerrors.ErrNotFound, "anthropic: %v", err)
	case apiErr.StatusCode >= 500:
		return xerrors.Wrap(xerrors.ErrTransient, "anthropic: %v", err)
	default:
		return xerrors.Wrap(xerrors.ErrPermanent, "anthropic: %v", err)
	}
}
