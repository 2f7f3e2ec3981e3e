package summarize

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"refnet/internal/xerrors"
)

// OpenAIProvider summarizes and extracts keywords via the OpenAI chat
// completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
	temp   float32
}

// NewOpenAIProvider constructs an OpenAIProvider from Config.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, xerrors.Wrap(xerrors.ErrPermanent, "openai: missing API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
		temp:   cfg.Temperature,
	}, nil
}

// ModelName returns the configured model id.
func (p *OpenAIProvider) ModelName() string { return p.model }

// Summarize produces an abstractive summary via a chat completion.
func (p *OpenAIProvider) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	text = truncate(text, openAICharBudget)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Summarize the following academic paper text concisely and accurately."),
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(float64(p.temp)),
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", xerrors.Wrap(xerrors.ErrTransient, "openai: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Keywords extracts up to k keywords via a chat completion.
func (p *OpenAIProvider) Keywords(ctx context.Context, text string, k int) ([]string, error) {
	text = truncate(text, openAICharBudget)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Extract the most important keywords from the following text. Respond with a comma-separated list only."),
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(256),
		Temperature: openai.Float(float64(p.temp)),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, xerrors.Wrap(xerrors.ErrTransient, "openai: empty completion")
	}
	return postProcessKeywords(resp.Choices[0].Message.Content, k), nil
}

func model(name string) openai.ChatModel {
	return openai.ChatModel(name)
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return xerrors.Wrap(xerrors.ErrPermanent, "openai: %v", err)
	}
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return xerrors.Wrap(xerrors.ErrRateLimited, "openai: %v", err)
	case apiErr.StatusCode == http.StatusNotFound:
		return xerrors.Wrap(xerrors.ErrNotFound, "openai: %v", err)
	case apiErr.StatusCode >= 500:
		return xerrors.Wrap(xerrors.ErrTransient, "openai: %v", err)
	default:
		return xerrors.Wrap(xerrors.ErrPermanent, "openai: %v", err)
	}
}
