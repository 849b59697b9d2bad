package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/guiyumin/bgscribe/internal/core/config"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-sonnet-4-20250514"

	anthropicMaxInput  = 150000
	anthropicMaxTokens = 8000
)

// Anthropic implements Summarizer using Anthropic Claude.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropic creates an Anthropic summarizer. extra options are applied
// after the configured ones.
func NewAnthropic(cfg config.SummarizationConfig, apiKey string, extra ...option.RequestOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key not provided")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}, nil
}

// Name returns the provider name.
func (a *Anthropic) Name() string {
	return "anthropic"
}

// Summarize asks Claude for a summary of the transcript.
func (a *Anthropic) Summarize(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTranscript
	}

	// Truncate text if too long (Claude has 200k context)
	text = truncateText(text, anthropicMaxInput)

	// Create message request
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(SummarizationPrompt + text)),
		},
	})
	if err != nil {
		return nil, apiError(a.Name(), err)
	}

	// Extract text from response
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return nil, ErrEmptyResponse
	}

	// Parse response
	return parseResponse(b.String()), nil
}
