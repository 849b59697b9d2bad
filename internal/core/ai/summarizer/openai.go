package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"

	openAIMaxInput  = 100000
	openAIMaxTokens = 8000
)

// OpenAI implements Summarizer using OpenAI GPT (official SDK).
// Any OpenAI-compatible chat endpoint works through BaseURL.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAI creates a new OpenAI summarizer.
func NewOpenAI(cfg config.SummarizationConfig, apiKey string, extra ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return "openai"
}

// Summarize generates a summary from the given text using OpenAI GPT.
func (o *OpenAI) Summarize(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTranscript
	}

	// Truncate text if too long (GPT-4o has 128k context)
	text = truncateText(text, openAIMaxInput)

	// Create chat completion request
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(SummarizationPrompt + text),
		},
		MaxTokens:   openai.Int(openAIMaxTokens),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return nil, apiError(o.Name(), err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	// Parse response
	return parseResponse(resp.Choices[0].Message.Content), nil
}
