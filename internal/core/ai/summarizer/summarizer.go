// Package summarizer turns the full text of a transcription run into a
// short summary with key points.
package summarizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/guiyumin/bgscribe/internal/core/config"
)

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("no response from API")

	// ErrEmptyTranscript is returned for input with nothing to summarize.
	ErrEmptyTranscript = errors.New("nothing to summarize")
)

// Result contains the summarization output.
type Result struct {
	Summary   string
	KeyPoints []string
}

// Summarizer generates summaries from transcript text.
type Summarizer interface {
	// Summarize generates a summary in the language of text.
	Summarize(ctx context.Context, text string) (*Result, error)

	// Name returns the provider name.
	Name() string
}

// New creates a Summarizer for cfg.Provider ("openai" when empty).
// The apiKey parameter is the resolved plaintext key.
func New(cfg config.SummarizationConfig, apiKey string) (Summarizer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg, apiKey)
	case "anthropic":
		return NewAnthropic(cfg, apiKey)
	default:
		return nil, fmt.Errorf("unsupported summarization provider: %s", cfg.Provider)
	}
}

// apiError tags a provider failure with the provider name.
func apiError(provider string, err error) error {
	return fmt.Errorf("%s summarization API error: %w", provider, err)
}
