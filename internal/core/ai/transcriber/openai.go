package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/config"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Recognizer using the OpenAI Whisper API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI recognizer.
func NewOpenAI(cfg config.RecognitionConfig, apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return "openai"
}

// Recognize uploads w as an in-memory WAV file.
func (o *OpenAI) Recognize(ctx context.Context, w *audio.Waveform, languageTag string) (string, error) {
	data, err := audio.EncodeWAV(w)
	if err != nil {
		return "", err
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		Reader:   bytes.NewReader(data),
		FilePath: "segment.wav",
		Language: baseLanguage(languageTag),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, describeOpenAIError(err))
	}

	if resp.Text == "" {
		return "", ErrNoSpeech
	}
	return resp.Text, nil
}

func describeOpenAIError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("HTTP %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err.Error()
}
