package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compatible implements Recognizer for self-hosted OpenAI-compatible
// transcription servers (speaches, faster-whisper-server, Groq...).
type Compatible struct {
	client openai.Client
	model  string
}

// NewCompatible creates a recognizer for the server at cfg.BaseURL.
// Local servers usually need no key.
func NewCompatible(cfg config.RecognitionConfig, apiKey string, extra ...option.RequestOption) (*Compatible, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("compatible provider requires base_url")
	}
	if apiKey == "" {
		apiKey = "none"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	return &Compatible{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (c *Compatible) Name() string {
	return "compatible"
}

// Recognize uploads w to the /audio/transcriptions endpoint.
func (c *Compatible) Recognize(ctx context.Context, w *audio.Waveform, languageTag string) (string, error) {
	data, err := audio.EncodeWAV(w)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(data), "segment.wav", "audio/wav"),
		Model:    openai.AudioModel(c.model),
		Language: openai.String(baseLanguage(languageTag)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: HTTP %d", ErrServiceUnavailable, apiErr.StatusCode)
		}
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if resp.Text == "" {
		return "", ErrNoSpeech
	}
	return resp.Text, nil
}
