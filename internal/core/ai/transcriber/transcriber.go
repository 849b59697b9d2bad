// Package transcriber turns audio chunks into text through a remote
// speech-recognition service.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/rs/zerolog"
)

var (
	// ErrNoSpeech means the service heard nothing it could transcribe.
	ErrNoSpeech = errors.New("no recognizable speech")

	// ErrServiceUnavailable covers transport failures and error responses.
	ErrServiceUnavailable = errors.New("recognition service unavailable")
)

// Recognizer sends a canonical waveform to a speech-recognition backend.
type Recognizer interface {
	// Recognize returns the transcript of w. languageTag is a BCP-47 tag
	// such as "bg-BG".
	Recognize(ctx context.Context, w *audio.Waveform, languageTag string) (string, error)

	// Name returns the provider name.
	Name() string
}

// New creates a Recognizer based on configuration.
// The apiKey parameter is the resolved plaintext key.
func New(cfg config.RecognitionConfig, apiKey string, log zerolog.Logger) (Recognizer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg, apiKey)
	case "compatible":
		return NewCompatible(cfg, apiKey)
	case "google":
		return NewGoogle(cfg, apiKey, log)
	default:
		return nil, fmt.Errorf("unsupported recognition provider: %s", cfg.Provider)
	}
}

// Status classifies the result of one transcription attempt.
type Status string

const (
	StatusTranscribed      Status = "transcribed"
	StatusNoSpeech         Status = "no_speech"
	StatusServiceError     Status = "service_error"
	StatusConversionFailed Status = "conversion_failed"
	StatusFailed           Status = "failed"
)

// Outcome is the result of transcribing one chunk. Text is empty unless
// Status is StatusTranscribed.
type Outcome struct {
	Text   string
	Status Status
	// Reason is a short, display-ready description of a failure.
	Reason string
	Err    error
}

// Skipped reports whether the chunk contributed no text.
func (o Outcome) Skipped() bool {
	return o.Status != StatusTranscribed
}

// Words returns the number of whitespace-separated words in Text.
func (o Outcome) Words() int {
	return len(strings.Fields(o.Text))
}

// maxReasonRunes bounds the failure text shown per chunk.
const maxReasonRunes = 50

func failedOutcome(err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: shortReason(err.Error()), Err: err}
}

func shortReason(msg string) string {
	r := []rune(msg)
	if len(r) > maxReasonRunes {
		r = r[:maxReasonRunes]
	}
	return string(r) + "..."
}

// baseLanguage turns "bg-BG" into "bg" for APIs that take ISO-639-1 codes.
func baseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
