package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	// GoogleDefaultBaseURL is the Cloud Speech-to-Text v1 endpoint.
	GoogleDefaultBaseURL = "https://speech.googleapis.com/v1"

	// googleMaxWindow stays under the 60 s limit of synchronous recognition.
	googleMaxWindow = 55 * time.Second
)

// Google implements Recognizer using Google Cloud Speech-to-Text over REST.
type Google struct {
	client  *retryablehttp.Client
	baseURL string
	apiKey  string
	model   string
}

// NewGoogle creates a Google recognizer authenticated with an API key.
func NewGoogle(cfg config.RecognitionConfig, apiKey string, log zerolog.Logger) (*Google, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Google API key not provided")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GoogleDefaultBaseURL
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = leveledLogger{log: log.With().Str("provider", "google").Logger(), secret: apiKey}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	return &Google{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   cfg.Model,
	}, nil
}

// Name returns the provider name.
func (g *Google) Name() string {
	return "google"
}

type googleRequest struct {
	Config googleConfig `json:"config"`
	Audio  googleAudio  `json:"audio"`
}

type googleConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	Model           string `json:"model,omitempty"`
}

type googleAudio struct {
	Content string `json:"content"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognize sends w in windows of at most 55 seconds and joins the texts.
func (g *Google) Recognize(ctx context.Context, w *audio.Waveform, languageTag string) (string, error) {
	window := w.SampleAt(googleMaxWindow)
	if window <= 0 {
		window = w.Len()
	}

	var parts []string
	for start := 0; start < w.Len(); start += window {
		text, err := g.recognizeWindow(ctx, w.Slice(start, start+window), languageTag)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}

func (g *Google) recognizeWindow(ctx context.Context, w *audio.Waveform, languageTag string) (string, error) {
	body, err := json.Marshal(googleRequest{
		Config: googleConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: w.SampleRate,
			LanguageCode:    languageTag,
			Model:           g.model,
		},
		Audio: googleAudio{Content: base64.StdEncoding.EncodeToString(pcm16(w.Samples))},
	})
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/speech:recognize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, redactKey(err.Error(), g.apiKey))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var parsed googleResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse recognition response: %w", err)
	}

	var texts []string
	for _, r := range parsed.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " "), nil
}

// pcm16 encodes samples as little-endian signed 16-bit PCM.
func pcm16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s*32767)))
	}
	return out
}

// redactKey keeps the API key out of error messages and log fields.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
	return strings.ReplaceAll(msg, key, "REDACTED")
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger. Values are
// logged as redacted strings so secret never reaches the output.
type leveledLogger struct {
	log    zerolog.Logger
	secret string
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.event(l.log.Error(), msg, kv) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.event(l.log.Warn(), msg, kv) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.event(l.log.Debug(), msg, kv) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.event(l.log.Debug(), msg, kv) }

func (l leveledLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if key == "url" {
			continue
		}
		e = e.Str(key, redactKey(fmt.Sprint(kv[i+1]), l.secret))
	}
	e.Msg(redactKey(msg, l.secret))
}
