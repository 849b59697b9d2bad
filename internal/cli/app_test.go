package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/crypto"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

func TestGlobalFlagsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	globalFlags{}.apply(cfg)
	if cfg.OutputDir != config.DefaultOutputDir || cfg.Summarization.Enabled {
		t.Fatalf("empty flags changed config: %+v", cfg)
	}

	globalFlags{
		output:    "out",
		provider:  "google",
		language:  "en-US",
		summarize: true,
		logLevel:  "debug",
	}.apply(cfg)

	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Recognition.Provider != "google" {
		t.Errorf("Provider = %q", cfg.Recognition.Provider)
	}
	if cfg.Recognition.Language != "en-US" {
		t.Errorf("Language = %q", cfg.Recognition.Language)
	}
	if !cfg.Summarization.Enabled {
		t.Error("Summarization not enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.WarnLevel},
		{"loud", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		if got := newLogger(tt.level, &bytes.Buffer{}).GetLevel(); got != tt.want {
			t.Errorf("newLogger(%q) level = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestResolveKeyAsksPIN(t *testing.T) {
	encrypted, err := crypto.Encrypt("sk-secret", "4321")
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Recognition.APIKeyEncrypted = encrypted
	cfg.Summarization.APIKeyEncrypted = encrypted

	var out bytes.Buffer
	p := newPrompter(strings.NewReader("4321\n"), &out)
	tr := i18n.T("en")

	key, err := resolveKey(cfg, p, tr, cfg.Recognition.ResolveAPIKey)
	if err != nil || key != "sk-secret" {
		t.Fatalf("resolveKey() = %q, %v", key, err)
	}
	if cfg.PIN != "4321" {
		t.Errorf("PIN not remembered: %q", cfg.PIN)
	}

	// second key reuses the PIN without asking
	key, err = resolveKey(cfg, p, tr, cfg.Summarization.ResolveAPIKey)
	if err != nil || key != "sk-secret" {
		t.Fatalf("second resolveKey() = %q, %v", key, err)
	}
	if strings.Count(out.String(), tr.Config.PIN) != 1 {
		t.Errorf("PIN asked %d times", strings.Count(out.String(), tr.Config.PIN))
	}
}

func TestResolveKeyNoPIN(t *testing.T) {
	encrypted, err := crypto.Encrypt("sk-secret", "4321")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Recognition.APIKeyEncrypted = encrypted

	p := newPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err = resolveKey(cfg, p, i18n.T("en"), cfg.Recognition.ResolveAPIKey)
	if !errors.Is(err, config.ErrPINRequired) {
		t.Errorf("error = %v, want ErrPINRequired", err)
	}
}

func TestNewPipelineKeys(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:    "openai without key",
			mutate:  func(c *config.Config) {},
			wantErr: config.ErrNoAPIKey,
		},
		{
			name:   "openai with env key",
			mutate: func(c *config.Config) { c.Recognition.APIKey = "sk-test" },
		},
		{
			name: "compatible without key",
			mutate: func(c *config.Config) {
				c.Recognition.Provider = "compatible"
				c.Recognition.BaseURL = "http://localhost:8000/v1"
			},
		},
		{
			name: "summary without key",
			mutate: func(c *config.Config) {
				c.Recognition.APIKey = "sk-test"
				c.Summarization.Enabled = true
			},
			wantErr: config.ErrNoAPIKey,
		},
		{
			name: "summary with key",
			mutate: func(c *config.Config) {
				c.Recognition.APIKey = "sk-test"
				c.Summarization.Enabled = true
				c.Summarization.Provider = "anthropic"
				c.Summarization.APIKey = "sk-ant"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.OutputDir = t.TempDir()
			tt.mutate(cfg)

			p := newPrompter(strings.NewReader(""), &bytes.Buffer{})
			pipe, err := newPipeline(cfg, p, nil, zerolog.Nop())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pipe == nil {
				t.Fatal("nil pipeline")
			}
		})
	}
}

func TestKeyErrorMessages(t *testing.T) {
	tr := i18n.T("en")

	err := keyError(config.ErrNoAPIKey, "google", tr)
	if !errors.Is(err, config.ErrNoAPIKey) || !strings.Contains(err.Error(), `"google"`) {
		t.Errorf("keyError(no key) = %v", err)
	}

	err = keyError(config.ErrPINRequired, "openai", tr)
	if !errors.Is(err, config.ErrPINRequired) || !strings.Contains(err.Error(), tr.Config.PINRequired) {
		t.Errorf("keyError(pin) = %v", err)
	}

	other := errors.New("boom")
	if keyError(other, "openai", tr) != other {
		t.Error("unrelated errors should pass through")
	}
}
