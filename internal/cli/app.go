package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/guiyumin/bgscribe/internal/core/ai"
	"github.com/guiyumin/bgscribe/internal/core/ai/summarizer"
	"github.com/guiyumin/bgscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

type globalFlags struct {
	output    string
	provider  string
	language  string
	summarize bool
	logLevel  string
}

// apply overlays the flags that were given on top of cfg.
func (g globalFlags) apply(cfg *config.Config) {
	if g.output != "" {
		cfg.OutputDir = g.output
	}
	if g.provider != "" {
		cfg.Recognition.Provider = g.provider
	}
	if g.language != "" {
		cfg.Recognition.Language = g.language
	}
	if g.summarize {
		cfg.Summarization.Enabled = true
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
}

// loadConfig resolves defaults < file < environment < flags.
func loadConfig(g globalFlags) (*config.Config, error) {
	if !config.Exists() {
		t := i18n.T(config.DefaultConfig().Language)
		color.New(color.FgYellow).Fprintln(os.Stderr, t.Config.NotFound)
	}

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(""); err != nil {
		return nil, err
	}
	g.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes human-readable logs to w. Unknown levels fall back to warn.
func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// newPipeline builds the recognizer, the optional summarizer and the
// pipeline. Missing PINs are asked through p.
func newPipeline(cfg *config.Config, p *prompter, confirm func(int) bool, log zerolog.Logger) (*ai.Pipeline, error) {
	tr := i18n.T(cfg.Language)

	key, err := resolveKey(cfg, p, tr, cfg.Recognition.ResolveAPIKey)
	if err != nil {
		if !errors.Is(err, config.ErrNoAPIKey) || cfg.Recognition.NeedsAPIKey() {
			return nil, keyError(err, cfg.Recognition.Provider, tr)
		}
		key = ""
	}

	rec, err := transcriber.New(cfg.Recognition, key, log)
	if err != nil {
		return nil, err
	}

	opts := ai.Options{ConfirmCleanup: confirm}
	if cfg.Summarization.Enabled {
		sumKey, err := resolveKey(cfg, p, tr, cfg.Summarization.ResolveAPIKey)
		if err != nil {
			return nil, keyError(err, cfg.Summarization.Provider, tr)
		}
		s, err := summarizer.New(cfg.Summarization, sumKey)
		if err != nil {
			return nil, err
		}
		opts.Summarizer = s
	}

	log.Debug().
		Str("provider", rec.Name()).
		Str("language", cfg.Recognition.Language).
		Str("output", cfg.OutputDir).
		Bool("summarize", opts.Summarizer != nil).
		Msg("pipeline ready")

	return ai.NewPipeline(cfg, rec, opts, p.out, log), nil
}

// resolveKey asks for the PIN once when only an encrypted key is stored and
// remembers it for the next key.
func resolveKey(cfg *config.Config, p *prompter, tr *i18n.Translations, resolve func(pin string) (string, error)) (string, error) {
	key, err := resolve(cfg.PIN)
	if !errors.Is(err, config.ErrPINRequired) || p == nil {
		return key, err
	}

	pin, perr := p.askSecret(tr.Config.PIN)
	if perr != nil || pin == "" {
		return "", err
	}
	cfg.PIN = pin
	return resolve(pin)
}

func keyError(err error, provider string, tr *i18n.Translations) error {
	switch {
	case errors.Is(err, config.ErrNoAPIKey):
		return fmt.Errorf(tr.Config.NoAPIKey+": %w", provider, err)
	case errors.Is(err, config.ErrPINRequired):
		return fmt.Errorf("%s: %w", tr.Config.PINRequired, err)
	}
	return err
}
