package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

// Codec is the subset of audio.Codec the Transcriber needs.
type Codec interface {
	ReadFormat(path string) (audio.Format, error)
	Load(ctx context.Context, path string) (*audio.Waveform, error)
	LoadCanonical(ctx context.Context, path string) (*audio.Waveform, error)
	Export(w *audio.Waveform, path string) error
}

// Options tunes a Transcriber.
type Options struct {
	// Language is the BCP-47 tag passed to the recognizer.
	Language string

	// Calibration is the leading window measured for ambient noise and
	// dropped before recognition.
	Calibration time.Duration

	// Timeout bounds a single recognition call. Zero means no extra limit.
	Timeout time.Duration

	// TempDir receives converted copies of non-canonical inputs.
	TempDir string
}

// Transcriber transcribes single chunk files and never fails: every error
// is folded into the returned Outcome.
type Transcriber struct {
	rec   Recognizer
	codec Codec
	opts  Options
	out   io.Writer
	tr    *i18n.Translations
	log   zerolog.Logger
}

// NewTranscriber creates a Transcriber.
func NewTranscriber(rec Recognizer, codec Codec, opts Options, out io.Writer, tr *i18n.Translations, log zerolog.Logger) *Transcriber {
	if out == nil {
		out = io.Discard
	}
	if tr == nil {
		tr = i18n.T("")
	}
	return &Transcriber{rec: rec, codec: codec, opts: opts, out: out, tr: tr, log: log}
}

// Transcribe converts path to text. seq is the 1-based position used in
// progress lines. The input file is left untouched and any temporary
// conversion is removed before returning.
func (t *Transcriber) Transcribe(ctx context.Context, path string, seq int) (res Outcome) {
	var tmpPath string

	defer func() {
		if r := recover(); r != nil {
			t.log.Error().Interface("panic", r).Str("file", path).Msg("transcription panicked")
			res = failedOutcome(fmt.Errorf("panic: %v", r))
			t.report(seq, res)
		}
	}()
	defer func() {
		if tmpPath == "" {
			return
		}
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.log.Warn().Err(err).Str("file", tmpPath).Msg("failed to remove temp file")
		}
	}()

	res = t.transcribe(ctx, path, &tmpPath)
	t.report(seq, res)
	return res
}

func (t *Transcriber) transcribe(ctx context.Context, path string, tmpPath *string) Outcome {
	format, err := t.codec.ReadFormat(path)
	if err != nil {
		return failedOutcome(err)
	}

	var w *audio.Waveform
	if format.Canonical() {
		w, err = t.codec.Load(ctx, path)
		if err != nil {
			return failedOutcome(err)
		}
	} else {
		w, err = t.convert(ctx, path, tmpPath)
		if err != nil {
			t.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("conversion failed")
			return Outcome{Status: StatusConversionFailed, Reason: shortReason(err.Error()), Err: err}
		}
	}

	rest, ambient := audio.Calibrate(w, t.opts.Calibration)
	if rest != w {
		t.log.Debug().
			Str("file", filepath.Base(path)).
			Float64("ambient_rms", ambient).
			Dur("window", t.opts.Calibration).
			Msg("ambient noise calibrated")
	}
	if rest.Len() == 0 {
		return Outcome{Status: StatusNoSpeech, Err: ErrNoSpeech}
	}

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	text, err := t.rec.Recognize(ctx, rest, t.opts.Language)
	switch {
	case err == nil && strings.TrimSpace(text) == "":
		return Outcome{Status: StatusNoSpeech, Err: ErrNoSpeech}
	case err == nil:
		return Outcome{Text: text, Status: StatusTranscribed}
	case errors.Is(err, ErrNoSpeech):
		return Outcome{Status: StatusNoSpeech, Err: err}
	case errors.Is(err, ErrServiceUnavailable):
		t.log.Warn().Err(err).Str("provider", t.rec.Name()).Msg("recognition service error")
		return Outcome{Status: StatusServiceError, Reason: shortReason(err.Error()), Err: err}
	default:
		t.log.Error().Err(err).Str("provider", t.rec.Name()).Msg("recognition failed")
		return failedOutcome(err)
	}
}

// convert writes a canonical copy of path to a temp file and loads it back.
func (t *Transcriber) convert(ctx context.Context, path string, tmpPath *string) (*audio.Waveform, error) {
	f, err := os.CreateTemp(t.opts.TempDir, "bgscribe-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	*tmpPath = f.Name()
	f.Close()

	w, err := t.codec.LoadCanonical(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := t.codec.Export(w, *tmpPath); err != nil {
		return nil, err
	}
	return t.codec.Load(ctx, *tmpPath)
}

func (t *Transcriber) report(seq int, res Outcome) {
	tr := t.tr.Transcribe
	switch res.Status {
	case StatusTranscribed:
		fmt.Fprintf(t.out, tr.Transcribed+"\n", seq, res.Words())
	case StatusNoSpeech:
		fmt.Fprintf(t.out, tr.NoSpeech+"\n", seq)
	case StatusServiceError:
		fmt.Fprintf(t.out, tr.ServiceError+"\n", seq)
	case StatusConversionFailed:
		fmt.Fprintf(t.out, tr.ConversionFailed+"\n", seq)
	default:
		fmt.Fprintf(t.out, tr.Failed+"\n", seq, res.Reason)
	}
}
