package transcriber

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

// fakeRecognizer records calls and delegates to fn.
type fakeRecognizer struct {
	fn    func(ctx context.Context, w *audio.Waveform) (string, error)
	calls int
	got   *audio.Waveform
	lang  string
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(ctx context.Context, w *audio.Waveform, languageTag string) (string, error) {
	f.calls++
	f.got = w
	f.lang = languageTag
	return f.fn(ctx, w)
}

func returns(text string, err error) *fakeRecognizer {
	return &fakeRecognizer{fn: func(context.Context, *audio.Waveform) (string, error) { return text, err }}
}

func tone(seconds float64, rate int) *audio.Waveform {
	n := int(seconds * float64(rate))
	w := &audio.Waveform{Samples: make([]float32, n), SampleRate: rate}
	for i := range w.Samples {
		w.Samples[i] = float32(0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	return w
}

func writeCanonical(t *testing.T, dir, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := audio.NewCodec(dir, zerolog.Nop()).Export(tone(seconds, audio.CanonicalRate), path); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeStereo44k(t *testing.T, dir, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	frames := int(seconds * 44100)
	data := make([]int, 2*frames)
	for i := range data {
		data[i] = (i % 200) * 50
	}
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: 44100, NumChannels: 2},
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

type harness struct {
	tmpDir string
	out    *bytes.Buffer
	tr     *Transcriber
}

func newHarness(t *testing.T, rec Recognizer) *harness {
	t.Helper()
	h := &harness{tmpDir: t.TempDir(), out: &bytes.Buffer{}}
	h.tr = NewTranscriber(rec, audio.NewCodec(h.tmpDir, zerolog.Nop()), Options{
		Language:    "bg-BG",
		Calibration: 200 * time.Millisecond,
		TempDir:     h.tmpDir,
	}, h.out, i18n.T("bg"), zerolog.Nop())
	return h
}

func (h *harness) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temp files left behind: %v", names)
	}
}

func TestTranscribeOutcomes(t *testing.T) {
	long := errors.New(strings.Repeat("грешка ", 20))

	tests := []struct {
		name       string
		rec        *fakeRecognizer
		canonical  bool
		wantStatus Status
		wantText   string
		wantLine   string
	}{
		{"canonical success", returns("здравей свят", nil), true, StatusTranscribed, "здравей свят", "Сегмент 3: Успешно транскрибиран (2 думи)"},
		{"converted success", returns("добър ден", nil), false, StatusTranscribed, "добър ден", "Успешно транскрибиран"},
		{"no speech", returns("", ErrNoSpeech), false, StatusNoSpeech, "", "няма разпознаваема реч"},
		{"blank text", returns("   ", nil), true, StatusNoSpeech, "", "няма разпознаваема реч"},
		{"service error", returns("", ErrServiceUnavailable), false, StatusServiceError, "", "грешка в услугата"},
		{"wrapped service error", returns("", errors.Join(ErrServiceUnavailable, errors.New("HTTP 503"))), true, StatusServiceError, "", "грешка в услугата"},
		{"generic error", returns("", long), false, StatusFailed, "", "Пропуснат - грешка"},
		{"panic", &fakeRecognizer{fn: func(context.Context, *audio.Waveform) (string, error) { panic("boom") }}, false, StatusFailed, "", "panic: boom..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.rec)
			srcDir := t.TempDir()

			var path string
			if tt.canonical {
				path = writeCanonical(t, srcDir, "chunk.wav", 1)
			} else {
				path = writeStereo44k(t, srcDir, "chunk.wav", 1)
			}

			res := h.tr.Transcribe(context.Background(), path, 3)

			if res.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s (err %v)", res.Status, tt.wantStatus, res.Err)
			}
			if res.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", res.Text, tt.wantText)
			}
			if res.Skipped() != (tt.wantStatus != StatusTranscribed) {
				t.Errorf("Skipped() = %v", res.Skipped())
			}
			if tt.rec.calls != 1 {
				t.Errorf("recognizer called %d times", tt.rec.calls)
			}
			if tt.rec.lang != "bg-BG" {
				t.Errorf("language = %q", tt.rec.lang)
			}
			if !strings.Contains(h.out.String(), tt.wantLine) {
				t.Errorf("output %q does not contain %q", h.out.String(), tt.wantLine)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("input file was removed: %v", err)
			}
			h.assertNoTempFiles(t)
		})
	}
}

func TestTranscribeCalibration(t *testing.T) {
	rec := returns("текст", nil)
	h := newHarness(t, rec)
	path := writeCanonical(t, t.TempDir(), "one.wav", 1)

	h.tr.Transcribe(context.Background(), path, 1)

	if rec.got == nil {
		t.Fatal("recognizer not called")
	}
	want := audio.CanonicalRate - audio.CanonicalRate/5
	if rec.got.Len() != want {
		t.Errorf("recognized %d samples, want %d", rec.got.Len(), want)
	}
	if rec.got.SampleRate != audio.CanonicalRate {
		t.Errorf("SampleRate = %d", rec.got.SampleRate)
	}
}

func TestTranscribeConvertsToCanonical(t *testing.T) {
	rec := returns("текст", nil)
	h := newHarness(t, rec)
	path := writeStereo44k(t, t.TempDir(), "stereo.wav", 1)

	res := h.tr.Transcribe(context.Background(), path, 1)
	if res.Status != StatusTranscribed {
		t.Fatalf("Status = %s (%v)", res.Status, res.Err)
	}
	if rec.got.SampleRate != audio.CanonicalRate {
		t.Errorf("recognizer got %d Hz", rec.got.SampleRate)
	}
	h.assertNoTempFiles(t)
}

func TestTranscribeConversionFailure(t *testing.T) {
	rec := returns("never", nil)
	h := newHarness(t, rec)

	path := filepath.Join(t.TempDir(), "broken.mp3")
	if err := os.WriteFile(path, []byte("not an mp3 at all"), 0644); err != nil {
		t.Fatal(err)
	}

	res := h.tr.Transcribe(context.Background(), path, 2)
	if res.Status != StatusConversionFailed {
		t.Errorf("Status = %s, want %s", res.Status, StatusConversionFailed)
	}
	if rec.calls != 0 {
		t.Error("recognizer must not be called when conversion fails")
	}
	if !strings.Contains(h.out.String(), "Сегмент 2: Пропуснат - грешка при конвертиране") {
		t.Errorf("output = %q", h.out.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("input file was removed")
	}
	h.assertNoTempFiles(t)
}

func TestTranscribeMissingFile(t *testing.T) {
	rec := returns("never", nil)
	h := newHarness(t, rec)

	res := h.tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), 1)
	if res.Status != StatusFailed {
		t.Errorf("Status = %s", res.Status)
	}
	if rec.calls != 0 {
		t.Error("recognizer called for a missing file")
	}
	h.assertNoTempFiles(t)
}

func TestTranscribeTimeout(t *testing.T) {
	rec := &fakeRecognizer{fn: func(ctx context.Context, _ *audio.Waveform) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			return "", errors.New("no deadline")
		}
		return "ok", nil
	}}
	h := newHarness(t, rec)
	h.tr.opts.Timeout = time.Minute

	res := h.tr.Transcribe(context.Background(), writeCanonical(t, t.TempDir(), "a.wav", 0.5), 1)
	if res.Status != StatusTranscribed {
		t.Errorf("Status = %s (%v)", res.Status, res.Err)
	}
}

func TestShortReason(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"short", "short..."},
		{strings.Repeat("я", 60), strings.Repeat("я", 50) + "..."},
		{strings.Repeat("a", 50), strings.Repeat("a", 50) + "..."},
	}

	for _, tt := range tests {
		got := shortReason(tt.msg)
		if got != tt.want {
			t.Errorf("shortReason(%d runes) = %q", utf8.RuneCountInString(tt.msg), got)
		}
	}
}

func TestBaseLanguage(t *testing.T) {
	tests := map[string]string{
		"bg-BG": "bg",
		"en_US": "en",
		"BG":    "bg",
		"":      "",
	}
	for in, want := range tests {
		if got := baseLanguage(in); got != want {
			t.Errorf("baseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
