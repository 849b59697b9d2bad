package ai

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

	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

// fakeCodec serves a fixed waveform and records exports.
type fakeCodec struct {
	w        *audio.Waveform
	loadErr  error
	failAt   int
	exported []*audio.Waveform
}

func (f *fakeCodec) LoadCanonical(ctx context.Context, path string) (*audio.Waveform, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.w, nil
}

func (f *fakeCodec) Export(w *audio.Waveform, path string) error {
	if f.failAt > 0 && len(f.exported)+1 == f.failAt {
		return errors.New("disk full")
	}
	f.exported = append(f.exported, w)
	return os.WriteFile(path, []byte("chunk"), 0644)
}

func silence(d time.Duration, rate int) *audio.Waveform {
	return &audio.Waveform{Samples: make([]float32, int(d.Seconds()*float64(rate))), SampleRate: rate}
}

func TestSplitTenMinutes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), SegmentsDirName)
	codec := &fakeCodec{w: silence(10*time.Minute, 100)}
	out := &bytes.Buffer{}
	s := NewSegmenter(codec, dir, out, i18n.T("bg"), zerolog.Nop())

	chunks, err := s.Split(context.Background(), "/recordings/lecture.mp3", config.MinutesToDuration(3.07))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}

	wantMinutes := []float64{3.07, 3.07, 3.07, 0.79}
	var prevEnd time.Duration
	for i, c := range chunks {
		if c.Index != i+1 {
			t.Errorf("chunk %d Index = %d", i, c.Index)
		}
		if c.Start != prevEnd {
			t.Errorf("chunk %d starts at %v, previous ended at %v", i+1, c.Start, prevEnd)
		}
		prevEnd = c.End

		if got := c.Duration().Minutes(); math.Abs(got-wantMinutes[i]) > 0.001 {
			t.Errorf("chunk %d lasts %.4f min, want %.2f", i+1, got, wantMinutes[i])
		}

		wantName := filepath.Join(dir, "lecture_segment_00"+string(rune('1'+i))+".wav")
		if c.FilePath != wantName {
			t.Errorf("chunk %d path = %q, want %q", i+1, c.FilePath, wantName)
		}
		if _, err := os.Stat(c.FilePath); err != nil {
			t.Errorf("chunk %d not written: %v", i+1, err)
		}
	}
	if prevEnd != 10*time.Minute {
		t.Errorf("chunks end at %v, want 10m", prevEnd)
	}

	total := 0
	for _, w := range codec.exported {
		total += w.Len()
	}
	if total != codec.w.Len() {
		t.Errorf("exported %d samples, source has %d", total, codec.w.Len())
	}

	for _, want := range []string{"Ще се създадат 4 сегмента", "Създаден сегмент 4/4: lecture_segment_004.wav (0.79 мин)", "Успешно създадени 4 сегмента"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestChunkBounds(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		rate  int
		chunk time.Duration
		want  [][2]int
	}{
		{"exact multiple", 300, 100, time.Second, [][2]int{{0, 100}, {100, 200}, {200, 300}}},
		{"short tail", 250, 100, time.Second, [][2]int{{0, 100}, {100, 200}, {200, 250}}},
		{"shorter than chunk", 40, 100, time.Second, [][2]int{{0, 40}}},
		{"fractional chunk", 10, 10, 250 * time.Millisecond, [][2]int{{0, 3}, {3, 5}, {5, 8}, {8, 10}}},
		{"empty", 0, 100, time.Second, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkBounds(tt.n, tt.rate, tt.chunk)
			if len(got) != len(tt.want) {
				t.Fatalf("chunkBounds = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("bound %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitRejectsBadChunk(t *testing.T) {
	codec := &fakeCodec{w: silence(time.Minute, 100)}
	s := NewSegmenter(codec, t.TempDir(), nil, nil, zerolog.Nop())

	for _, chunk := range []time.Duration{0, -time.Second} {
		if _, err := s.Split(context.Background(), "x.wav", chunk); !errors.Is(err, ErrSplitFailed) {
			t.Errorf("Split(%v) err = %v, want ErrSplitFailed", chunk, err)
		}
	}
	if len(codec.exported) != 0 {
		t.Error("nothing should be exported")
	}
}

func TestSplitDecodeFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), SegmentsDirName)
	codec := &fakeCodec{loadErr: errors.New("bad header")}
	out := &bytes.Buffer{}
	s := NewSegmenter(codec, dir, out, i18n.T("bg"), zerolog.Nop())

	chunks, err := s.Split(context.Background(), "broken.mp3", time.Minute)
	if !errors.Is(err, ErrSplitFailed) {
		t.Fatalf("err = %v, want ErrSplitFailed", err)
	}
	if chunks != nil {
		t.Errorf("chunks = %v", chunks)
	}
	if !strings.Contains(out.String(), "Грешка при разбиване на файла: bad header") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSplitExportFailureRemovesPartialChunks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), SegmentsDirName)
	codec := &fakeCodec{w: silence(5*time.Minute, 100), failAt: 3}
	s := NewSegmenter(codec, dir, nil, nil, zerolog.Nop())

	chunks, err := s.Split(context.Background(), "talk.wav", time.Minute)
	if !errors.Is(err, ErrSplitFailed) {
		t.Fatalf("err = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunks", len(chunks))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d partial chunk files left behind", len(entries))
	}
}

func TestSplitRealAudio(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "speech.wav")
	codec := audio.NewCodec(tmp, zerolog.Nop())

	// 2.5 s at 8 kHz, resampled to 16 kHz on load
	if err := codec.Export(silence(2500*time.Millisecond, 8000), src); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(tmp, "out", SegmentsDirName)
	s := NewSegmenter(codec, dir, nil, nil, zerolog.Nop())
	chunks, err := s.Split(context.Background(), src, time.Second)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}

	for _, c := range chunks {
		f, err := codec.ReadFormat(c.FilePath)
		if err != nil {
			t.Fatal(err)
		}
		if !f.Canonical() {
			t.Errorf("%s is not canonical: %+v", filepath.Base(c.FilePath), f)
		}
	}

	last, err := codec.Load(context.Background(), chunks[2].FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if d := last.Duration(); d < 490*time.Millisecond || d > 510*time.Millisecond {
		t.Errorf("last chunk lasts %v, want ~500ms", d)
	}
}
