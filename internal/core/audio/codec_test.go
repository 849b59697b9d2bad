package audio

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

func sine(seconds float64, rate int, freq float64) *Waveform {
	n := int(seconds * float64(rate))
	w := &Waveform{Samples: make([]float32, n), SampleRate: rate}
	for i := range w.Samples {
		w.Samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return w
}

// writeRawWAV writes interleaved PCM with an arbitrary layout.
func writeRawWAV(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExportLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	codec := NewCodec(dir, zerolog.Nop())

	src := sine(0.5, CanonicalRate, 440)
	if err := codec.Export(src, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	got, err := codec.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SampleRate != CanonicalRate {
		t.Errorf("SampleRate = %d", got.SampleRate)
	}
	if got.Len() != src.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), src.Len())
	}
	for i := range src.Samples {
		if math.Abs(float64(got.Samples[i]-src.Samples[i])) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, got.Samples[i], src.Samples[i])
		}
	}
}

func TestReadFormat(t *testing.T) {
	dir := t.TempDir()
	codec := NewCodec(dir, zerolog.Nop())

	canonical := filepath.Join(dir, "canonical.wav")
	if err := codec.Export(sine(0.1, CanonicalRate, 300), canonical); err != nil {
		t.Fatal(err)
	}

	stereo := filepath.Join(dir, "stereo.wav")
	writeRawWAV(t, stereo, 44100, 16, 2, make([]int, 4410*2))

	lowRate := filepath.Join(dir, "low.wav")
	writeRawWAV(t, lowRate, 8000, 16, 1, make([]int, 800))

	notWAV := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(notWAV, []byte("ID3 not really"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		path          string
		wantContainer string
		wantCanonical bool
	}{
		{"canonical", canonical, "wav", true},
		{"stereo 44.1k", stereo, "wav", false},
		{"8 kHz mono", lowRate, "wav", false},
		{"mp3", notWAV, "mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := codec.ReadFormat(tt.path)
			if err != nil {
				t.Fatalf("ReadFormat: %v", err)
			}
			if f.Container != tt.wantContainer {
				t.Errorf("Container = %q, want %q", f.Container, tt.wantContainer)
			}
			if f.Canonical() != tt.wantCanonical {
				t.Errorf("Canonical() = %v, want %v (%+v)", f.Canonical(), tt.wantCanonical, f)
			}
		})
	}

	if _, err := codec.ReadFormat(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("ReadFormat of a missing file should fail")
	}
}

func TestLoadStereoDownmix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stereo.wav")

	// left at +half scale, right silent
	data := make([]int, 2*4410)
	for i := 0; i < len(data); i += 2 {
		data[i] = 16384
	}
	writeRawWAV(t, path, 44100, 16, 2, data)

	codec := NewCodec(dir, zerolog.Nop())
	w, err := codec.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.SampleRate != 44100 || w.Len() != 4410 {
		t.Fatalf("got %d samples at %d Hz", w.Len(), w.SampleRate)
	}
	if math.Abs(float64(w.Samples[0])-0.25) > 1e-3 {
		t.Errorf("downmixed sample = %v, want 0.25", w.Samples[0])
	}

	canon, err := codec.LoadCanonical(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadCanonical: %v", err)
	}
	if canon.SampleRate != CanonicalRate {
		t.Errorf("SampleRate = %d", canon.SampleRate)
	}
	if n := canon.Len(); n < 1599 || n > 1600 {
		t.Errorf("Len() = %d, want ~1600", n)
	}
}

func TestLoadEightBit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eight.wav")
	writeRawWAV(t, path, 8000, 8, 1, []int{128, 192, 64, 0})

	w, err := NewCodec(dir, zerolog.Nop()).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []float32{0, 0.5, -0.5, -1}
	for i := range want {
		if math.Abs(float64(w.Samples[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, w.Samples[i], want[i])
		}
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	codec := NewCodec(dir, zerolog.Nop())

	bad := filepath.Join(dir, "bad.mp3")
	if err := os.WriteFile(bad, []byte("definitely not audio"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := codec.Load(context.Background(), bad); err == nil {
		t.Error("Load of a corrupt mp3 should fail")
	}

	if _, err := codec.Load(context.Background(), filepath.Join(dir, "missing.flac")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestEncodeWAV(t *testing.T) {
	data, err := EncodeWAV(sine(0.25, CanonicalRate, 1000))
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", data[:12])
	}
	// 44-byte header plus 2 bytes per sample
	if want := 44 + 4000*2; len(data) != want {
		t.Errorf("len = %d, want %d", len(data), want)
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		t.Fatal("encoded data does not decode")
	}
	if d.SampleRate != CanonicalRate || d.NumChans != 1 || d.BitDepth != CanonicalBitDepth {
		t.Errorf("header = %d Hz, %d ch, %d bit", d.SampleRate, d.NumChans, d.BitDepth)
	}
}

func TestMemFileSeek(t *testing.T) {
	m := &memFile{}
	m.Write([]byte("abcdef"))
	if _, err := m.Seek(2, 0); err != nil {
		t.Fatal(err)
	}
	m.Write([]byte("XY"))
	if string(m.data) != "abXYef" {
		t.Errorf("data = %q", m.data)
	}
	if _, err := m.Seek(-10, 1); err == nil {
		t.Error("negative seek should fail")
	}
	if _, err := m.Seek(0, 7); err == nil {
		t.Error("invalid whence should fail")
	}
}
