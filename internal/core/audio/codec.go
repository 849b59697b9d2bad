package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
	"github.com/rs/zerolog"
)

// ErrUnsupportedFormat is returned for containers the codec cannot read.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// blockFrames is the decode unit for streaming decoders.
const blockFrames = 8192

// Format describes an audio file as found on disk.
type Format struct {
	Container  string // "wav", "mp3", ...
	SampleRate int
	Channels   int
	BitDepth   int
	PCM        bool
}

// Canonical reports whether the file can be fed to a recognizer untouched:
// 16-bit PCM WAV, mono, 16 kHz.
func (f Format) Canonical() bool {
	return f.Container == "wav" && f.PCM &&
		f.Channels == 1 && f.SampleRate == CanonicalRate && f.BitDepth == CanonicalBitDepth
}

// Codec loads audio into mono waveforms and writes canonical WAV files.
// WAV, MP3 and FLAC are decoded in pure Go; anything else goes through the
// embedded ffmpeg.
type Codec struct {
	// TempDir holds intermediate ffmpeg output. Empty means os.TempDir().
	TempDir string
	Log     zerolog.Logger
}

// NewCodec creates a Codec.
func NewCodec(tempDir string, log zerolog.Logger) *Codec {
	return &Codec{TempDir: tempDir, Log: log}
}

// Load decodes path into a mono waveform at the file's native rate.
func (c *Codec) Load(ctx context.Context, path string) (*Waveform, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		w   *Waveform
		err error
	)
	switch ext {
	case ".wav":
		w, err = decodeWAV(path)
		if errors.Is(err, ErrUnsupportedFormat) {
			// non-PCM WAV (float, ADPCM...)
			w, err = c.loadViaFFmpeg(ctx, path)
		}
	case ".mp3":
		w, err = decodeMP3(path)
	case ".flac":
		w, err = decodeFLAC(path)
	default:
		w, err = c.loadViaFFmpeg(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	c.Log.Debug().
		Str("file", filepath.Base(path)).
		Int("sample_rate", w.SampleRate).
		Dur("duration", w.Duration()).
		Msg("audio decoded")
	return w, nil
}

// LoadCanonical decodes path and resamples it to CanonicalRate.
func (c *Codec) LoadCanonical(ctx context.Context, path string) (*Waveform, error) {
	w, err := c.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return Resample(w, CanonicalRate), nil
}

// Export writes w as a 16-bit PCM mono WAV file at w's sample rate.
func (c *Codec) Export(w *Waveform, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeWAV(file, w); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

// ReadFormat reads the header of path without decoding samples.
func (c *Codec) ReadFormat(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer file.Close()

	d := wav.NewDecoder(file)
	if d.IsValidFile() {
		return Format{
			Container:  "wav",
			SampleRate: int(d.SampleRate),
			Channels:   int(d.NumChans),
			BitDepth:   int(d.BitDepth),
			PCM:        d.WavAudioFormat == wavFormatPCM,
		}, nil
	}

	return Format{Container: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")}, nil
}

// EncodeWAV returns w as an in-memory 16-bit PCM WAV file.
func EncodeWAV(w *Waveform) ([]byte, error) {
	buf := &memFile{}
	if err := encodeWAV(buf, w); err != nil {
		return nil, err
	}
	return buf.data, nil
}

func encodeWAV(out io.WriteSeeker, w *Waveform) error {
	encoder := wav.NewEncoder(out, w.SampleRate, CanonicalBitDepth, 1, wavFormatPCM)

	intBuf := &goaudio.IntBuffer{
		Data:           make([]int, len(w.Samples)),
		Format:         &goaudio.Format{SampleRate: w.SampleRate, NumChannels: 1},
		SourceBitDepth: CanonicalBitDepth,
	}
	for i, s := range w.Samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		intBuf.Data[i] = int(s * 32767)
	}

	if err := encoder.Write(intBuf); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}

func decodeWAV(path string) (*Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	d := wav.NewDecoder(file)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("invalid WAV channel count %d", channels)
	}
	if d.BitDepth == 0 || d.BitDepth > 32 {
		return nil, fmt.Errorf("invalid WAV bit depth %d", d.BitDepth)
	}
	full := float32(int64(1) << (d.BitDepth - 1))
	offset := 0
	if d.BitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	w := &Waveform{SampleRate: int(d.SampleRate)}
	buf := &goaudio.IntBuffer{
		Data:   make([]int, blockFrames*channels),
		Format: d.Format(),
	}
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if n == 0 {
			break
		}
		w.Samples = downmix(w.Samples, buf.Data[:n], channels, full, offset)
		if err == io.EOF {
			break
		}
	}

	return w, nil
}

func decodeMP3(path string) (*Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, err
	}

	// go-mp3 always yields 16-bit little-endian stereo
	const frameBytes = 4
	const maxInt16 = 32768.0

	w := &Waveform{SampleRate: decoder.SampleRate()}
	if length := decoder.Length(); length > 0 {
		w.Samples = make([]float32, 0, length/frameBytes)
	}

	raw := make([]byte, blockFrames*frameBytes)
	var pending []byte
	for {
		n, err := decoder.Read(raw)
		pending = append(pending, raw[:n]...)

		whole := len(pending) / frameBytes * frameBytes
		for i := 0; i < whole; i += frameBytes {
			left := int16(pending[i]) | int16(pending[i+1])<<8
			right := int16(pending[i+2]) | int16(pending[i+3])<<8
			w.Samples = append(w.Samples, float32((int32(left)+int32(right))/2)/maxInt16)
		}
		pending = append(pending[:0], pending[whole:]...)

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}

func decodeFLAC(path string) (*Waveform, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	nChannels := int(stream.Info.NChannels)
	maxVal := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	w := &Waveform{SampleRate: int(stream.Info.SampleRate)}
	if stream.Info.NSamples > 0 {
		w.Samples = make([]float32, 0, stream.Info.NSamples)
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		nSamples := len(frame.Subframes[0].Samples)
		for i := 0; i < nSamples; i++ {
			var mono int64
			for ch := 0; ch < nChannels; ch++ {
				mono += int64(frame.Subframes[ch].Samples[i])
			}
			mono /= int64(nChannels)
			w.Samples = append(w.Samples, float32(mono)/maxVal)
		}
	}

	return w, nil
}

func (c *Codec) loadViaFFmpeg(ctx context.Context, path string) (*Waveform, error) {
	tmp, err := os.CreateTemp(c.TempDir, "bgscribe-ffmpeg-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	c.Log.Debug().Str("file", filepath.Base(path)).Msg("converting with embedded ffmpeg")
	if err := convertWithFFmpeg(ctx, path, tmpPath); err != nil {
		return nil, err
	}
	return decodeWAV(tmpPath)
}

// memFile is an in-memory io.WriteSeeker for the WAV encoder, which
// rewrites the header sizes on Close.
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.data) {
		if end > cap(m.data) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative position %d", abs)
	}
	m.pos = int(abs)
	return abs, nil
}
