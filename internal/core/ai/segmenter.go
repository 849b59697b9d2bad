package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guiyumin/bgscribe/internal/core/ai/output"
	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

// SegmentsDirName is the folder under the output directory that holds generated chunks.
const SegmentsDirName = "generated_segments"

// ErrSplitFailed is returned when a source file cannot be split into chunks.
var ErrSplitFailed = errors.New("failed to split audio file")

// ChunkInfo represents a chunk of audio.
type ChunkInfo struct {
	Index    int           `json:"index"`
	FilePath string        `json:"file"`
	Start    time.Duration `json:"start"`
	End      time.Duration `json:"end"`
}

// Duration returns the length of the chunk.
func (c ChunkInfo) Duration() time.Duration {
	return c.End - c.Start
}

// Codec decodes sources and writes chunk files.
type Codec interface {
	LoadCanonical(ctx context.Context, path string) (*audio.Waveform, error)
	Export(w *audio.Waveform, path string) error
}

// Segmenter splits long recordings into fixed-length chunk files.
type Segmenter struct {
	codec Codec
	dir   string
	out   io.Writer
	tr    *i18n.Translations
	log   zerolog.Logger
}

// NewSegmenter creates a Segmenter writing chunks into dir.
func NewSegmenter(codec Codec, dir string, out io.Writer, tr *i18n.Translations, log zerolog.Logger) *Segmenter {
	if out == nil {
		out = io.Discard
	}
	if tr == nil {
		tr = i18n.T("")
	}
	return &Segmenter{codec: codec, dir: dir, out: out, tr: tr, log: log}
}

// Dir returns the directory chunks are written to.
func (s *Segmenter) Dir() string {
	return s.dir
}

// Split cuts filePath into chunks of the given length. Every chunk but the
// last is exactly chunk long; together they cover the source without gaps.
// On any failure the chunks written so far are removed and ErrSplitFailed is
// returned.
func (s *Segmenter) Split(ctx context.Context, filePath string, chunk time.Duration) ([]ChunkInfo, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("%w: chunk duration must be positive, got %v", ErrSplitFailed, chunk)
	}

	chunks, err := s.split(ctx, filePath, chunk)
	if err != nil {
		s.log.Error().Err(err).Str("file", filePath).Msg("split failed")
		fmt.Fprintf(s.out, s.tr.Split.Failed+"\n", err)
		for _, c := range chunks {
			os.Remove(c.FilePath)
		}
		return nil, fmt.Errorf("%w: %w", ErrSplitFailed, err)
	}

	fmt.Fprintf(s.out, "\n"+s.tr.Split.Done+"\n", len(chunks))
	return chunks, nil
}

// split returns the chunks written so far alongside any error.
func (s *Segmenter) split(ctx context.Context, filePath string, chunk time.Duration) ([]ChunkInfo, error) {
	fmt.Fprintf(s.out, s.tr.Split.Loading+"\n", filepath.Base(filePath))

	w, err := s.codec.LoadCanonical(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if w.Len() == 0 || w.SampleRate <= 0 {
		return nil, fmt.Errorf("%s contains no audio", filepath.Base(filePath))
	}

	bounds := chunkBounds(w.Len(), w.SampleRate, chunk)

	fmt.Fprintf(s.out, s.tr.Split.TotalDuration+"\n", w.Duration().Minutes())
	fmt.Fprintf(s.out, s.tr.Split.Planned+"\n", len(bounds), chunk.Minutes())
	fmt.Fprintln(s.out, s.tr.Split.Starting)
	fmt.Fprintln(s.out)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create segments directory: %w", err)
	}

	base := output.SanitizeName(strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)))
	rate := float64(w.SampleRate)

	var chunks []ChunkInfo
	for i, b := range bounds {
		name := fmt.Sprintf("%s_segment_%03d.wav", base, i+1)
		chunkPath := filepath.Join(s.dir, name)

		if err := s.codec.Export(w.Slice(b[0], b[1]), chunkPath); err != nil {
			return chunks, fmt.Errorf("failed to export chunk %d: %w", i+1, err)
		}

		info := ChunkInfo{
			Index:    i + 1,
			FilePath: chunkPath,
			Start:    samplesToDuration(b[0], rate),
			End:      samplesToDuration(b[1], rate),
		}
		chunks = append(chunks, info)

		fmt.Fprintf(s.out, s.tr.Split.ChunkCreated+"\n", i+1, len(bounds), name, info.Duration().Minutes())
		s.log.Debug().Int("chunk", i+1).Int("start", b[0]).Int("end", b[1]).Msg("chunk exported")
	}

	return chunks, nil
}

// chunkBounds returns [start, end) sample ranges of length chunk over n
// samples. The count is ceil(n / chunkSamples); only the last range may be
// shorter.
func chunkBounds(n, rate int, chunk time.Duration) [][2]int {
	per := chunk.Seconds() * float64(rate)
	if n <= 0 || per <= 0 {
		return nil
	}

	count := int(math.Ceil(float64(n) / per))
	bounds := make([][2]int, 0, count)
	for i := 0; i < count; i++ {
		start := int(math.Round(float64(i) * per))
		end := min(int(math.Round(float64(i+1)*per)), n)
		if start >= end {
			break
		}
		bounds = append(bounds, [2]int{start, end})
	}
	if len(bounds) > 0 {
		bounds[len(bounds)-1][1] = n
	}
	return bounds
}

func samplesToDuration(n int, rate float64) time.Duration {
	return time.Duration(float64(n) / rate * float64(time.Second))
}
