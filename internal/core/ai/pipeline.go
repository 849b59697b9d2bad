// Package ai drives batch transcription: split a recording or scan a
// folder, transcribe every chunk in order and write the results.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/guiyumin/bgscribe/internal/core/ai/output"
	"github.com/guiyumin/bgscribe/internal/core/ai/summarizer"
	"github.com/guiyumin/bgscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/bgscribe/internal/core/audio"
	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/rs/zerolog"
)

// ErrNoInputFound is returned when folder mode finds nothing to transcribe.
var ErrNoInputFound = errors.New("no audio files found")

// audioExtensions are the inputs folder mode picks up.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
}

// SegmentTranscriber transcribes one chunk file.
type SegmentTranscriber interface {
	Transcribe(ctx context.Context, path string, seq int) transcriber.Outcome
}

// Options configures a Pipeline.
type Options struct {
	// ConfirmCleanup is asked whether generated chunks may be deleted after
	// large-file mode. Nil keeps them.
	ConfirmCleanup func(n int) bool

	// Summarizer writes an extra summary artifact when set.
	Summarizer summarizer.Summarizer
}

// BatchResult holds everything one workflow produced.
type BatchResult struct {
	Records  []output.SegmentRecord
	FullText []string
	Source   string
	Chunks   []ChunkInfo

	Artifacts *output.Artifacts
	Cleaned   bool
}

func (r *BatchResult) add(rec output.SegmentRecord) {
	r.Records = append(r.Records, rec)
	if strings.TrimSpace(rec.Text) != "" {
		r.FullText = append(r.FullText, rec.Text)
	}
}

// Pipeline runs the large-file and folder workflows.
type Pipeline struct {
	segmenter   *Segmenter
	transcriber SegmentTranscriber
	writer      *output.Writer
	summarizer  summarizer.Summarizer
	confirm     func(n int) bool

	out io.Writer
	tr  *i18n.Translations
	log zerolog.Logger
}

// NewPipeline wires the codec, segmenter, transcriber and writer from cfg.
// Progress lines go to out.
func NewPipeline(cfg *config.Config, rec transcriber.Recognizer, opts Options, out io.Writer, log zerolog.Logger) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	tr := i18n.T(cfg.Language)
	codec := audio.NewCodec(cfg.TempDir, log)

	t := transcriber.NewTranscriber(rec, codec, transcriber.Options{
		Language:    cfg.Recognition.Language,
		Calibration: cfg.Recognition.Calibration,
		Timeout:     cfg.Recognition.Timeout,
		TempDir:     cfg.TempDir,
	}, out, tr, log)

	return &Pipeline{
		segmenter:   NewSegmenter(codec, filepath.Join(cfg.OutputDir, SegmentsDirName), out, tr, log),
		transcriber: t,
		writer:      output.NewWriter(cfg.OutputDir, out, tr),
		summarizer:  opts.Summarizer,
		confirm:     opts.ConfirmCleanup,
		out:         out,
		tr:          tr,
		log:         log,
	}
}

// SetClock replaces the time source used to name artifacts.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.writer.SetClock(now)
}

// ProcessLargeFile splits filePath into chunks of the given length,
// transcribes them in order and writes the results.
func (p *Pipeline) ProcessLargeFile(ctx context.Context, filePath string, chunk time.Duration) (*BatchResult, error) {
	source := filepath.Base(filePath)
	fmt.Fprintf(p.out, p.tr.Batch.LargeFile+"\n", source)

	chunks, err := p.segmenter.Split(ctx, filePath, chunk)
	if err == nil && len(chunks) == 0 {
		err = ErrSplitFailed
	}
	if err != nil {
		fmt.Fprintln(p.out, p.tr.Batch.SplitFailed)
		return nil, err
	}

	fmt.Fprintf(p.out, "\n"+p.tr.Batch.StartChunks+"\n\n", len(chunks))

	result := &BatchResult{Source: source, Chunks: chunks}
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			p.log.Warn().Int("done", i).Int("total", len(chunks)).Msg("large-file run cancelled")
			return nil, err
		}

		name := filepath.Base(c.FilePath)
		fmt.Fprintf(p.out, p.tr.Batch.ChunkProgress+"\n", i+1, len(chunks), name)

		outcome := p.transcriber.Transcribe(ctx, c.FilePath, i+1)
		result.add(output.SegmentRecord{
			Segment:      i + 1,
			File:         name,
			OriginalFile: source,
			Text:         outcome.Text,
			Status:       outcome.Status,
		})
		p.printText(outcome)
	}

	if err := p.finish(ctx, result); err != nil {
		return result, err
	}

	result.Cleaned = p.cleanup(chunks)
	return result, nil
}

// ProcessFolder transcribes every audio file directly inside dir, in name
// order, each as one segment.
func (p *Pipeline) ProcessFolder(ctx context.Context, dir string) (*BatchResult, error) {
	files, err := FindAudioFiles(dir)
	if err != nil || len(files) == 0 {
		fmt.Fprintf(p.out, p.tr.Batch.NoFiles+"\n", dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoInputFound, err)
		}
		return nil, fmt.Errorf("%w in %s", ErrNoInputFound, dir)
	}

	fmt.Fprintf(p.out, p.tr.Batch.FoundFiles+"\n", len(files))
	fmt.Fprintln(p.out, p.tr.Batch.StartFolder)
	fmt.Fprintln(p.out)

	result := &BatchResult{}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			p.log.Warn().Int("done", i).Int("total", len(files)).Msg("folder run cancelled")
			return nil, err
		}

		name := filepath.Base(path)
		fmt.Fprintf(p.out, p.tr.Batch.FileProgress+"\n", i+1, len(files), name)

		outcome := p.transcriber.Transcribe(ctx, path, i+1)
		result.add(output.SegmentRecord{
			Segment: i + 1,
			File:    name,
			Text:    outcome.Text,
			Status:  outcome.Status,
		})
		p.printText(outcome)
	}

	if err := p.finish(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// FindAudioFiles lists regular audio files directly inside dir, sorted by
// name. Extensions match case-insensitively; hidden files are ignored.
func FindAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !audioExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}

	sort.Strings(files)
	return files, nil
}

func (p *Pipeline) printText(o transcriber.Outcome) {
	text := o.Text
	if o.Skipped() {
		text = p.tr.Batch.SkippedPlaceholder
	}
	fmt.Fprintf(p.out, p.tr.Batch.Text+"\n\n", text)
}

// finish writes the artifacts and the optional summary.
func (p *Pipeline) finish(ctx context.Context, result *BatchResult) error {
	artifacts, err := p.writer.Write(result.Records, result.FullText, result.Source)
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	result.Artifacts = artifacts

	p.log.Info().
		Int("segments", artifacts.Stats.Total).
		Int("transcribed", artifacts.Stats.Transcribed).
		Str("json", artifacts.JSONPath).
		Msg("results written")

	if p.summarizer == nil || len(result.FullText) == 0 {
		return nil
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.tr.Batch.Summarizing)
	summary, err := p.summarizer.Summarize(ctx, strings.Join(result.FullText, " "))
	if err == nil {
		err = p.writer.WriteSummary(artifacts, result.Source, summary)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("provider", p.summarizer.Name()).Msg("summary not written")
		fmt.Fprintf(p.out, p.tr.Batch.SummaryFailed+"\n", err)
	}
	return nil
}

// cleanup removes generated chunks if confirmed and reports whether it did.
func (p *Pipeline) cleanup(chunks []ChunkInfo) bool {
	dir := p.segmenter.Dir()
	fmt.Fprintln(p.out)

	if p.confirm == nil || !p.confirm(len(chunks)) {
		fmt.Fprintf(p.out, p.tr.Batch.CleanupKept+"\n", dir)
		return false
	}

	for _, c := range chunks {
		if err := os.Remove(c.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.Warn().Err(err).Str("file", c.FilePath).Msg("failed to remove chunk")
		}
	}
	fmt.Fprintln(p.out, p.tr.Batch.CleanupDone)

	// only succeeds when nothing else lives there
	if err := os.Remove(dir); err == nil {
		fmt.Fprintln(p.out, p.tr.Batch.CleanupDirRemoved)
	}
	return true
}
