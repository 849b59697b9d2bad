// Package output writes transcription results to disk.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guiyumin/bgscribe/internal/core/ai/summarizer"
	"github.com/guiyumin/bgscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
)

const (
	// TimestampLayout names the artifacts of one run.
	TimestampLayout = "20060102_150405"

	// DateLayout is the generation date printed in text headers.
	DateLayout = "02.01.2006 15:04:05"
)

// SegmentRecord is one transcribed chunk as serialized to JSON.
type SegmentRecord struct {
	Segment      int    `json:"segment"`
	File         string `json:"file"`
	OriginalFile string `json:"original_file,omitempty"`
	Text         string `json:"text"`

	Status transcriber.Status `json:"-"`
}

// Artifacts lists the files written for one run.
type Artifacts struct {
	Prefix       string
	Timestamp    string
	JSONPath     string
	SegmentsPath string
	FullTextPath string
	SummaryPath  string
	Stats        Statistics
}

// Writer writes result artifacts into Dir.
type Writer struct {
	dir string
	out io.Writer
	tr  *i18n.Translations
	now func() time.Time
}

// NewWriter creates a Writer. Progress goes to out.
func NewWriter(dir string, out io.Writer, tr *i18n.Translations) *Writer {
	if out == nil {
		out = io.Discard
	}
	if tr == nil {
		tr = i18n.T("")
	}
	return &Writer{dir: dir, out: out, tr: tr, now: time.Now}
}

// SetClock replaces the time source.
func (w *Writer) SetClock(now func() time.Time) {
	w.now = now
}

// Write stores records as JSON, the per-segment text and the full text,
// then prints the file list and statistics. source is the original file
// name in large-file mode and empty in folder mode.
func (w *Writer) Write(records []SegmentRecord, fullText []string, source string) (*Artifacts, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	now := w.now()
	a := &Artifacts{
		Prefix:    FilePrefix(source),
		Timestamp: now.Format(TimestampLayout),
		Stats:     ComputeStatistics(records, fullText),
	}
	a.JSONPath = w.path(a, "transcripts", ".json")
	a.SegmentsPath = w.path(a, "segments_text", ".txt")
	a.FullTextPath = w.path(a, "full_text", ".txt")

	if err := writeJSON(a.JSONPath, records); err != nil {
		return nil, err
	}
	if err := os.WriteFile(a.SegmentsPath, []byte(w.segmentsText(records, source, now)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write segments text: %w", err)
	}
	if err := os.WriteFile(a.FullTextPath, []byte(w.fullText(fullText, source, now)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write full text: %w", err)
	}

	w.printReport(a)
	return a, nil
}

// WriteSummary writes the summary next to the other artifacts of a.
func (w *Writer) WriteSummary(a *Artifacts, source string, result *summarizer.Result) error {
	var b strings.Builder

	title := w.tr.Report.SummaryHeader
	if source != "" {
		title += ": " + source
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**%s**\n", fmt.Sprintf(w.tr.Report.Date, w.now().Format(DateLayout)))
	b.WriteString("\n---\n\n")

	b.WriteString(result.Summary)
	b.WriteString("\n")

	if len(result.KeyPoints) > 0 {
		b.WriteString("\n")
		for _, point := range result.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
	}

	path := w.path(a, "summary", ".md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	a.SummaryPath = path
	fmt.Fprintf(w.out, w.tr.Report.SummaryFile+"\n", path)
	return nil
}

func (w *Writer) path(a *Artifacts, kind, ext string) string {
	return filepath.Join(w.dir, a.Prefix+kind+"_"+a.Timestamp+ext)
}

func writeJSON(path string, records []SegmentRecord) error {
	if records == nil {
		records = []SegmentRecord{}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return f.Close()
}

func (w *Writer) header(b *strings.Builder, title string, rule int, source string, now time.Time) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", rule) + "\n")
	if source != "" {
		fmt.Fprintf(b, w.tr.Report.OriginalFile+"\n", source)
	}
	fmt.Fprintf(b, w.tr.Report.Date+"\n\n", now.Format(DateLayout))
}

func (w *Writer) segmentsText(records []SegmentRecord, source string, now time.Time) string {
	var b strings.Builder
	w.header(&b, w.tr.Report.SegmentsHeader, 40, source, now)
	for _, r := range records {
		fmt.Fprintf(&b, w.tr.Report.Segment+"\n", r.Segment, r.File)
		b.WriteString(r.Text + "\n\n")
	}
	return b.String()
}

func (w *Writer) fullText(fullText []string, source string, now time.Time) string {
	var b strings.Builder
	w.header(&b, w.tr.Report.FullHeader, 30, source, now)
	b.WriteString(strings.Join(fullText, " "))
	return b.String()
}

func (w *Writer) printReport(a *Artifacts) {
	r := w.tr.Report
	fmt.Fprintln(w.out, r.Done)
	fmt.Fprintf(w.out, r.JSONFile+"\n", a.JSONPath)
	fmt.Fprintf(w.out, r.SegmentsFile+"\n", a.SegmentsPath)
	fmt.Fprintf(w.out, r.FullFile+"\n", a.FullTextPath)

	s := w.tr.Stats
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, s.Title)
	fmt.Fprintf(w.out, s.Total+"\n", a.Stats.Total)
	fmt.Fprintf(w.out, s.Transcribed+"\n", a.Stats.Transcribed)
	fmt.Fprintf(w.out, s.Skipped+"\n", a.Stats.Skipped)
	if rate, err := a.Stats.SuccessRate(); err != nil {
		fmt.Fprintln(w.out, s.NoSegments)
	} else {
		fmt.Fprintf(w.out, s.SuccessRate+"\n", rate)
	}
	fmt.Fprintf(w.out, s.Words+"\n", a.Stats.Words)
}

// FilePrefix returns the artifact prefix for a source file name:
// the sanitized base name without extension plus "_", or "" for no source.
func FilePrefix(source string) string {
	if source == "" {
		return ""
	}
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeName(base) + "_"
}

// SanitizeName replaces characters that are unsafe in file names with "_".
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
}
