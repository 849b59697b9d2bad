package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/guiyumin/bgscribe/internal/core/ai"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	modeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// runInteractive walks the user through folder or large-file mode. Every
// failure is reported in red; the process still exits 0.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer) {
	errOut := color.New(color.FgRed)

	cfg, err := loadConfig(globals)
	if err != nil {
		errOut.Fprintf(out, "❌ %v\n", err)
		return
	}
	log := newLogger(cfg.LogLevel, os.Stderr)
	tr := i18n.T(cfg.Language)
	p := newPrompter(in, out)

	fmt.Fprintln(out, titleStyle.Render(tr.Prompt.Title))
	fmt.Fprintln(out, "==================================================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, tr.Prompt.Modes)
	fmt.Fprintln(out, modeStyle.Render("   "+tr.Prompt.ModeFolder))
	fmt.Fprintln(out, modeStyle.Render("   "+tr.Prompt.ModeLargeFile))
	fmt.Fprintln(out)

	mode, _ := p.ask(tr.Prompt.ChooseMode)

	if mode == "2" {
		path, minutes, err := askLargeFile(p, tr, cfg.ChunkMinutes)
		if err != nil {
			errOut.Fprintln(out, err.Error())
			return
		}
		cfg.ChunkMinutes = minutes

		pipe, err := newPipeline(cfg, p, p.confirmCleanup(tr), log)
		if err != nil {
			errOut.Fprintf(out, "❌ %v\n", err)
			return
		}
		fmt.Fprintln(out)
		if _, err := pipe.ProcessLargeFile(ctx, path, cfg.ChunkDuration()); err != nil {
			reportRunError(out, err)
		}
		return
	}

	dir, err := p.askDefault(fmt.Sprintf(tr.Prompt.FolderPath, cfg.AudioDir), cfg.AudioDir)
	if err != nil {
		dir = cfg.AudioDir
	}

	pipe, err := newPipeline(cfg, p, nil, log)
	if err != nil {
		errOut.Fprintf(out, "❌ %v\n", err)
		return
	}
	fmt.Fprintln(out)
	if _, err := pipe.ProcessFolder(ctx, dir); err != nil {
		reportRunError(out, err)
	}
}

// reportRunError prints workflow errors the pipeline has not already shown.
func reportRunError(out io.Writer, err error) {
	if errors.Is(err, ai.ErrNoInputFound) || errors.Is(err, ai.ErrSplitFailed) {
		return
	}
	color.New(color.FgRed).Fprintf(out, "❌ %v\n", err)
}

// askLargeFile asks for the source file and the chunk length. The returned
// error is already a localized message.
func askLargeFile(p *prompter, tr *i18n.Translations, defMinutes float64) (string, float64, error) {
	path, err := p.ask(tr.Prompt.LargeFilePath)
	if err != nil {
		return "", 0, errors.New(tr.Prompt.FileMissing)
	}
	if info, err := os.Stat(path); path == "" || err != nil || info.IsDir() {
		return "", 0, errors.New(tr.Prompt.FileMissing)
	}

	answer, _ := p.ask(fmt.Sprintf(tr.Prompt.ChunkMinutes, defMinutes))
	minutes, err := parseMinutes(answer, defMinutes)
	if err != nil {
		return "", 0, fmt.Errorf(tr.Prompt.InvalidMinutes, answer)
	}
	return path, minutes, nil
}
