package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"
)

// convertWithFFmpeg runs the embedded ffmpeg WASM build to turn any input
// into a canonical WAV file.
func convertWithFFmpeg(ctx context.Context, inputPath, outputPath string) error {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return err
	}

	inputDir := filepath.Dir(absInput)
	outputDir := filepath.Dir(absOutput)

	var stderr bytes.Buffer
	args := wasm.Args{
		Stderr: &stderr,
		Stdout: io.Discard,
		Args: []string{
			"-hide_banner",
			"-loglevel", "error",
			"-i", absInput,
			"-ar", strconv.Itoa(CanonicalRate),
			"-ac", "1",
			"-c:a", "pcm_s16le",
			"-y",
			absOutput,
		},
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			return cfg.WithFSConfig(wazero.NewFSConfig().
				WithDirMount(inputDir, inputDir).
				WithDirMount(outputDir, outputDir))
		},
	}

	rc, err := ffmpreg.Ffmpeg(ctx, args)
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	if rc != 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg exited with code %d", rc)
		}
		return fmt.Errorf("ffmpeg exited with code %d: %s", rc, lastLine(msg))
	}

	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
