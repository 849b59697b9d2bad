package cli

import (
	"fmt"
	"os"

	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/spf13/cobra"
)

var (
	splitMinutes   float64
	deleteSegments bool
	keepSegments   bool
)

var folderCmd = &cobra.Command{
	Use:   "folder [dir]",
	Short: "Transcribe every audio file in a folder",
	Long: `Transcribe audio files that are already split into segments.

Files directly inside the folder with an mp3, wav, m4a, flac, aac or ogg
extension are processed in name order. Without an argument the configured
audio_dir is used.

Examples:
  bgscribe folder
  bgscribe folder ./audio_segments -o ./transcripts`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globals)
		if err != nil {
			return err
		}
		dir := cfg.AudioDir
		if len(args) == 1 {
			dir = args[0]
		}

		log := newLogger(cfg.LogLevel, os.Stderr)
		pipe, err := newPipeline(cfg, newPrompter(os.Stdin, os.Stdout), nil, log)
		if err != nil {
			return err
		}
		_, err = pipe.ProcessFolder(cmd.Context(), dir)
		return err
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <file>",
	Short: "Split a long recording into segments and transcribe them",
	Long: `Split one long recording into fixed-length segments and transcribe them in order.

Segments are written to <output>/generated_segments. Without --delete-segments
or --keep-segments you are asked whether to delete them at the end.

Examples:
  bgscribe split lecture.mp3
  bgscribe split lecture.mp3 --minutes 5 --delete-segments
  bgscribe split interview.m4a --keep-segments --summarize`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globals)
		if err != nil {
			return err
		}
		tr := i18n.T(cfg.Language)

		path := args[0]
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return fmt.Errorf("%s %s", tr.Prompt.FileMissing, path)
		}

		if cmd.Flags().Changed("minutes") {
			cfg.ChunkMinutes = splitMinutes
		}
		if err := checkMinutes(cfg.ChunkMinutes); err != nil {
			return err
		}

		p := newPrompter(os.Stdin, os.Stdout)
		confirm := cleanupPolicy(deleteSegments, keepSegments, p, tr)

		log := newLogger(cfg.LogLevel, os.Stderr)
		pipe, err := newPipeline(cfg, p, confirm, log)
		if err != nil {
			return err
		}
		_, err = pipe.ProcessLargeFile(cmd.Context(), path, cfg.ChunkDuration())
		return err
	},
}

// cleanupPolicy maps the segment flags to a cleanup callback. With neither
// flag the user is asked.
func cleanupPolicy(del, keep bool, p *prompter, tr *i18n.Translations) func(int) bool {
	switch {
	case del:
		return func(int) bool { return true }
	case keep:
		return func(int) bool { return false }
	default:
		return p.confirmCleanup(tr)
	}
}

func init() {
	splitCmd.Flags().Float64VarP(&splitMinutes, "minutes", "m", config.DefaultChunkMinutes, "segment length in minutes")
	splitCmd.Flags().BoolVar(&deleteSegments, "delete-segments", false, "delete generated segments without asking")
	splitCmd.Flags().BoolVar(&keepSegments, "keep-segments", false, "keep generated segments without asking")
	splitCmd.MarkFlagsMutuallyExclusive("delete-segments", "keep-segments")

	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(splitCmd)
}
