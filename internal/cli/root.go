package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/guiyumin/bgscribe/internal/core/version"
	"github.com/spf13/cobra"
)

// flags shared by every command
var globals globalFlags

var rootCmd = &cobra.Command{
	Use:   "bgscribe",
	Short: "Split and transcribe Bulgarian audio recordings",
	Long: `bgscribe turns Bulgarian audio into text.

Run without a command for the interactive mode, or use 'folder' and 'split'
for headless runs.

Examples:
  bgscribe
  bgscribe folder ./audio_segments
  bgscribe split lecture.mp3 --minutes 3.07 --delete-segments
  bgscribe split lecture.mp3 -o ./out --summarize`,
	Version:       version.Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		runInteractive(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&globals.output, "output", "o", "", "output directory for transcripts")
	pf.StringVar(&globals.provider, "provider", "", "recognition provider (openai, compatible, google)")
	pf.StringVar(&globals.language, "language", "", "recognition language tag (e.g. bg-BG)")
	pf.BoolVar(&globals.summarize, "summarize", false, "also write a summary of the full text")
	pf.StringVar(&globals.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the root command. Headless failures are printed in red and
// returned so main can exit non-zero.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr)
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
