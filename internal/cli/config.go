package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/crypto"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the bgscribe configuration",
	Long: `Show or edit ~/.config/bgscribe/config.yml.

API keys are stored encrypted with a 4-digit PIN. The PIN is asked when a
run needs the key, or read from BGSCRIBE_PIN.

Examples:
  bgscribe config show
  bgscribe config set-key
  bgscribe config set-summary-key
  bgscribe config path`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return err
		}
		if err := cfg.ApplyEnv(""); err != nil {
			return err
		}
		globals.apply(cfg)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config file:   %s\n", config.SavePath())
		if !config.Exists() {
			fmt.Fprintln(out, "               (not created, showing defaults)")
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "language:      %s\n", cfg.Language)
		fmt.Fprintf(out, "output_dir:    %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "audio_dir:     %s\n", cfg.AudioDir)
		fmt.Fprintf(out, "chunk_minutes: %.2f\n", cfg.ChunkMinutes)
		fmt.Fprintf(out, "temp_dir:      %s\n", orDefault(cfg.TempDir, os.TempDir()))
		fmt.Fprintf(out, "log_level:     %s\n", cfg.LogLevel)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "recognition:")
		fmt.Fprintf(out, "  provider:    %s\n", cfg.Recognition.Provider)
		fmt.Fprintf(out, "  language:    %s\n", cfg.Recognition.Language)
		fmt.Fprintf(out, "  model:       %s\n", orDefault(cfg.Recognition.Model, "(default)"))
		fmt.Fprintf(out, "  base_url:    %s\n", orDefault(cfg.Recognition.BaseURL, "(default)"))
		fmt.Fprintf(out, "  timeout:     %s\n", durationOrNone(cfg.Recognition.Timeout))
		fmt.Fprintf(out, "  calibration: %s\n", cfg.Recognition.Calibration)
		fmt.Fprintf(out, "  api_key:     %s\n", keyState(cfg.Recognition.APIKey, cfg.Recognition.APIKeyEncrypted))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "summarization:")
		fmt.Fprintf(out, "  enabled:     %t\n", cfg.Summarization.Enabled)
		fmt.Fprintf(out, "  provider:    %s\n", cfg.Summarization.Provider)
		fmt.Fprintf(out, "  model:       %s\n", orDefault(cfg.Summarization.Model, "(default)"))
		fmt.Fprintf(out, "  api_key:     %s\n", keyState(cfg.Summarization.APIKey, cfg.Summarization.APIKeyEncrypted))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.SavePath())
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the recognition API key, encrypted with a PIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEncryptedKey(cmd, func(cfg *config.Config, enc string) {
			cfg.Recognition.APIKeyEncrypted = enc
		})
	},
}

var configSetSummaryKeyCmd = &cobra.Command{
	Use:   "set-summary-key",
	Short: "Store the summarization API key, encrypted with a PIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEncryptedKey(cmd, func(cfg *config.Config, enc string) {
			cfg.Summarization.APIKeyEncrypted = enc
		})
	},
}

func setEncryptedKey(cmd *cobra.Command, store func(cfg *config.Config, encrypted string)) error {
	// a config that fails to parse must not be overwritten
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	tr := i18n.T(cfg.Language)
	p := newPrompter(os.Stdin, cmd.OutOrStdout())

	key, err := p.askSecret(tr.Config.APIKey)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return fmt.Errorf("API key is required")
	}

	pin, err := p.askSecret(tr.Config.PIN)
	if err != nil {
		return fmt.Errorf("failed to read PIN: %w", err)
	}
	if err := crypto.ValidatePIN(pin); err != nil {
		return err
	}

	encrypted, err := crypto.Encrypt(key, pin)
	if err != nil {
		return err
	}
	store(cfg, encrypted)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), tr.Config.Saved+"\n", config.SavePath())
	return nil
}

func keyState(plain, encrypted string) string {
	switch {
	case plain != "":
		return "set (environment)"
	case encrypted != "":
		return "set (encrypted)"
	default:
		return "not set"
	}
}

func durationOrNone(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configSetSummaryKeyCmd)

	rootCmd.AddCommand(configCmd)
}
