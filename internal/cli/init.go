package cli

import (
	"fmt"

	"github.com/guiyumin/bgscribe/internal/core/config"
	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the bgscribe config file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		globals.apply(cfg)
		tr := i18n.T(cfg.Language)

		if config.Exists() && !initForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", config.SavePath())
		}
		if err := config.Save(cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), tr.Config.Saved+"\n", config.SavePath())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
