package cli

import (
	"github.com/guiyumin/bgscribe/internal/updater"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update bgscribe to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updater.Update(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
