package shipsafe

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/update"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version and check for a newer release",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shipsafe v%s\n", version)
			if latest, newer, _ := update.Check(version, flagNoUpdateCheck); newer {
				fmt.Fprintf(cmd.OutOrStdout(), "new version available: v%s (run 'shipsafe --self-update')\n", latest)
			}
		},
	})
}
