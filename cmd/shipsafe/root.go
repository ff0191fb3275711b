package shipsafe

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/config"
)

var (
	flagNoColor         bool
	flagLogLevel        string
	flagLogJSON         bool
	flagWorkers         int
	flagCallTimeout     time.Duration
	flagNoUpdateCheck   bool
	flagSelfUpdate      bool
	flagDefaultExcludes bool

	version = "0.1.0"

	// exit is swapped in tests.
	exit = os.Exit
)

// rootCmd is the base Cobra command for the ShipSafe CLI.
var rootCmd = &cobra.Command{
	Use:   "shipsafe",
	Short: "Find, explain and fix security issues in a repository",
	Long: "ShipSafe segments source code and extracts secret candidates, classifies them, " +
		"enriches findings with exploitability context and proposes vetted patches.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		config.LoadDotEnv()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if flagSelfUpdate {
			if err := selfUpdate(); err != nil {
				return fmt.Errorf("self-update: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "updated to latest; re-run command")
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the ShipSafe CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit logs as JSON lines")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "concurrent collaborator calls per stage (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().DurationVar(&flagCallTimeout, "call-timeout", 0, "timeout per collaborator call (default 30s)")
	rootCmd.PersistentFlags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (node_modules, dist, images, etc.)")
	rootCmd.PersistentFlags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
	rootCmd.Flags().BoolVar(&flagSelfUpdate, "self-update", false, "update shipsafe to the latest release")
}
