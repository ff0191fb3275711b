package shipsafe

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/report"
)

var baselineOpts scanFlags

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage baselines",
	}

	update := &cobra.Command{
		Use:   "update [path]",
		Short: "Record every current finding as known",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, f, err := runPipeline(cmd, scanTarget(args), baselineOpts)
			if err != nil {
				return err
			}
			path := s.Baseline
			if path == "" {
				path = DefaultBaselineFile
			}
			if err := report.SaveBaseline(path, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline updated: %d findings in %s\n", f.ScanSummary.TotalIssues, path)
			return nil
		},
	}
	update.Flags().StringVar(&baselineOpts.baseline, "baseline", "", "baseline file (default "+DefaultBaselineFile+")")
	update.Flags().StringVar(&baselineOpts.classifier, "classifier", "", "classifier: auto|llm|heuristic")
	update.Flags().StringVar(&baselineOpts.include, "include", "", "comma-separated include globs")
	update.Flags().StringVar(&baselineOpts.exclude, "exclude", "", "comma-separated exclude globs")

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(update)
}
