package shipsafe

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/audit"
	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/report"
	"github.com/shipsafe/shipsafe/internal/update"
)

// DefaultBaselineFile is used by `baseline update` and `scan` when no
// baseline path is configured.
const DefaultBaselineFile = "shipsafe.baseline.json"

var (
	scanOpts      scanFlags
	flagOutFile   string
	flagNoHistory bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan [path|repo-url]",
		Short: "Scan a directory or repository and report findings with patches",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&scanOpts.include, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&scanOpts.exclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&scanOpts.maxBytes, "max-bytes", 0, "skip files larger than this (default 1MiB)")
	cmd.Flags().IntVar(&scanOpts.alternatives, "alternatives", 0, "patch alternatives per vulnerability (default 3)")
	cmd.Flags().StringVar(&scanOpts.classifier, "classifier", "", "classifier: auto|llm|heuristic")
	cmd.Flags().BoolVar(&scanOpts.advisory, "advisory", false, "look up related CVEs in NVD")
	cmd.Flags().StringVar(&scanOpts.failOn, "fail-on", "", "exit 1 when a patch is at or above: low|medium|high|crit")
	cmd.Flags().StringVarP(&scanOpts.output, "output", "o", "", "output format: table|json|sarif")
	cmd.Flags().StringVar(&scanOpts.baseline, "baseline", "", "baseline file of known findings (default "+DefaultBaselineFile+")")
	cmd.Flags().StringVar(&flagOutFile, "out", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "do not append this scan to the local history")
}

func scanTarget(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

// localRoot returns the absolute directory for target, or "" for remotes.
func localRoot(target string) string {
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		abs, _ := filepath.Abs(target)
		return abs
	}
	return ""
}

// runPipeline resolves settings for target and runs one scan.
func runPipeline(cmd *cobra.Command, target string, f scanFlags) (settings, report.Final, error) {
	root := localRoot(target)
	cfgRoot := root
	if cfgRoot == "" {
		cfgRoot, _ = os.Getwd()
	}
	s := resolveSettings(cmd, cfgRoot, f)
	log := s.logger("shipsafe")
	stages, err := s.stages(log, true)
	if err != nil {
		return s, report.Final{}, err
	}
	if root != "" {
		target = root
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	orch := pipeline.New(log, stages...)
	if s.Output == "table" {
		errw := cmd.ErrOrStderr()
		orch.OnStageComplete(func(e pipeline.Event) {
			fmt.Fprintf(errw, "\r[%d/%d] %-14s", e.Step, e.Total, e.Stage)
			if e.Step == e.Total {
				fmt.Fprintln(errw)
			}
		})
	}
	return s, report.Build(orch.Run(ctx, uuid.NewString(), target)), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	target := scanTarget(args)
	if scanOpts.failOn != "" && !report.ValidFailOn(scanOpts.failOn) {
		return fmt.Errorf("invalid --fail-on %q", scanOpts.failOn)
	}
	if scanOpts.output == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Scanning %s...\n", target)
	}
	if !flagNoUpdateCheck && scanOpts.output == "" {
		if latest, newer, _ := update.Check(version, false); newer && latest != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "(new version available: v%s)  run 'shipsafe --self-update' to upgrade\n", latest)
		}
	}

	s, all, err := runPipeline(cmd, target, scanOpts)
	if err != nil {
		return err
	}

	basePath := s.Baseline
	if basePath == "" {
		basePath = DefaultBaselineFile
	}
	shown := all
	if base, err := report.LoadBaseline(basePath); err == nil {
		shown = report.FilterNew(all, base)
	} else {
		basePath = ""
	}

	var w io.Writer = cmd.OutOrStdout()
	if flagOutFile != "" {
		f, err := os.Create(flagOutFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := writeReport(w, shown, s); err != nil {
		return err
	}

	if root := localRoot(target); root != "" && !flagNoHistory {
		if err := audit.NewLog(root).Append(audit.NewRecord(all, shown, basePath)); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "history warning:", err)
		}
	}

	if report.ShouldFail(shown, s.FailOn) {
		exit(1)
	}
	return nil
}

func writeReport(w io.Writer, f report.Final, s settings) error {
	switch s.Output {
	case "json":
		return report.WriteJSON(w, f)
	case "sarif":
		if err := report.WriteSARIF(w, f, version); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
		return nil
	case "table", "":
		d := secondsToDuration(f.Metadata.ExecutionTime)
		return report.PrintTable(w, f, report.PrintOptions{NoColor: s.NoColor, Duration: d})
	default:
		return fmt.Errorf("unknown output format %q (want table|json|sarif)", s.Output)
	}
}
