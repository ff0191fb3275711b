package shipsafe

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shipsafe/shipsafe/internal/config"
)

var (
	cfgOutput     string
	cfgWorkers    int
	cfgClassifier string
	cfgFailOn     string
	cfgNoAdvisory bool
	cfgForce      bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .shipsafe.yml with default options",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".shipsafe.yml", "output file path")
	initCmd.Flags().IntVar(&cfgWorkers, "workers", 0, "concurrent collaborator calls per stage")
	initCmd.Flags().StringVar(&cfgClassifier, "classifier", "", "classifier: auto|llm|heuristic")
	initCmd.Flags().StringVar(&cfgFailOn, "fail-on", "", "fail threshold: low|medium|high|crit")
	initCmd.Flags().BoolVar(&cfgNoAdvisory, "no-advisory", false, "disable NVD lookups")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	}
	fc := config.Starter()
	if cfgWorkers > 0 {
		fc.Workers = intPtr(cfgWorkers)
	}
	if v := optStrPtr(cfgClassifier); v != nil {
		fc.Classifier = v
	}
	if v := optStrPtr(cfgFailOn); v != nil {
		fc.FailOn = v
	}
	if cfgNoAdvisory {
		fc.Advisory = boolPtr(false)
	}

	b, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgOutput, b, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	return nil
}

func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
