package shipsafe

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/detectors"
	"github.com/shipsafe/shipsafe/internal/segment"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

var (
	flagLanguage string
	flagReveal   bool
)

func init() {
	seg := &cobra.Command{
		Use:   "segment <file>",
		Short: "Print the function-scoped code units of a file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lang := flagLanguage
			if lang == "" {
				lang = segment.LanguageForPath(args[0])
			}
			if !segment.Supported(lang) {
				return fmt.Errorf("unsupported language for %s (use --language)", args[0])
			}
			units := segment.Segment(string(b), lang)
			if units == nil {
				units = []types.CodeUnit{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(units)
		},
	}
	seg.Flags().StringVar(&flagLanguage, "language", "", "override language detection (go|python|javascript|typescript|java)")

	cands := &cobra.Command{
		Use:   "candidates <file>",
		Short: "Print secret candidates of a file, one flat record per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			for _, c := range detectors.Extract(string(b)) {
				fmt.Fprintln(cmd.OutOrStdout(), toon.Encode(candidateRecord(c, flagReveal)))
			}
			return nil
		},
	}
	cands.Flags().BoolVar(&flagReveal, "reveal", false, "print candidate values unmasked")

	rootCmd.AddCommand(seg, cands)
}

func candidateRecord(c types.Candidate, reveal bool) toon.Record {
	v := detectors.Mask(c.Value)
	if reveal {
		v = c.Value
	}
	r := toon.New(
		types.KeyLineRange, strconv.Itoa(c.Line),
		types.KeyOrigin, string(c.Origin),
		types.KeyEntropy, strconv.FormatFloat(c.Entropy, 'f', 2, 64),
	)
	if c.Rule != "" {
		r.Set(types.KeyRule, c.Rule)
	}
	r.Set(types.KeyValue, toon.Scrub(v))
	return r
}
