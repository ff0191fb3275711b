package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/shipsafe/shipsafe/internal/types"
)

// PrintOptions controls PrintTable.
type PrintOptions struct {
	NoColor  bool
	Duration time.Duration
}

// PrintTable writes a human-readable table of patches followed by a summary.
func PrintTable(w io.Writer, f Final, opts PrintOptions) error {
	patches := f.Patches()
	sort.SliceStable(patches, func(i, j int) bool {
		if patches[i].Severity.Rank() != patches[j].Severity.Rank() {
			return patches[i].Severity.Rank() > patches[j].Severity.Rank()
		}
		if patches[i].File != patches[j].File {
			return patches[i].File < patches[j].File
		}
		return patches[i].LineRange < patches[j].LineRange
	})
	if len(patches) == 0 {
		fmt.Fprintln(w, "No issues found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Severity", "Kind", "Category", "Location", "Fixes", "Patch")
		for _, p := range patches {
			sev := string(p.Severity)
			if !opts.NoColor {
				sev = colorSeverity(p.Severity)
			}
			if err := table.Append([]string{
				sev, p.Kind, p.Category, p.File + ":" + p.LineRange,
				fmt.Sprint(len(p.Alternatives)), p.PatchID,
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	counts := map[types.Severity]int{}
	for _, p := range patches {
		counts[p.Severity]++
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Issues: %d (vulnerabilities: %d, secrets: %d)\n",
		f.ScanSummary.TotalIssues, f.ScanSummary.VulnerabilitiesCount, f.ScanSummary.SecretsCount)
	fmt.Fprintf(w, "Severity: crit %d, high %d, medium %d, low %d\n",
		counts[types.SevCrit], counts[types.SevHigh], counts[types.SevMed], counts[types.SevLow])
	if n := len(f.Metadata.Errors); n > 0 {
		fmt.Fprintf(w, "Errors: %d\n", n)
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	return nil
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SevCrit:
		return "\x1b[35mCRIT\x1b[0m"
	case types.SevHigh:
		return "\x1b[31mHIGH\x1b[0m"
	case types.SevMed:
		return "\x1b[33mMEDIUM\x1b[0m"
	default:
		return "\x1b[36mLOW\x1b[0m"
	}
}
