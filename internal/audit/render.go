package audit

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// PrintHistory writes records as a table, numbered newest first.
func PrintHistory(w io.Writer, records []ScanRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "When", "Target", "Status", "Issues", "New", "Patches", "Duration")
	for i, r := range records {
		if err := table.Append([]string{
			fmt.Sprint(i),
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Target,
			r.Status,
			fmt.Sprint(r.TotalFindings + r.BaselinedCount),
			fmt.Sprint(r.TotalFindings),
			fmt.Sprint(r.Patches),
			r.Duration,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
