package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/shipsafe/shipsafe/pkg/core"
)

// ExampleScan scans the current directory offline and prints the report.
func ExampleScan() {
	rep, err := core.Scan(context.Background(), ".", core.Options{Workers: 4, Include: "**/*.go"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return
	}
	fmt.Printf("Found %d issues.\n", rep.ScanSummary.TotalIssues)
	_ = core.MarshalReport(os.Stdout, rep)
}

// ExampleDecode shows the flat record format used between stages.
func ExampleDecode() {
	r := core.Decode("kind:secret|file:.env|line_range:2")
	fmt.Println(r.Value("file"), r.Value("line_range"))
	// Output: .env 2
}
