package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shipsafe/shipsafe/internal/pipeline"
)

func TestPrintTable_NoIssues(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintTable(&buf, Build(pipeline.Result{}), PrintOptions{Duration: 1200 * time.Millisecond}); err != nil {
		t.Fatalf("PrintTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No issues found") {
		t.Fatalf("expected friendly no-issues message; got: %q", out)
	}
	if !strings.Contains(out, "Scan duration: 1.20s") {
		t.Fatalf("expected duration footer; got: %q", out)
	}
}

func TestPrintTable_WithPatches(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintTable(&buf, Build(sampleResult()), PrintOptions{NoColor: true}); err != nil {
		t.Fatalf("PrintTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"app/db.py:10-14", ".env:2", "SQL Injection", "crit 1, high 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output; got: %q", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes; got: %q", out)
	}
	// CRIT sorts before HIGH
	if strings.Index(out, ".env:2") > strings.Index(out, "app/db.py:10-14") {
		t.Fatalf("expected severity ordering; got: %q", out)
	}
}
