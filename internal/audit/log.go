// Package audit keeps a history of finished scans, either as a local JSONL
// file or as rows in Postgres.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shipsafe/shipsafe/internal/report"
	"github.com/shipsafe/shipsafe/internal/source"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// topN bounds FindingSummary entries per record.
const topN = 10

// ScanRecord is one history line.
type ScanRecord struct {
	Timestamp       time.Time        `json:"timestamp"`
	ScanID          string           `json:"scan_id"`
	Target          string           `json:"target"`
	Status          string           `json:"status"`
	TotalFindings   int              `json:"total_findings"`
	Vulnerabilities int              `json:"vulnerabilities"`
	Secrets         int              `json:"secrets"`
	Patches         int              `json:"patches"`
	BaselinedCount  int              `json:"baselined_count"`
	SeverityCounts  map[string]int   `json:"severity_counts"`
	FilesScanned    int              `json:"files_scanned"`
	Duration        string           `json:"duration"`
	BaselineFile    string           `json:"baseline_file,omitempty"`
	Errors          []string         `json:"errors,omitempty"`
	TopFindings     []FindingSummary `json:"top_findings,omitempty"`
}

// FindingSummary locates a finding without its value.
type FindingSummary struct {
	Kind      string `json:"kind"`
	File      string `json:"file"`
	LineRange string `json:"line_range"`
	Severity  string `json:"severity"`
	Category  string `json:"category,omitempty"`
}

// Log is an append-only JSONL history file.
type Log struct {
	path string
}

// NewLog stores history under .git when root is a git checkout, otherwise
// next to the sources.
func NewLog(root string) *Log {
	path := filepath.Join(root, ".shipsafe_history.jsonl")
	if st, err := os.Stat(filepath.Join(root, ".git")); err == nil && st.IsDir() {
		path = filepath.Join(root, ".git", "shipsafe_history.jsonl")
	}
	return &Log{path: path}
}

// NewLogAt uses path as the history file.
func NewLogAt(path string) *Log { return &Log{path: path} }

// Path returns the history file location.
func (a *Log) Path() string { return a.path }

// LoadHistory returns records newest first. Corrupt lines are skipped.
func (a *Log) LoadHistory() ([]ScanRecord, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	var records []ScanRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var r ScanRecord
		if err := dec.Decode(&r); err != nil {
			break
		}
		records = append(records, r)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Append writes one record.
func (a *Log) Append(r ScanRecord) error {
	if r.ScanID == "" {
		r.ScanID = fmt.Sprintf("scan_%d", time.Now().Unix())
	}
	// history carries finding locations, keep it owner-only
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	return nil
}

// Delete removes the record at index in newest-first order.
func (a *Log) Delete(index int) error {
	records, err := a.LoadHistory()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	records = append(records[:index], records[index+1:]...)

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to rewrite history: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for i := len(records) - 1; i >= 0; i-- {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("failed to write history record: %w", err)
		}
	}
	return nil
}

// NewRecord summarizes a final report. all is the report before baseline
// filtering and shown is what was reported; pass the same value twice when
// no baseline applies.
func NewRecord(all, shown report.Final, baselineFile string) ScanRecord {
	counts := map[string]int{}
	var top []FindingSummary
	add := func(recs []toon.Record) {
		for _, r := range recs {
			sev := r.Value(types.KeySeverity)
			counts[sev]++
			if len(top) < topN {
				top = append(top, FindingSummary{
					Kind:      r.Value(types.KeyKind),
					File:      r.Value(types.KeyFile),
					LineRange: r.Value(types.KeyLineRange),
					Severity:  sev,
					Category:  r.Value(types.KeyCategory),
				})
			}
		}
	}
	add(shown.EnrichedVulnerabilities)
	add(shown.EnrichedSecrets)

	files := 0
	if n, err := strconv.Atoi(shown.Repository.Value(source.KeyFileCount)); err == nil {
		files = n
	}
	return ScanRecord{
		Timestamp:       time.Now().UTC(),
		ScanID:          shown.Metadata.ScanID,
		Target:          shown.Repository.Value(source.KeyURL),
		Status:          shown.Metadata.Status,
		TotalFindings:   shown.ScanSummary.TotalIssues,
		Vulnerabilities: shown.ScanSummary.VulnerabilitiesCount,
		Secrets:         shown.ScanSummary.SecretsCount,
		Patches:         len(shown.Patches()),
		BaselinedCount:  all.ScanSummary.TotalIssues - shown.ScanSummary.TotalIssues,
		SeverityCounts:  counts,
		FilesScanned:    files,
		Duration:        time.Duration(shown.Metadata.ExecutionTime * float64(time.Second)).Round(time.Millisecond).String(),
		BaselineFile:    baselineFile,
		Errors:          shown.Metadata.Errors,
		TopFindings:     top,
	}
}
