// Package report renders finished scans: the final JSON report, SARIF 2.1.0,
// a terminal table, and baseline filtering keyed by patch ID.
package report

import (
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// Summary counts the reported issues.
type Summary struct {
	TotalIssues          int `json:"total_issues"`
	VulnerabilitiesCount int `json:"vulnerabilities_count"`
	SecretsCount         int `json:"secrets_count"`
}

// Metadata describes the scan run.
type Metadata struct {
	ScanID        string   `json:"scan_id"`
	AgentsInvoked []string `json:"agents_invoked"`
	Errors        []string `json:"errors"`
	Status        string   `json:"status"`
	ExecutionTime float64  `json:"execution_time"`
}

// Final is the report returned to clients once a scan completes.
type Final struct {
	ScanSummary             Summary       `json:"scan_summary"`
	Repository              toon.Record   `json:"repository"`
	Vulnerabilities         []toon.Record `json:"vulnerabilities"`
	Secrets                 []toon.Record `json:"secrets"`
	EnrichedVulnerabilities []toon.Record `json:"enriched_vulnerabilities"`
	EnrichedSecrets         []toon.Record `json:"enriched_secrets"`
	VulnerabilityPatches    []types.Patch `json:"vulnerability_patches"`
	SecretPatches           []types.Patch `json:"secret_patches"`
	Metadata                Metadata      `json:"metadata"`
}

// Build assembles the final report from a pipeline result.
func Build(res pipeline.Result) Final {
	st := res.State
	if st == nil {
		st = pipeline.NewState("")
	}
	f := Final{
		Repository:              st.Repository.Clone(),
		Vulnerabilities:         decodeAll(st.Vulnerabilities),
		Secrets:                 decodeAll(st.Secrets),
		EnrichedVulnerabilities: decodeAll(st.EnrichedVulnerabilities),
		EnrichedSecrets:         decodeAll(st.EnrichedSecrets),
		VulnerabilityPatches:    nonNil(st.VulnerabilityPatches),
		SecretPatches:           nonNil(st.SecretPatches),
		Metadata: Metadata{
			ScanID:        res.ScanID,
			AgentsInvoked: nonNil(st.AgentTrace),
			Errors:        PublicErrors(st.Errors),
			Status:        st.Status,
			ExecutionTime: math.Round(res.Duration.Seconds()*1000) / 1000,
		},
	}
	f.summarize()
	return f
}

func (f *Final) summarize() {
	f.ScanSummary = Summary{
		VulnerabilitiesCount: len(f.Vulnerabilities),
		SecretsCount:         len(f.Secrets),
		TotalIssues:          len(f.Vulnerabilities) + len(f.Secrets),
	}
}

// Patches returns vulnerability patches followed by secret patches.
func (f Final) Patches() []types.Patch {
	out := make([]types.Patch, 0, len(f.VulnerabilityPatches)+len(f.SecretPatches))
	out = append(out, f.VulnerabilityPatches...)
	return append(out, f.SecretPatches...)
}

// WriteJSON writes f as indented JSON.
func WriteJSON(w io.Writer, f Final) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// PublicErrors reduces "stage:msg" scan errors to "stage: reason" or
// "stage: location: reason" with a short fixed reason, so collaborator
// output, endpoints and response bodies never reach clients. The full text
// is logged by the orchestrator.
func PublicErrors(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, publicError(e))
	}
	return out
}

func publicError(e string) string {
	stage, rest, ok := strings.Cut(e, ":")
	if !ok {
		return "scan: " + reason("", e)
	}
	if loc, msg, ok := strings.Cut(rest, ": "); ok && loc != "panic" && loc != "" && !strings.ContainsAny(loc, " \t") {
		return stage + ": " + loc + ": " + reason(stage, msg)
	}
	return stage + ": " + reason(stage, rest)
}

func reason(stage, msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.HasPrefix(m, "panic"):
		return "internal error"
	case strings.Contains(m, "deadline exceeded"), strings.Contains(m, "timeout"):
		return "timed out"
	case strings.Contains(m, "not found"):
		return "not found"
	case stage == pipeline.StageLoad:
		return "repository unavailable"
	case strings.Contains(m, "no classifier configured"):
		return "no classifier configured"
	}
	return "collaborator error"
}

func decodeAll(encoded []string) []toon.Record {
	out := make([]toon.Record, 0, len(encoded))
	for _, s := range encoded {
		out = append(out, toon.Decode(s))
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
