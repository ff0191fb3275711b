package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shipsafe/shipsafe/internal/remediate"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// Baseline is a set of accepted patch IDs.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

// LoadBaseline reads a baseline file. A missing file yields an empty
// baseline and the read error.
func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	buf, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(buf, &b); err != nil {
		return b, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

// SaveBaseline writes every patch ID of f to path.
func SaveBaseline(path string, f Final) error {
	b := Baseline{Items: map[string]bool{}}
	for _, p := range f.Patches() {
		b.Items[p.PatchID] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

func recordID(r toon.Record) string {
	return remediate.PatchID(r.Value(types.KeyFile), r.Value(types.KeyLineRange),
		r.Value(types.KeyKind), r.Value(types.KeyDetectorType))
}

// FilterNew drops every finding and patch already in base and recomputes the
// summary.
func FilterNew(f Final, base Baseline) Final {
	if len(base.Items) == 0 {
		return f
	}
	keepRecs := func(in []toon.Record) []toon.Record {
		out := make([]toon.Record, 0, len(in))
		for _, r := range in {
			if !base.Items[recordID(r)] {
				out = append(out, r)
			}
		}
		return out
	}
	keepPatches := func(in []types.Patch) []types.Patch {
		out := make([]types.Patch, 0, len(in))
		for _, p := range in {
			if !base.Items[p.PatchID] {
				out = append(out, p)
			}
		}
		return out
	}
	f.Vulnerabilities = keepRecs(f.Vulnerabilities)
	f.Secrets = keepRecs(f.Secrets)
	f.EnrichedVulnerabilities = keepRecs(f.EnrichedVulnerabilities)
	f.EnrichedSecrets = keepRecs(f.EnrichedSecrets)
	f.VulnerabilityPatches = keepPatches(f.VulnerabilityPatches)
	f.SecretPatches = keepPatches(f.SecretPatches)
	f.summarize()
	return f
}

// ShouldFail reports whether any patch is at or above failOn. Unknown
// thresholds default to medium.
func ShouldFail(f Final, failOn string) bool {
	th, ok := types.ParseSeverity(failOn)
	if !ok {
		th = types.SevMed
	}
	for _, p := range f.Patches() {
		if p.Severity.Rank() >= th.Rank() {
			return true
		}
	}
	return false
}

// ValidFailOn reports whether s names a severity accepted by ShouldFail.
func ValidFailOn(s string) bool {
	_, ok := types.ParseSeverity(strings.TrimSpace(s))
	return ok
}
