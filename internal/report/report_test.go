package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/remediate"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

func sampleResult() pipeline.Result {
	vuln := toon.New(types.KeyKind, types.KindVulnerability, types.KeySeverity, "HIGH",
		types.KeyFile, "app/db.py", types.KeyLineRange, "10-14", types.KeyDetectorType, "code_classifier")
	secret := toon.New(types.KeyKind, types.KindSecret, types.KeySeverity, "CRIT",
		types.KeyFile, ".env", types.KeyLineRange, "2", types.KeyDetectorType, "secret_classifier")
	st := pipeline.NewState("https://github.com/acme/app")
	st.Repository = toon.New("name", "app")
	st.Vulnerabilities = []string{toon.Encode(vuln)}
	st.Secrets = []string{toon.Encode(secret)}
	st.EnrichedVulnerabilities = []string{toon.Encode(vuln)}
	st.EnrichedSecrets = []string{toon.Encode(secret)}
	st.VulnerabilityPatches = []types.Patch{{
		PatchID: remediate.PatchID("app/db.py", "10-14", types.KindVulnerability, "code_classifier"),
		File:    "app/db.py", LineRange: "10-14", Kind: types.KindVulnerability, Severity: types.SevHigh,
		Category: "SQL Injection", FixType: "parameterize", Explanation: "use bind parameters",
		Alternatives: []types.Alternative{{Explanation: "bind", Code: "cur.execute(q, (id,))"}},
	}}
	st.SecretPatches = []types.Patch{{
		PatchID: remediate.PatchID(".env", "2", types.KindSecret, "secret_classifier"),
		File:    ".env", LineRange: "2", Kind: types.KindSecret, Severity: types.SevCrit,
		Category: "Hardcoded Secret", FixType: remediate.FixEnvVariable, Explanation: remediate.SecretExplanation,
	}}
	st.AgentTrace = []string{"load", "code_scan", "secret_detect", "enrich", "remediate"}
	st.Status = pipeline.StatusCompleted
	return pipeline.Result{ScanID: "scan-1", State: st, Duration: 1500 * time.Millisecond}
}

func TestBuildFinalReport(t *testing.T) {
	f := Build(sampleResult())
	assert.Equal(t, Summary{TotalIssues: 2, VulnerabilitiesCount: 1, SecretsCount: 1}, f.ScanSummary)
	assert.Equal(t, "scan-1", f.Metadata.ScanID)
	assert.Equal(t, 1.5, f.Metadata.ExecutionTime)
	assert.Equal(t, []string{}, f.Metadata.Errors)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, f))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	for _, k := range []string{"scan_summary", "repository", "vulnerabilities", "secrets",
		"enriched_vulnerabilities", "enriched_secrets", "metadata"} {
		assert.Contains(t, doc, k)
	}
	vulns := doc["vulnerabilities"].([]any)
	assert.Equal(t, "app/db.py", vulns[0].(map[string]any)["file"])
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "completed", meta["status"])
	assert.Len(t, meta["agents_invoked"], 5)
	assert.Contains(t, buf.String(), `"kind": "vulnerability",`)
}

func TestBuildEmptyState(t *testing.T) {
	f := Build(pipeline.Result{ScanID: "x"})
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, f))
	assert.Contains(t, buf.String(), `"vulnerabilities": []`)
	assert.Contains(t, buf.String(), `"repository": {}`)
}

func TestBaselineRoundTripAndFilter(t *testing.T) {
	f := Build(sampleResult())
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, SaveBaseline(path, f))

	base, err := LoadBaseline(path)
	require.NoError(t, err)
	assert.Len(t, base.Items, 2)

	filtered := FilterNew(f, base)
	assert.Empty(t, filtered.Patches())
	assert.Empty(t, filtered.Vulnerabilities)
	assert.Empty(t, filtered.EnrichedSecrets)
	assert.Equal(t, 0, filtered.ScanSummary.TotalIssues)

	partial := Baseline{Items: map[string]bool{f.SecretPatches[0].PatchID: true}}
	filtered = FilterNew(f, partial)
	assert.Len(t, filtered.Patches(), 1)
	assert.Equal(t, Summary{TotalIssues: 1, VulnerabilitiesCount: 1}, filtered.ScanSummary)

	_, err = LoadBaseline(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestShouldFail(t *testing.T) {
	f := Build(sampleResult())
	assert.True(t, ShouldFail(f, "crit"))
	assert.True(t, ShouldFail(f, "high"))
	assert.True(t, ShouldFail(f, "bogus"))
	f.SecretPatches = nil
	assert.False(t, ShouldFail(f, "CRIT"))
	assert.True(t, ValidFailOn("medium"))
	assert.False(t, ValidFailOn("severe"))
}

func TestBuildKeepsInternalDetailOutOfErrors(t *testing.T) {
	res := sampleResult()
	res.State.Errors = []string{
		"enrich:app/db.py:10-14: enrichment request: POST https://acme.openai.azure.com/openai/deployments/gpt: 401 {\"error\":\"bad key sk-123\"}",
		"code_scan:app/db.py:10-14: context deadline exceeded",
		"secret_detect:.env:2: panic: runtime error: index out of range",
		"load:clone https://token@github.com/acme/app: authentication required",
		"remediate:panic: kaboom",
	}
	f := Build(res)
	assert.Equal(t, []string{
		"enrich: app/db.py:10-14: collaborator error",
		"code_scan: app/db.py:10-14: timed out",
		"secret_detect: .env:2: internal error",
		"load: repository unavailable",
		"remediate: internal error",
	}, f.Metadata.Errors)
	for _, e := range f.Metadata.Errors {
		assert.NotContains(t, e, "https://")
	}
	// the raw errors stay on the state for logging
	assert.Contains(t, res.State.Errors[0], "sk-123")
}
