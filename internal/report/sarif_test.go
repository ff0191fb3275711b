package report

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWriteSARIF_OneResultPerPatch(t *testing.T) {
	f := Build(sampleResult())
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, f, "1.2.3"); err != nil {
		t.Fatalf("WriteSARIF: %v", err)
	}
	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name    string `json:"name"`
					Version string `json:"version"`
					Rules   []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID     string         `json:"ruleId"`
				Level      string         `json:"level"`
				Properties map[string]any `json:"properties"`
				Locations  []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
							EndLine   int `json:"endLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v; body=%s", err, buf.String())
	}
	if doc.Version != "2.1.0" || len(doc.Runs) != 1 {
		t.Fatalf("unexpected document: %s", buf.String())
	}
	run := doc.Runs[0]
	if run.Tool.Driver.Name != "shipsafe" || run.Tool.Driver.Version != "1.2.3" {
		t.Fatalf("unexpected driver: %+v", run.Tool.Driver)
	}
	if len(run.Results) != len(f.Patches()) {
		t.Fatalf("expected %d results, got %d", len(f.Patches()), len(run.Results))
	}
	first := run.Results[0]
	if first.RuleID != "sql_injection" || first.Level != "error" {
		t.Fatalf("unexpected first result: %+v", first)
	}
	reg := first.Locations[0].PhysicalLocation.Region
	if reg.StartLine != 10 || reg.EndLine != 14 {
		t.Fatalf("unexpected region: %+v", reg)
	}
	if first.Properties["patch_id"] != f.VulnerabilityPatches[0].PatchID {
		t.Fatalf("expected patch_id property; got %+v", first.Properties)
	}
}
