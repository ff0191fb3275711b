package report

import (
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/shipsafe/shipsafe/internal/enrich"
	"github.com/shipsafe/shipsafe/internal/types"
)

const informationURI = "https://github.com/shipsafe/shipsafe"

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevCrit, types.SevHigh:
		return "error"
	case types.SevMed:
		return "warning"
	default:
		return "note"
	}
}

func ruleID(p types.Patch) string {
	cat := strings.TrimSpace(p.Category)
	if cat == "" {
		return p.Kind
	}
	return strings.ToLower(strings.Join(strings.Fields(cat), "_"))
}

// WriteSARIF writes one SARIF result per patch of f.
func WriteSARIF(w io.Writer, f Final, version string) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}
	run := sarif.NewRunWithInformationURI("shipsafe", informationURI)
	if version != "" {
		v := version
		run.Tool.Driver.Version = &v
	}
	for _, p := range f.Patches() {
		rule := run.AddRule(ruleID(p)).WithDescription(p.Category)
		region := sarif.NewRegion()
		if start, end, ok := enrich.ParseLineRange(p.LineRange); ok {
			region = region.WithStartLine(start).WithEndLine(end)
		}
		loc := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(p.File)).
				WithRegion(region),
		)
		msg := p.Explanation
		if p.Category != "" {
			msg = p.Category + ": " + msg
		}
		res := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel(sevToLevel(p.Severity)).
			WithLocations([]*sarif.Location{loc})
		res.Properties = sarif.Properties{
			"patch_id":     p.PatchID,
			"kind":         p.Kind,
			"fix_type":     p.FixType,
			"alternatives": len(p.Alternatives),
		}
		run.AddResult(res)
	}
	run.Properties = sarif.Properties{
		"scan_id": f.Metadata.ScanID,
		"errors":  len(f.Metadata.Errors),
	}
	doc.AddRun(run)
	return doc.PrettyWrite(w)
}
