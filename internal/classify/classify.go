// Package classify defines the classification collaborator contract used by
// the detection stages, with an LLM-backed and an offline heuristic
// implementation.
package classify

import (
	"context"
	"fmt"

	"github.com/shipsafe/shipsafe/internal/types"
)

// Threshold is the probability at or above which a verdict is a finding.
const Threshold = 0.5

// Verdict is a classification result for a code unit or candidate.
type Verdict struct {
	Label       string  `json:"label"`
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// IsFinding reports whether the verdict crosses Threshold.
func (v Verdict) IsFinding() bool { return v.Probability >= Threshold }

// Severity maps the probability to a severity band.
func (v Verdict) Severity() types.Severity { return SeverityFor(v.Probability) }

// SeverityFor maps a probability to a severity band.
func SeverityFor(p float64) types.Severity {
	switch {
	case p >= 0.9:
		return types.SevCrit
	case p >= 0.75:
		return types.SevHigh
	case p >= 0.6:
		return types.SevMed
	default:
		return types.SevLow
	}
}

// Validate rejects verdicts a collaborator could not have meant.
func (v Verdict) Validate() error {
	if v.Probability < 0 || v.Probability > 1 {
		return fmt.Errorf("probability %v out of range", v.Probability)
	}
	if v.Label == "" {
		return fmt.Errorf("empty label")
	}
	return nil
}

// Classifier scores code units and secret candidates.
type Classifier interface {
	ClassifyUnit(ctx context.Context, path string, unit types.CodeUnit) (Verdict, error)
	ClassifyCandidate(ctx context.Context, path string, c types.Candidate) (Verdict, error)
}

// UnitFallback is used when unit classification fails: the unit is not
// reported.
var UnitFallback = Verdict{Label: "unknown", Category: "Unknown", Probability: 0}

// CandidateFallback is used when candidate classification fails. Secrets
// are reported conservatively: pattern matches as likely secrets, other
// heuristics at the reporting threshold.
func CandidateFallback(c types.Candidate) Verdict {
	if c.Origin == types.OriginPattern {
		return Verdict{Label: "secret", Category: c.Rule, Probability: 0.9}
	}
	return Verdict{Label: "secret", Category: "high_entropy_string", Probability: Threshold}
}
