// Package enrich adds category, exploitability and impact fields to raw
// findings. Location fields of the raw record always survive enrichment, and
// any collaborator failure yields a documented fallback record.
package enrich

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/advisory"
	"github.com/shipsafe/shipsafe/internal/llm"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// allowed values per enumerated field
var enums = map[string][]string{
	types.KeyAttackVector:          {"NETWORK", "ADJACENT", "LOCAL", "PHYSICAL"},
	types.KeyAttackComplexity:      {"LOW", "HIGH"},
	types.KeyPrivilegesRequired:    {"NONE", "LOW", "HIGH"},
	types.KeyUserInteraction:       {"NONE", "REQUIRED"},
	types.KeyImpactConfidentiality: {"NONE", "LOW", "HIGH"},
	types.KeyImpactIntegrity:       {"NONE", "LOW", "HIGH"},
	types.KeyImpactAvailability:    {"NONE", "LOW", "HIGH"},
}

// enrichmentKeys in output order.
var enrichmentKeys = []string{
	types.KeyCategory, types.KeySummary,
	types.KeyAttackVector, types.KeyAttackComplexity, types.KeyPrivilegesRequired, types.KeyUserInteraction,
	types.KeyImpactConfidentiality, types.KeyImpactIntegrity, types.KeyImpactAvailability,
}

// Fallback categories and summary.
const (
	FallbackCategory       = "Unknown"
	FallbackSecretCategory = "Hardcoded Secret"
	FallbackSummary        = "Analysis failed."
)

// Fallback returns the conservative enrichment used when the collaborator
// fails: local attack vector, low complexity, no privileges or interaction,
// and the lowest non-zero impact triad.
func Fallback(kind string) Fields {
	cat := FallbackCategory
	if kind == types.KindSecret {
		cat = FallbackSecretCategory
	}
	return Fields{
		Category:              cat,
		Summary:               FallbackSummary,
		AttackVector:          "LOCAL",
		AttackComplexity:      "LOW",
		PrivilegesRequired:    "NONE",
		UserInteraction:       "NONE",
		ImpactConfidentiality: "LOW",
		ImpactIntegrity:       "LOW",
		ImpactAvailability:    "LOW",
	}
}

// Fields is the structured enrichment a collaborator must return.
type Fields struct {
	Category              string `json:"category"`
	Summary               string `json:"summary"`
	AttackVector          string `json:"attack_vector"`
	AttackComplexity      string `json:"attack_complexity"`
	PrivilegesRequired    string `json:"privileges_required"`
	UserInteraction       string `json:"user_interaction"`
	ImpactConfidentiality string `json:"impact_confidentiality"`
	ImpactIntegrity       string `json:"impact_integrity"`
	ImpactAvailability    string `json:"impact_availability"`
}

func (f Fields) record() toon.Record {
	vals := []string{f.Category, f.Summary, f.AttackVector, f.AttackComplexity, f.PrivilegesRequired,
		f.UserInteraction, f.ImpactConfidentiality, f.ImpactIntegrity, f.ImpactAvailability}
	var r toon.Record
	for i, k := range enrichmentKeys {
		r.Set(k, toon.Scrub(vals[i]))
	}
	return r
}

// normalize upper-cases enum fields and rejects values outside their enum.
func (f *Fields) normalize() error {
	ptrs := map[string]*string{
		types.KeyAttackVector:          &f.AttackVector,
		types.KeyAttackComplexity:      &f.AttackComplexity,
		types.KeyPrivilegesRequired:    &f.PrivilegesRequired,
		types.KeyUserInteraction:       &f.UserInteraction,
		types.KeyImpactConfidentiality: &f.ImpactConfidentiality,
		types.KeyImpactIntegrity:       &f.ImpactIntegrity,
		types.KeyImpactAvailability:    &f.ImpactAvailability,
	}
	for _, k := range enrichmentKeys[2:] {
		p := ptrs[k]
		*p = strings.ToUpper(strings.TrimSpace(*p))
		if !contains(enums[k], *p) {
			return fmt.Errorf("%s: unexpected value %q", k, *p)
		}
	}
	if strings.TrimSpace(f.Category) == "" {
		return fmt.Errorf("category: empty")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CodeContextLookup returns source text around a line range of a file.
type CodeContextLookup func(file, lineRange string) (string, bool)

// AdvisoryLookup is the optional keyword advisory collaborator.
type AdvisoryLookup interface {
	Search(ctx context.Context, keyword string, limit int) ([]advisory.Advisory, error)
}

// Result is an enriched record plus any non-fatal collaborator errors.
type Result struct {
	Record   toon.Record
	Fallback bool
	Errors   []error
}

// Enricher turns raw findings into enriched findings.
type Enricher struct {
	llm      llm.Completer
	advisory AdvisoryLookup
	logger   hclog.Logger
}

// New creates an Enricher. c may be nil, in which case every finding gets
// the fallback enrichment; adv may be nil to skip advisory lookups.
func New(c llm.Completer, adv AdvisoryLookup, logger hclog.Logger) *Enricher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Enricher{llm: c, advisory: adv, logger: logger}
}

// Enrich produces the enriched record for raw. Enrichment fields come first,
// every raw field overrides them, and file and line_range are copied from
// raw last. It never fails; collaborator errors are reported in Result.
func (e *Enricher) Enrich(ctx context.Context, raw toon.Record, lookup CodeContextLookup) Result {
	kind := raw.Value(types.KeyKind)
	snippet := ""
	if lookup != nil {
		snippet, _ = lookup(raw.Value(types.KeyFile), raw.Value(types.KeyLineRange))
	}
	var res Result
	fields, err := e.ask(ctx, raw, snippet)
	if err != nil {
		e.logger.Debug("enrichment fallback", "file", raw.Value(types.KeyFile), "error", err)
		res.Errors = append(res.Errors, err)
		res.Fallback = true
		fields = Fallback(kind)
	}

	out := merge(fields, raw)

	if e.advisory != nil && kind == types.KindVulnerability && !res.Fallback {
		hits, err := e.advisory.Search(ctx, fields.Category, 1)
		if err != nil {
			res.Errors = append(res.Errors, err)
		} else if len(hits) > 0 {
			out.Set(types.KeyCVE, toon.Scrub(hits[0].ID))
			if hits[0].Score != nil {
				out.Set(types.KeyCVSS, strconv.FormatFloat(*hits[0].Score, 'f', 1, 64))
			}
		}
	}
	res.Record = out
	return res
}

// FallbackRecord is the enriched record for raw when no enrichment could be
// obtained at all.
func FallbackRecord(raw toon.Record) toon.Record {
	return merge(Fallback(raw.Value(types.KeyKind)), raw)
}

func merge(fields Fields, raw toon.Record) toon.Record {
	out := fields.record()
	out.Merge(raw)
	for _, k := range []string{types.KeyFile, types.KeyLineRange} {
		if v, ok := raw.Get(k); ok {
			out.Set(k, v)
		}
	}
	out.Set(types.KeyCVSSEstimate, strconv.FormatFloat(EstimateCVSS(fields), 'f', 1, 64))
	return out
}

const prompt = `You are the ShipSafe Context Enrichment Agent.
Analyze the following %s finding and return ONLY a JSON object with exactly these fields:
{"category": string, "summary": string,
 "attack_vector": "NETWORK"|"ADJACENT"|"LOCAL"|"PHYSICAL",
 "attack_complexity": "LOW"|"HIGH",
 "privileges_required": "NONE"|"LOW"|"HIGH",
 "user_interaction": "NONE"|"REQUIRED",
 "impact_confidentiality": "NONE"|"LOW"|"HIGH",
 "impact_integrity": "NONE"|"LOW"|"HIGH",
 "impact_availability": "NONE"|"LOW"|"HIGH"}
No markdown. No explanation outside the JSON.

DETAILS:
%s
CODE SNIPPET:
%s
`

func (e *Enricher) ask(ctx context.Context, raw toon.Record, snippet string) (Fields, error) {
	if e.llm == nil {
		return Fields{}, fmt.Errorf("no enrichment collaborator configured")
	}
	var details strings.Builder
	for _, k := range raw.Keys() {
		if k == types.KeyValue {
			continue
		}
		fmt.Fprintf(&details, "- %s: %s\n", k, raw.Value(k))
	}
	ans, err := e.llm.Complete(ctx, fmt.Sprintf(prompt, raw.Value(types.KeyKind), details.String(), snippet))
	if err != nil {
		return Fields{}, fmt.Errorf("enrichment request: %w", err)
	}
	var f Fields
	if err := llm.DecodeJSON(ans, &f); err != nil {
		return Fields{}, err
	}
	if err := f.normalize(); err != nil {
		return Fields{}, fmt.Errorf("enrichment response: %w", err)
	}
	return f, nil
}

// EstimateCVSS derives a 0-10 score from the attack vector and impact triad
// when no official score is available.
func EstimateCVSS(f Fields) float64 {
	av := map[string]float64{"NETWORK": 0.85, "ADJACENT": 0.62, "LOCAL": 0.55, "PHYSICAL": 0.20}
	imp := map[string]float64{"NONE": 0, "LOW": 0.22, "HIGH": 0.56}
	a, ok := av[f.AttackVector]
	if !ok {
		a = 0.55
	}
	sub := 1 - (1-imp[f.ImpactConfidentiality])*(1-imp[f.ImpactIntegrity])*(1-imp[f.ImpactAvailability])
	return math.Round(math.Min(10, a*3.5+sub*6.5)*10) / 10
}
