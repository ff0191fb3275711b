// Package remediate generates fix proposals for enriched findings.
package remediate

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/llm"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// DefaultAlternatives is how many fixes are requested per vulnerability.
const DefaultAlternatives = 3

// Fix types.
const (
	FixEnvVariable = "env_variable"
	FixCodeChange  = "code_change"
	FixNone        = "none"
)

// Explanations used for patches that carry no collaborator text.
const (
	SecretExplanation   = "Move to environment variable or a secret manager"
	AllRejectedMessage  = "all generated alternatives were rejected by the safety denylist"
	failedMessagePrefix = "patch generation failed: "
)

// denylist matches code that spawns processes or evaluates code dynamically.
var denylist = regexp.MustCompile(strings.Join([]string{
	`os/exec`, `exec\.Command`, `subprocess`, `os\.system`, `child_process`,
	`Runtime\.getRuntime\(\)\.exec`, `ProcessBuilder`, `popen`,
	`\beval\(`, `\bexec\(`, `new Function\(`, `(^|[^.\w])compile\(`, `__import__`, `vm\.runIn`,
}, "|"))

// Denied reports whether code contains a denylisted construct.
func Denied(code string) bool {
	return denylist.MatchString(code)
}

// PatchID derives the deterministic identifier of the patch for a finding.
func PatchID(file, lineRange, kind, detectorType string) string {
	h := xxhash.Sum64String(file + "|" + lineRange + "|" + kind + "|" + detectorType)
	return fmt.Sprintf("patch_%016x", h)
}

// Remediator produces one Patch per enriched finding.
type Remediator struct {
	llm    llm.Completer
	n      int
	logger hclog.Logger
}

// New creates a Remediator requesting n alternatives per vulnerability; n <= 0
// selects DefaultAlternatives. c may be nil, in which case vulnerability
// patches report a failure.
func New(c llm.Completer, n int, logger hclog.Logger) *Remediator {
	if n <= 0 {
		n = DefaultAlternatives
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Remediator{llm: c, n: n, logger: logger}
}

// Remediate returns the patch for enriched. The returned Patch is always
// usable; a non-nil error explains a failure patch and is meant for the
// scan's error log.
func (r *Remediator) Remediate(ctx context.Context, enriched toon.Record, codeContext string) (types.Patch, error) {
	p := base(enriched)
	if p.Kind == types.KindSecret {
		env := envName(enriched)
		p.FixType = FixEnvVariable
		p.Explanation = SecretExplanation
		p.Alternatives = []types.Alternative{{
			Explanation: fmt.Sprintf("Read the value from the %s environment variable and rotate the exposed credential.", env),
			Code:        envAccess(p.File, env),
		}}
		return p, nil
	}

	ans, err := r.ask(ctx, enriched, codeContext)
	if err != nil {
		r.logger.Debug("patch generation failed", "file", p.File, "error", err)
		return Failed(enriched, err), err
	}

	kept := make([]types.Alternative, 0, r.n)
	for _, a := range ans.Alternatives {
		if strings.TrimSpace(a.Code) == "" {
			continue
		}
		if Denied(a.Code) {
			r.logger.Debug("alternative rejected", "file", p.File, "patch_id", p.PatchID)
			continue
		}
		if len(kept) < r.n {
			kept = append(kept, a)
		}
	}
	p.Alternatives = kept
	p.FixType = ans.FixType
	if p.FixType == "" {
		p.FixType = FixCodeChange
	}
	p.Explanation = ans.Explanation
	if len(kept) == 0 {
		p.FixType = FixNone
		p.Explanation = AllRejectedMessage
	}
	return p, nil
}

// Failed is the zero-alternative patch recording why generation failed.
func Failed(enriched toon.Record, err error) types.Patch {
	p := base(enriched)
	p.FixType = FixNone
	p.Explanation = failedMessagePrefix + err.Error()
	p.Alternatives = []types.Alternative{}
	return p
}

func base(rec toon.Record) types.Patch {
	p := types.Patch{
		File:      rec.Value(types.KeyFile),
		LineRange: rec.Value(types.KeyLineRange),
		Kind:      rec.Value(types.KeyKind),
		Category:  rec.Value(types.KeyCategory),
		PatchID: PatchID(rec.Value(types.KeyFile), rec.Value(types.KeyLineRange),
			rec.Value(types.KeyKind), rec.Value(types.KeyDetectorType)),
	}
	if sev, ok := types.ParseSeverity(rec.Value(types.KeySeverity)); ok {
		p.Severity = sev
	}
	return p
}

type answer struct {
	FixType      string              `json:"fix_type"`
	Explanation  string              `json:"explanation"`
	Alternatives []types.Alternative `json:"alternatives"`
}

const prompt = `You are the ShipSafe Remediation Agent.
Propose %d alternative fixes for the vulnerability below. Return ONLY a JSON object:
{"fix_type": string, "explanation": string,
 "alternatives": [{"explanation": string, "code": string}]}
Each "code" must be a drop-in replacement for the affected lines. Never spawn
processes or evaluate code dynamically.

FINDING:
%s
CODE:
%s
`

func (r *Remediator) ask(ctx context.Context, rec toon.Record, code string) (answer, error) {
	if r.llm == nil {
		return answer{}, fmt.Errorf("no patch collaborator configured")
	}
	var details strings.Builder
	for _, k := range rec.Keys() {
		fmt.Fprintf(&details, "- %s: %s\n", k, rec.Value(k))
	}
	out, err := r.llm.Complete(ctx, fmt.Sprintf(prompt, r.n, details.String(), code))
	if err != nil {
		return answer{}, err
	}
	var a answer
	if err := llm.DecodeJSON(out, &a); err != nil {
		return answer{}, err
	}
	return a, nil
}

var nonIdent = regexp.MustCompile(`[^A-Z0-9]+`)

// envName names the variable a secret should move to, from its rule or category.
func envName(rec toon.Record) string {
	src := rec.Value(types.KeyRule)
	if src == "" {
		src = rec.Value(types.KeyCategory)
	}
	name := strings.Trim(nonIdent.ReplaceAllString(strings.ToUpper(src), "_"), "_")
	if name == "" || name == "HARDCODED_SECRET" || name == "UNKNOWN" {
		return "APP_SECRET"
	}
	return name
}

func envAccess(file, env string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".go":
		return fmt.Sprintf("os.Getenv(%q)", env)
	case ".py":
		return fmt.Sprintf("os.environ[%q]", env)
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return "process.env." + env
	case ".java":
		return fmt.Sprintf("System.getenv(%q)", env)
	case ".rb":
		return fmt.Sprintf("ENV[%q]", env)
	}
	return "${" + env + "}"
}
