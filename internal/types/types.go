package types

import "strings"

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow  Severity = "LOW"
	SevMed  Severity = "MEDIUM"
	SevHigh Severity = "HIGH"
	SevCrit Severity = "CRIT"
)

// Rank orders severities from 1 (LOW) to 4 (CRIT); unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SevLow:
		return 1
	case SevMed:
		return 2
	case SevHigh:
		return 3
	case SevCrit:
		return 4
	}
	return 0
}

// ParseSeverity accepts any casing plus the long form "critical".
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return SevLow, true
	case "MEDIUM", "MED":
		return SevMed, true
	case "HIGH":
		return SevHigh, true
	case "CRIT", "CRITICAL":
		return SevCrit, true
	}
	return "", false
}

// SourceFile is a tracked file as supplied by a source provider.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CodeUnit is a function- or method-scoped excerpt of a source file.
type CodeUnit struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
	UnitType  string `json:"unit_type"`
}

// Origin names the heuristic that surfaced a candidate.
type Origin string

const (
	OriginPattern Origin = "pattern"
	OriginEntropy Origin = "entropy"
	OriginDecoded Origin = "decoded"
)

// Candidate is a secret-like token found before classification.
type Candidate struct {
	Value        string  `json:"value"`
	Line         int     `json:"line"`
	Origin       Origin  `json:"origin"`
	Entropy      float64 `json:"entropy"`
	DecodedValue string  `json:"decoded_value,omitempty"`
	Rule         string  `json:"rule,omitempty"` // pattern table entry, pattern origin only
}

// Finding kinds.
const (
	KindVulnerability = "vulnerability"
	KindSecret        = "secret"
)

// Flat record keys shared across stages.
const (
	KeyKind         = "kind"
	KeySeverity     = "severity"
	KeyFile         = "file"
	KeyLineRange    = "line_range"
	KeyDetectorType = "detector_type"
	KeyProbability  = "probability"
	KeyUnitType     = "unit_type"
	KeyOrigin       = "origin"
	KeyRule         = "rule"
	KeyEntropy      = "entropy"
	KeyValue        = "value"
	KeyLabel        = "label"

	KeyCategory              = "category"
	KeySummary               = "summary"
	KeyAttackVector          = "attack_vector"
	KeyAttackComplexity      = "attack_complexity"
	KeyPrivilegesRequired    = "privileges_required"
	KeyUserInteraction       = "user_interaction"
	KeyImpactConfidentiality = "impact_confidentiality"
	KeyImpactIntegrity       = "impact_integrity"
	KeyImpactAvailability    = "impact_availability"
	KeyCVE                   = "cve"
	KeyCVSS                  = "cvss"
	KeyCVSSEstimate          = "cvss_estimate"
)

// Alternative is one candidate fix for a finding.
type Alternative struct {
	Explanation string `json:"explanation"`
	Code        string `json:"code"`
}

// Patch is the remediation record for a single enriched finding. A patch
// with zero alternatives is valid and carries an explanation of why.
type Patch struct {
	PatchID      string        `json:"patch_id"`
	File         string        `json:"file"`
	LineRange    string        `json:"line_range"`
	Kind         string        `json:"kind"`
	Severity     Severity      `json:"severity,omitempty"`
	Category     string        `json:"category,omitempty"`
	FixType      string        `json:"fix_type"`
	Explanation  string        `json:"explanation"`
	Alternatives []Alternative `json:"alternatives"`
}
