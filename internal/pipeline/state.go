// Package pipeline runs the scan stages in order over a shared ScanState and
// applies per-field merge policies to what each stage returns.
package pipeline

import (
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// Scan statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Field names a ScanState field.
type Field string

// ScanState fields.
const (
	FieldRepoURL                 Field = "repo_url"
	FieldRepository              Field = "repository"
	FieldFiles                   Field = "files"
	FieldVulnerabilities         Field = "vulnerabilities"
	FieldSecrets                 Field = "secrets"
	FieldEnrichedVulnerabilities Field = "enriched_vulnerabilities"
	FieldEnrichedSecrets         Field = "enriched_secrets"
	FieldVulnerabilityPatches    Field = "vulnerability_patches"
	FieldSecretPatches           Field = "secret_patches"
	FieldErrors                  Field = "errors"
	FieldAgentTrace              Field = "agent_trace"
	FieldStatus                  Field = "status"
)

// Policy is how a stage update is merged into a field.
type Policy int

const (
	// FirstWriteWins keeps the existing value once it is non-empty.
	FirstWriteWins Policy = iota
	// Append adds the update's items after the existing ones.
	Append
	// Replace overwrites the field when the update sets it.
	Replace
)

func (p Policy) String() string {
	switch p {
	case FirstWriteWins:
		return "first-write-wins"
	case Append:
		return "append"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// Policies declares the merge policy of every mergeable field.
var Policies = map[Field]Policy{
	FieldRepository:              FirstWriteWins,
	FieldFiles:                   FirstWriteWins,
	FieldVulnerabilities:         Append,
	FieldSecrets:                 Append,
	FieldErrors:                  Append,
	FieldAgentTrace:              Append,
	FieldEnrichedVulnerabilities: Replace,
	FieldEnrichedSecrets:         Replace,
	FieldVulnerabilityPatches:    Replace,
	FieldSecretPatches:           Replace,
	FieldStatus:                  Replace,
}

// ScanState is the shared state of one scan. Findings are held as encoded
// flat records.
type ScanState struct {
	RepoURL                 string
	Repository              toon.Record
	Files                   []types.SourceFile
	Vulnerabilities         []string
	Secrets                 []string
	EnrichedVulnerabilities []string
	EnrichedSecrets         []string
	VulnerabilityPatches    []types.Patch
	SecretPatches           []types.Patch
	Errors                  []string
	AgentTrace              []string
	Status                  string
}

// NewState returns the initial state for repoURL.
func NewState(repoURL string) *ScanState {
	return &ScanState{RepoURL: repoURL, Status: StatusPending}
}

// Update is what a stage returns. Nil slices and empty values leave their
// field untouched. Faults are item-level problems the stage recovered from;
// the orchestrator records them as errors.
type Update struct {
	Repository              toon.Record
	Files                   []types.SourceFile
	Vulnerabilities         []string
	Secrets                 []string
	EnrichedVulnerabilities []string
	EnrichedSecrets         []string
	VulnerabilityPatches    []types.Patch
	SecretPatches           []types.Patch
	Status                  string
	Faults                  []string
}

// apply merges u into s according to Policies.
func (s *ScanState) apply(u Update) {
	if Policies[FieldRepository] == FirstWriteWins && s.Repository.Len() == 0 && u.Repository.Len() > 0 {
		s.Repository = u.Repository.Clone()
	}
	merge(&s.Files, u.Files, Policies[FieldFiles])
	merge(&s.Vulnerabilities, u.Vulnerabilities, Policies[FieldVulnerabilities])
	merge(&s.Secrets, u.Secrets, Policies[FieldSecrets])
	merge(&s.EnrichedVulnerabilities, u.EnrichedVulnerabilities, Policies[FieldEnrichedVulnerabilities])
	merge(&s.EnrichedSecrets, u.EnrichedSecrets, Policies[FieldEnrichedSecrets])
	merge(&s.VulnerabilityPatches, u.VulnerabilityPatches, Policies[FieldVulnerabilityPatches])
	merge(&s.SecretPatches, u.SecretPatches, Policies[FieldSecretPatches])
	if u.Status != "" {
		s.Status = u.Status
	}
}

func merge[T any](dst *[]T, src []T, p Policy) {
	if src == nil {
		return
	}
	switch p {
	case FirstWriteWins:
		if len(*dst) == 0 {
			*dst = append([]T(nil), src...)
		}
	case Append:
		*dst = append(*dst, src...)
	case Replace:
		*dst = append(make([]T, 0, len(src)), src...)
	}
}

// view copies the fields a stage declared as inputs. Everything else is left
// at its zero value.
func (s *ScanState) view(fields []Field) ScanState {
	var v ScanState
	for _, f := range fields {
		switch f {
		case FieldRepoURL:
			v.RepoURL = s.RepoURL
		case FieldRepository:
			v.Repository = s.Repository.Clone()
		case FieldFiles:
			v.Files = append([]types.SourceFile(nil), s.Files...)
		case FieldVulnerabilities:
			v.Vulnerabilities = append([]string(nil), s.Vulnerabilities...)
		case FieldSecrets:
			v.Secrets = append([]string(nil), s.Secrets...)
		case FieldEnrichedVulnerabilities:
			v.EnrichedVulnerabilities = append([]string(nil), s.EnrichedVulnerabilities...)
		case FieldEnrichedSecrets:
			v.EnrichedSecrets = append([]string(nil), s.EnrichedSecrets...)
		case FieldVulnerabilityPatches:
			v.VulnerabilityPatches = append([]types.Patch(nil), s.VulnerabilityPatches...)
		case FieldSecretPatches:
			v.SecretPatches = append([]types.Patch(nil), s.SecretPatches...)
		case FieldErrors:
			v.Errors = append([]string(nil), s.Errors...)
		case FieldAgentTrace:
			v.AgentTrace = append([]string(nil), s.AgentTrace...)
		case FieldStatus:
			v.Status = s.Status
		}
	}
	return v
}

// Counts summarises a state for progress reporting.
type Counts struct {
	Files                   int `json:"files"`
	Vulnerabilities         int `json:"vulnerabilities"`
	Secrets                 int `json:"secrets"`
	EnrichedVulnerabilities int `json:"enriched_vulnerabilities"`
	EnrichedSecrets         int `json:"enriched_secrets"`
	Patches                 int `json:"patches"`
	Errors                  int `json:"errors"`
}

// Counts returns the current item counts of s.
func (s *ScanState) Counts() Counts {
	return Counts{
		Files:                   len(s.Files),
		Vulnerabilities:         len(s.Vulnerabilities),
		Secrets:                 len(s.Secrets),
		EnrichedVulnerabilities: len(s.EnrichedVulnerabilities),
		EnrichedSecrets:         len(s.EnrichedSecrets),
		Patches:                 len(s.VulnerabilityPatches) + len(s.SecretPatches),
		Errors:                  len(s.Errors),
	}
}
