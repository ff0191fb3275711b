package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/classify"
	"github.com/shipsafe/shipsafe/internal/detectors"
	"github.com/shipsafe/shipsafe/internal/enrich"
	"github.com/shipsafe/shipsafe/internal/remediate"
	"github.com/shipsafe/shipsafe/internal/segment"
	"github.com/shipsafe/shipsafe/internal/source"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// Stage names.
const (
	StageLoad         = "load"
	StageCodeScan     = "code_scan"
	StageSecretDetect = "secret_detect"
	StageEnrich       = "enrich"
	StageRemediate    = "remediate"
)

// Detector types written into raw findings.
const (
	DetectorCode   = "code_classifier"
	DetectorSecret = "secret_classifier"
)

// Deps are the collaborators of the default stages.
type Deps struct {
	Provider   source.Provider
	Classifier classify.Classifier
	Enricher   *enrich.Enricher
	Remediator *remediate.Remediator
	Limits     Limits
	Logger     hclog.Logger
}

// DefaultStages returns load, code_scan, secret_detect, enrich and remediate
// in that order.
func DefaultStages(d Deps) []Stage {
	if d.Logger == nil {
		d.Logger = hclog.NewNullLogger()
	}
	return []Stage{
		&LoadStage{Provider: d.Provider},
		&CodeScanStage{Classifier: d.Classifier, Limits: d.Limits, Logger: d.Logger.Named(StageCodeScan)},
		&SecretDetectStage{Classifier: d.Classifier, Limits: d.Limits, Logger: d.Logger.Named(StageSecretDetect)},
		&EnrichStage{Enricher: d.Enricher, Limits: d.Limits},
		&RemediateStage{Remediator: d.Remediator, Limits: d.Limits},
	}
}

// LoadStage fetches the repository snapshot.
type LoadStage struct {
	Provider source.Provider
}

func (*LoadStage) Name() string    { return StageLoad }
func (*LoadStage) Inputs() []Field { return []Field{FieldRepoURL} }

func (s *LoadStage) Run(ctx context.Context, v ScanState) (Update, error) {
	if s.Provider == nil {
		return Update{}, fmt.Errorf("no source provider configured")
	}
	snap, err := s.Provider.Fetch(ctx, v.RepoURL)
	if err != nil {
		return Update{}, fmt.Errorf("fetch %s: %w", v.RepoURL, err)
	}
	repo := snap.Repository.Clone()
	if !repo.Has(source.KeyURL) {
		repo.Set(source.KeyURL, v.RepoURL)
	}
	files := snap.Files
	if files == nil {
		files = []types.SourceFile{}
	}
	return Update{Repository: repo, Files: files}, nil
}

type outcome struct {
	record string
	fault  string
}

func collect(results []outcome) (records, faults []string) {
	records = []string{}
	for _, r := range results {
		if r.fault != "" {
			faults = append(faults, r.fault)
		}
		if r.record != "" {
			records = append(records, r.record)
		}
	}
	return records, faults
}

// CodeScanStage segments supported source files and classifies each unit.
type CodeScanStage struct {
	Classifier classify.Classifier
	Limits     Limits
	Logger     hclog.Logger
}

func (*CodeScanStage) Name() string    { return StageCodeScan }
func (*CodeScanStage) Inputs() []Field { return []Field{FieldFiles} }

type unitJob struct {
	path string
	unit types.CodeUnit
}

func (s *CodeScanStage) Run(ctx context.Context, v ScanState) (Update, error) {
	if s.Classifier == nil {
		return Update{}, fmt.Errorf("no classifier configured")
	}
	var jobs []unitJob
	for _, f := range v.Files {
		lang := segment.LanguageForPath(f.Path)
		if lang == "" {
			continue
		}
		for _, u := range segment.Segment(f.Content, lang) {
			jobs = append(jobs, unitJob{path: f.Path, unit: u})
		}
	}
	results := forEach(ctx, s.Limits, len(jobs), func(ctx context.Context, i int) outcome {
		j := jobs[i]
		lines := span(j.unit)
		var o outcome
		verdict, err := s.Classifier.ClassifyUnit(ctx, j.path, j.unit)
		if err == nil {
			err = verdict.Validate()
		}
		if err != nil {
			o.fault = fmt.Sprintf("%s:%s: %v", j.path, lines, err)
			verdict = classify.UnitFallback
		}
		if !verdict.IsFinding() {
			return o
		}
		o.record = toon.Encode(toon.New(
			types.KeyKind, types.KindVulnerability,
			types.KeySeverity, string(verdict.Severity()),
			types.KeyFile, j.path,
			types.KeyLineRange, lines,
			types.KeyDetectorType, DetectorCode,
			types.KeyProbability, strconv.FormatFloat(verdict.Probability, 'f', 2, 64),
			types.KeyUnitType, j.unit.UnitType,
			types.KeyLabel, toon.Scrub(verdict.Category),
		))
		return o
	}, func(i int, p any) outcome {
		// UnitFallback is never a finding
		return outcome{fault: fmt.Sprintf("%s:%s: panic: %v", jobs[i].path, span(jobs[i].unit), p)}
	})
	recs, faults := collect(results)
	if s.Logger != nil {
		s.Logger.Debug("code units classified", "units", len(jobs), "findings", len(recs))
	}
	return Update{Vulnerabilities: recs, Faults: faults}, nil
}

// SecretDetectStage extracts secret candidates from every file and classifies
// them.
type SecretDetectStage struct {
	Classifier classify.Classifier
	Limits     Limits
	Logger     hclog.Logger
}

func (*SecretDetectStage) Name() string    { return StageSecretDetect }
func (*SecretDetectStage) Inputs() []Field { return []Field{FieldFiles} }

type candidateJob struct {
	path string
	cand types.Candidate
}

func (s *SecretDetectStage) Run(ctx context.Context, v ScanState) (Update, error) {
	if s.Classifier == nil {
		return Update{}, fmt.Errorf("no classifier configured")
	}
	var jobs []candidateJob
	for _, f := range v.Files {
		// one finding per distinct value on a line
		seen := map[string]bool{}
		for _, c := range detectors.Extract(f.Content) {
			key := strconv.Itoa(c.Line) + "|" + c.Value
			if seen[key] {
				continue
			}
			seen[key] = true
			jobs = append(jobs, candidateJob{path: f.Path, cand: c})
		}
	}
	results := forEach(ctx, s.Limits, len(jobs), func(ctx context.Context, i int) outcome {
		j := jobs[i]
		verdict, err := s.Classifier.ClassifyCandidate(ctx, j.path, j.cand)
		if err == nil {
			err = verdict.Validate()
		}
		if err != nil {
			return secretOutcome(j, classify.CandidateFallback(j.cand), fmt.Sprintf("%s:%d: %v", j.path, j.cand.Line, err))
		}
		return secretOutcome(j, verdict, "")
	}, func(i int, p any) outcome {
		j := jobs[i]
		return secretOutcome(j, classify.CandidateFallback(j.cand), fmt.Sprintf("%s:%d: panic: %v", j.path, j.cand.Line, p))
	})
	recs, faults := collect(results)
	if s.Logger != nil {
		s.Logger.Debug("candidates classified", "candidates", len(jobs), "findings", len(recs))
	}
	return Update{Secrets: recs, Faults: faults}, nil
}

func span(u types.CodeUnit) string { return fmt.Sprintf("%d-%d", u.StartLine, u.EndLine) }

func secretOutcome(j candidateJob, verdict classify.Verdict, fault string) outcome {
	o := outcome{fault: fault}
	if !verdict.IsFinding() {
		return o
	}
	rec := toon.New(
		types.KeyKind, types.KindSecret,
		types.KeySeverity, string(verdict.Severity()),
		types.KeyFile, j.path,
		types.KeyLineRange, strconv.Itoa(j.cand.Line),
		types.KeyDetectorType, DetectorSecret,
		types.KeyProbability, strconv.FormatFloat(verdict.Probability, 'f', 2, 64),
		types.KeyOrigin, string(j.cand.Origin),
	)
	if j.cand.Rule != "" {
		rec.Set(types.KeyRule, j.cand.Rule)
	}
	rec.Set(types.KeyEntropy, strconv.FormatFloat(j.cand.Entropy, 'f', 2, 64))
	rec.Set(types.KeyValue, toon.Scrub(detectors.Mask(j.cand.Value)))
	o.record = toon.Encode(rec)
	return o
}

func fileIndex(files []types.SourceFile) map[string]string {
	m := make(map[string]string, len(files))
	for _, f := range files {
		m[f.Path] = f.Content
	}
	return m
}

func location(rec toon.Record) string {
	return rec.Value(types.KeyFile) + ":" + rec.Value(types.KeyLineRange)
}

// EnrichStage enriches both raw finding lists.
type EnrichStage struct {
	Enricher *enrich.Enricher
	Limits   Limits
}

func (*EnrichStage) Name() string { return StageEnrich }
func (*EnrichStage) Inputs() []Field {
	return []Field{FieldFiles, FieldVulnerabilities, FieldSecrets}
}

func (s *EnrichStage) Run(ctx context.Context, v ScanState) (Update, error) {
	e := s.Enricher
	if e == nil {
		e = enrich.New(nil, nil, nil)
	}
	lookup := enrich.FileLookup(fileIndex(v.Files))
	run := func(raws []string) ([]string, []string) {
		results := forEach(ctx, s.Limits, len(raws), func(ctx context.Context, i int) []outcome {
			raw := toon.Decode(raws[i])
			res := e.Enrich(ctx, raw, lookup)
			out := []outcome{{record: toon.Encode(res.Record)}}
			for _, err := range res.Errors {
				out = append(out, outcome{fault: location(raw) + ": " + err.Error()})
			}
			return out
		}, func(i int, p any) []outcome {
			raw := toon.Decode(raws[i])
			return []outcome{
				{record: toon.Encode(enrich.FallbackRecord(raw))},
				{fault: fmt.Sprintf("%s: panic: %v", location(raw), p)},
			}
		})
		var flat []outcome
		for _, r := range results {
			flat = append(flat, r...)
		}
		return collect(flat)
	}
	vulns, vf := run(v.Vulnerabilities)
	secrets, sf := run(v.Secrets)
	return Update{EnrichedVulnerabilities: vulns, EnrichedSecrets: secrets, Faults: append(vf, sf...)}, nil
}

// RemediateStage produces a patch for every enriched finding.
type RemediateStage struct {
	Remediator *remediate.Remediator
	Limits     Limits
}

func (*RemediateStage) Name() string { return StageRemediate }
func (*RemediateStage) Inputs() []Field {
	return []Field{FieldFiles, FieldEnrichedVulnerabilities, FieldEnrichedSecrets}
}

func (s *RemediateStage) Run(ctx context.Context, v ScanState) (Update, error) {
	r := s.Remediator
	if r == nil {
		r = remediate.New(nil, 0, nil)
	}
	files := fileIndex(v.Files)
	type patched struct {
		patch types.Patch
		fault string
	}
	run := func(recs []string) ([]types.Patch, []string) {
		results := forEach(ctx, s.Limits, len(recs), func(ctx context.Context, i int) patched {
			rec := toon.Decode(recs[i])
			code := ""
			if content, ok := files[rec.Value(types.KeyFile)]; ok {
				code = enrich.Snippet(content, rec.Value(types.KeyLineRange))
			}
			p, err := r.Remediate(ctx, rec, code)
			if err != nil {
				return patched{patch: p, fault: location(rec) + ": " + err.Error()}
			}
			return patched{patch: p}
		}, func(i int, p any) patched {
			rec := toon.Decode(recs[i])
			err := fmt.Errorf("panic: %v", p)
			return patched{patch: remediate.Failed(rec, err), fault: location(rec) + ": " + err.Error()}
		})
		patches := make([]types.Patch, 0, len(results))
		var faults []string
		for _, res := range results {
			patches = append(patches, res.patch)
			if res.fault != "" {
				faults = append(faults, res.fault)
			}
		}
		return patches, faults
	}
	vp, vf := run(v.EnrichedVulnerabilities)
	sp, sf := run(v.EnrichedSecrets)
	return Update{VulnerabilityPatches: vp, SecretPatches: sp, Faults: append(vf, sf...)}, nil
}
