package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/classify"
	"github.com/shipsafe/shipsafe/internal/detectors"
	"github.com/shipsafe/shipsafe/internal/enrich"
	"github.com/shipsafe/shipsafe/internal/llm"
	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/remediate"
	"github.com/shipsafe/shipsafe/internal/report"
	"github.com/shipsafe/shipsafe/internal/segment"
	"github.com/shipsafe/shipsafe/internal/source"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// Re-exported types. These are aliases so callers depend on one import path.
type (
	CodeUnit  = types.CodeUnit
	Candidate = types.Candidate
	Record    = toon.Record
	Patch     = types.Patch
	Report    = report.Final
	Completer = llm.Completer
)

// Segment splits content into function-scoped units. Unsupported languages
// yield no units.
func Segment(content, language string) []CodeUnit { return segment.Segment(content, language) }

// LanguageForPath guesses the segmenter language from a file extension.
func LanguageForPath(path string) string { return segment.LanguageForPath(path) }

// Extract returns secret-like candidates in content.
func Extract(content string) []Candidate { return detectors.Extract(content) }

// Encode renders a record as "k:v|k:v".
func Encode(r Record) string { return toon.Encode(r) }

// Decode parses a flat record string.
func Decode(s string) Record { return toon.Decode(s) }

// Options tune Scan. Zero values run fully offline with the heuristic
// classifier and fallback enrichment.
type Options struct {
	Completer    Completer
	Include      string
	Exclude      string
	Workers      int
	CallTimeout  time.Duration
	Alternatives int
	Logger       hclog.Logger
}

// Scan runs the full pipeline over a local directory.
func Scan(ctx context.Context, root string, opts Options) (Report, error) {
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return Report{}, fmt.Errorf("scan %s: %w", root, source.ErrNotFound)
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	local := source.NewLocal(logger.Named("source"))
	local.IncludeGlobs = source.ParseGlobs(opts.Include)
	local.ExcludeGlobs = source.ParseGlobs(opts.Exclude)

	cls := classify.NewHeuristic()
	if opts.Completer != nil {
		cls = classify.NewLLM(opts.Completer, 0)
	}
	orch := pipeline.New(logger, pipeline.DefaultStages(pipeline.Deps{
		Provider:   local,
		Classifier: cls,
		Enricher:   enrich.New(opts.Completer, nil, logger.Named("enrich")),
		Remediator: remediate.New(opts.Completer, opts.Alternatives, logger.Named("remediate")),
		Limits:     pipeline.Limits{Workers: opts.Workers, Timeout: opts.CallTimeout},
		Logger:     logger,
	})...)
	return report.Build(orch.Run(ctx, uuid.NewString(), root)), nil
}
