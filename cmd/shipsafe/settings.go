package shipsafe

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shipsafe/shipsafe/internal/advisory"
	"github.com/shipsafe/shipsafe/internal/classify"
	"github.com/shipsafe/shipsafe/internal/config"
	"github.com/shipsafe/shipsafe/internal/enrich"
	"github.com/shipsafe/shipsafe/internal/llm"
	"github.com/shipsafe/shipsafe/internal/logger"
	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/remediate"
	"github.com/shipsafe/shipsafe/internal/source"
)

// Classifier choices.
const (
	classifierAuto      = "auto"
	classifierLLM       = "llm"
	classifierHeuristic = "heuristic"
)

// settings is the resolved CLI > local > global configuration.
type settings struct {
	Include         string
	Exclude         string
	MaxBytes        int64
	DefaultExcludes bool
	NoColor         bool
	LogLevel        string
	Workers         int
	CallTimeout     time.Duration
	Alternatives    int
	Classifier      string
	Advisory        bool
	FailOn          string
	Output          string
	Baseline        string

	Server  config.ServerConfig
	Archive config.ArchiveConfig
	Env     config.Env
}

// fileConfigs loads the global and the local config of root. Missing files
// are not an error.
func fileConfigs(root string) (local, global config.FileConfig) {
	if c, err := config.LoadGlobal(); err == nil {
		global = c
	}
	if c, err := config.LoadLocal(root); err == nil {
		local = c
	}
	return local, global
}

// scanFlags are the per-command flags that take part in precedence.
type scanFlags struct {
	include, exclude string
	maxBytes         int64
	alternatives     int
	classifier       string
	advisory         bool
	failOn           string
	output           string
	baseline         string
}

func resolveSettings(cmd *cobra.Command, root string, f scanFlags) settings {
	l, g := fileConfigs(root)
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	s := settings{
		Include:         pickString(f.include, l.Include, g.Include),
		Exclude:         pickString(f.exclude, l.Exclude, g.Exclude),
		MaxBytes:        pickInt64(f.maxBytes, l.MaxBytes, g.MaxBytes),
		DefaultExcludes: pickBool(flagDefaultExcludes, changed("default-excludes"), l.DefaultExcludes, g.DefaultExcludes, true),
		NoColor:         pickBool(flagNoColor, changed("no-color"), l.NoColor, g.NoColor, false),
		LogLevel:        pickString(flagLogLevel, l.LogLevel, g.LogLevel),
		Workers:         pickInt(flagWorkers, l.Workers, g.Workers),
		CallTimeout:     pickDuration(flagCallTimeout, l.GetCallTimeout(), g.GetCallTimeout()),
		Alternatives:    pickInt(f.alternatives, l.Alternatives, g.Alternatives),
		Classifier:      strings.ToLower(pickString(f.classifier, l.Classifier, g.Classifier)),
		Advisory:        pickBool(f.advisory, changed("advisory"), l.Advisory, g.Advisory, false),
		FailOn:          pickString(f.failOn, l.FailOn, g.FailOn),
		Output:          strings.ToLower(pickString(f.output, l.Output, g.Output)),
		Baseline:        pickString(f.baseline, l.Baseline, g.Baseline),
		Env:             config.LoadEnv(),
	}
	if s.Classifier == "" {
		s.Classifier = classifierAuto
	}
	if s.FailOn == "" {
		s.FailOn = "medium"
	}
	if s.Output == "" {
		s.Output = "table"
	}
	if l.Server != nil {
		s.Server = *l.Server
	} else if g.Server != nil {
		s.Server = *g.Server
	}
	if l.Archive != nil {
		s.Archive = *l.Archive
	} else if g.Archive != nil {
		s.Archive = *g.Archive
	}
	if s.LogLevel == "" {
		s.LogLevel = s.Env.LogLevel
	}
	// no color when stdout is not a terminal
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		s.NoColor = true
	}
	return s
}

func (s settings) logger(name string) hclog.Logger {
	return logger.New(name, s.LogLevel, flagLogJSON)
}

// completer returns the Azure OpenAI client when configured, or nil.
func (s settings) completer(log hclog.Logger) (llm.Completer, error) {
	if !s.Env.HasLLM() {
		return nil, nil
	}
	c, err := llm.NewAzureClient(s.Env.AzureEndpoint, s.Env.AzureKey, s.Env.AzureDeployment, log.Named("llm"))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// stages builds the pipeline. Local directories are scanned only when
// allowLocal is set; otherwise every target goes to the git provider.
func (s settings) stages(log hclog.Logger, allowLocal bool) ([]pipeline.Stage, error) {
	c, err := s.completer(log)
	if err != nil {
		return nil, err
	}

	var cls classify.Classifier
	switch s.Classifier {
	case classifierHeuristic:
		cls = classify.NewHeuristic()
	case classifierLLM:
		if c == nil {
			return nil, fmt.Errorf("classifier %q needs AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_KEY and AZURE_OPENAI_DEPLOYMENT", s.Classifier)
		}
		cls = classify.NewLLM(c, 0)
	case classifierAuto:
		cls = classify.NewHeuristic()
		if c != nil {
			cls = classify.NewLLM(c, 0)
		}
	default:
		return nil, fmt.Errorf("unknown classifier %q (want auto|llm|heuristic)", s.Classifier)
	}

	var adv enrich.AdvisoryLookup
	if s.Advisory {
		adv = advisory.NewNVD(log.Named("advisory"), advisory.Options{APIKey: s.Env.NVDAPIKey})
	}

	local := source.NewLocal(log.Named("source"))
	local.IncludeGlobs = source.ParseGlobs(s.Include)
	local.ExcludeGlobs = source.ParseGlobs(s.Exclude)
	local.DefaultExcludes = s.DefaultExcludes
	if s.MaxBytes > 0 {
		local.MaxBytes = s.MaxBytes
	}
	remote := source.NewGit(s.Env.GitHubToken, log.Named("git"))
	remote.Local = local
	resolver := source.Resolver{Remote: remote}
	if allowLocal {
		resolver.Local = local
	}

	return pipeline.DefaultStages(pipeline.Deps{
		Provider:   resolver,
		Classifier: cls,
		Enricher:   enrich.New(c, adv, log.Named("enrich")),
		Remediator: remediate.New(c, s.Alternatives, log.Named("remediate")),
		Limits:     pipeline.Limits{Workers: s.Workers, Timeout: s.CallTimeout},
		Logger:     log,
	}), nil
}
