package shipsafe

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/archive"
	"github.com/shipsafe/shipsafe/internal/audit"
	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/progress"
	"github.com/shipsafe/shipsafe/internal/report"
	"github.com/shipsafe/shipsafe/internal/server"
	"github.com/shipsafe/shipsafe/internal/source"
)

var (
	serveOpts         scanFlags
	flagAddr          string
	flagMaxConcurrent int
	flagAllowLocal    bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scan service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8000, or HTTP_ADDR)")
	cmd.Flags().IntVar(&flagMaxConcurrent, "max-concurrent", 0, "scans running at once (default 4)")
	cmd.Flags().IntVar(&serveOpts.alternatives, "alternatives", 0, "patch alternatives per vulnerability (default 3)")
	cmd.Flags().StringVar(&serveOpts.classifier, "classifier", "", "classifier: auto|llm|heuristic")
	cmd.Flags().BoolVar(&serveOpts.advisory, "advisory", false, "look up related CVEs in NVD")
	cmd.Flags().BoolVar(&flagAllowLocal, "allow-local", false, "also accept directories on this host as repo_url")
}

func runServe(cmd *cobra.Command, _ []string) error {
	wd, _ := os.Getwd()
	s := resolveSettings(cmd, wd, serveOpts)
	log := s.logger("shipsafe")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages, err := s.stages(log, flagAllowLocal)
	if err != nil {
		return err
	}
	orch := pipeline.New(log.Named("pipeline"), stages...)

	addr := flagAddr
	if addr == "" {
		addr = s.Env.HTTPAddr
	}
	if addr == "" {
		addr = s.Server.GetAddr()
	}
	maxConc := flagMaxConcurrent
	if maxConc <= 0 {
		maxConc = s.Server.GetMaxConcurrent()
	}

	finished, closeFn, err := finishHooks(ctx, s, log)
	if err != nil {
		return err
	}
	defer closeFn()

	srv := server.New(server.Options{
		Runner:        orch,
		Registry:      progress.New(s.Server.GetResultTTL(), s.Server.GetMaxAge()),
		MaxConcurrent: maxConc,
		Version:       version,
		Logger:        log.Named("server"),
		OnFinished:    finished,
		AcceptTarget:  acceptTarget(flagAllowLocal),
	})
	orch.OnStageComplete(srv.ProgressHook())

	err = srv.ListenAndServe(ctx, addr)
	srv.Wait()
	return err
}

// acceptTarget limits served scans to remote repositories unless local
// directories were explicitly allowed.
func acceptTarget(allowLocal bool) func(string) bool {
	return func(target string) bool {
		if source.IsRemote(target) {
			return true
		}
		if !allowLocal {
			return false
		}
		fi, err := os.Stat(target)
		return err == nil && fi.IsDir()
	}
}

// finishHooks builds the OnFinished callback from the optional archive and
// Postgres history. Failures there are logged, never surfaced to clients.
func finishHooks(ctx context.Context, s settings, log hclog.Logger) (func(context.Context, report.Final), func(), error) {
	var hooks []func(context.Context, report.Final)
	closeFn := func() {}

	bucket := s.Env.S3Bucket
	if bucket == "" && s.Archive.Bucket != nil {
		bucket = *s.Archive.Bucket
	}
	if s.Env.S3Endpoint != "" && bucket != "" {
		prefix := ""
		if s.Archive.Prefix != nil {
			prefix = *s.Archive.Prefix
		}
		up, err := archive.New(s.Env.S3Endpoint, s.Env.S3AccessKey, s.Env.S3SecretKey, s.Env.S3UseSSL, bucket, prefix)
		if err != nil {
			return nil, closeFn, err
		}
		alog := log.Named("archive")
		hooks = append(hooks, func(ctx context.Context, f report.Final) {
			key, err := up.Upload(ctx, f)
			if err != nil {
				alog.Warn("report upload failed", "scan_id", f.Metadata.ScanID, "error", err)
				return
			}
			alog.Info("report archived", "scan_id", f.Metadata.ScanID, "key", key)
		})
	}

	if s.Env.DatabaseURL != "" {
		store, err := audit.OpenPG(ctx, s.Env.DatabaseURL)
		if err != nil {
			return nil, closeFn, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, closeFn, err
		}
		closeFn = store.Close
		hlog := log.Named("history")
		hooks = append(hooks, func(ctx context.Context, f report.Final) {
			if err := store.Insert(ctx, audit.NewRecord(f, f, "")); err != nil {
				hlog.Warn("history insert failed", "scan_id", f.Metadata.ScanID, "error", err)
			}
		})
	}

	return func(ctx context.Context, f report.Final) {
		for _, h := range hooks {
			h(ctx, f)
		}
	}, closeFn, nil
}
