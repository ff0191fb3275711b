// Package server exposes scans over HTTP: start a scan, poll its progress and
// fetch the final report.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/progress"
	"github.com/shipsafe/shipsafe/internal/report"
	"github.com/shipsafe/shipsafe/internal/source"
)

// DefaultMaxConcurrent bounds simultaneously running scans.
const DefaultMaxConcurrent = 4

const maxBodyBytes = 1 << 20

// Runner executes one scan.
type Runner interface {
	Run(ctx context.Context, scanID, repoURL string) pipeline.Result
}

// Options configure a Server.
type Options struct {
	Runner        Runner
	Registry      *progress.Registry
	MaxConcurrent int
	Version       string
	Logger        hclog.Logger
	// OnFinished is called with every completed report, after it is
	// stored in the registry.
	OnFinished func(context.Context, report.Final)
	// AcceptTarget decides which repo_url values may be scanned. Nil
	// accepts remote repositories only.
	AcceptTarget func(string) bool
}

// Server is the HTTP surface of the scanner.
type Server struct {
	opts   Options
	reg    *progress.Registry
	sem    chan struct{}
	logger hclog.Logger
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Server. A nil Registry gets a default one.
func New(opts Options) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Registry == nil {
		opts.Registry = progress.New(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.AcceptTarget == nil {
		opts.AcceptTarget = source.IsRemote
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:   opts,
		reg:    opts.Registry,
		sem:    make(chan struct{}, opts.MaxConcurrent),
		logger: opts.Logger,
		base:   base,
		cancel: cancel,
	}
}

// ProgressHook returns the callback to register with the orchestrator so
// stage completions reach the registry.
func (s *Server) ProgressHook() func(pipeline.Event) {
	return func(e pipeline.Event) {
		counts := map[string]int{
			"files":           e.Counts.Files,
			"vulnerabilities": e.Counts.Vulnerabilities,
			"secrets":         e.Counts.Secrets,
			"patches":         e.Counts.Patches,
			"errors":          e.Counts.Errors,
		}
		if err := s.reg.Update(e.ScanID, e.Stage, e.Step, e.Total, counts); err != nil {
			s.logger.Debug("progress update dropped", "scan_id", e.ScanID, "error", err)
		}
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/scan", s.handleStartScan)
	mux.HandleFunc("GET /api/scan/results/{id}", s.handleResults)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "no such endpoint")
	})
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ShipSafe API",
		"version": s.opts.Version,
		"endpoints": map[string]string{
			"scan":    "POST /api/scan",
			"results": "GET /api/scan/results/{id}",
			"health":  "GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type scanRequest struct {
	RepoURL string `json:"repo_url"`
}

type scanStarted struct {
	Success bool   `json:"success"`
	ScanID  string `json:"scan_id"`
	Status  string `json:"status"`
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "request body must be a JSON object")
		return
	}
	req.RepoURL = strings.TrimSpace(req.RepoURL)
	if req.RepoURL == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "repo_url is required")
		return
	}
	if !s.opts.AcceptTarget(req.RepoURL) {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "repo_url must be a remote git repository URL")
		return
	}
	id := s.Start(req.RepoURL)
	writeJSON(w, http.StatusAccepted, scanStarted{Success: true, ScanID: id, Status: progress.StatusRunning})
}

// Start registers and launches a scan in the background and returns its ID.
func (s *Server) Start(repoURL string) string {
	id := uuid.NewString()
	s.reg.Start(id)
	s.wg.Add(1)
	go s.run(id, repoURL)
	return id
}

func (s *Server) run(id, repoURL string) {
	defer s.wg.Done()
	log := s.logger.With("scan_id", id)
	defer func() {
		if r := recover(); r != nil {
			log.Error("scan panicked", "panic", r)
			_ = s.reg.Fail(id, "scan failed")
		}
	}()

	select {
	case s.sem <- struct{}{}:
	case <-s.base.Done():
		_ = s.reg.Fail(id, "server shutting down")
		return
	}
	defer func() { <-s.sem }()

	if s.opts.Runner == nil {
		log.Error("no scan runner configured")
		_ = s.reg.Fail(id, "scan failed")
		return
	}
	log.Info("scan started", "repo_url", repoURL)
	final := report.Build(s.opts.Runner.Run(s.base, id, repoURL))
	if err := s.reg.Complete(id, final); err != nil {
		log.Warn("scan finished after eviction", "error", err)
	}
	if s.opts.OnFinished != nil {
		s.opts.OnFinished(s.base, final)
	}
}

type resultsResponse struct {
	Success  bool               `json:"success"`
	Status   string             `json:"status"`
	Progress *progress.Progress `json:"progress,omitempty"`
	Data     *report.Final      `json:"data,omitempty"`
	Error    *APIError          `json:"error,omitempty"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	e, err := s.reg.Get(r.PathValue("id"))
	if errors.Is(err, progress.ErrUnknownScan) {
		writeError(w, http.StatusNotFound, CodeNotFound, "scan not found")
		return
	}
	switch e.Status {
	case progress.StatusRunning:
		p := e.Progress
		writeJSON(w, http.StatusOK, resultsResponse{Success: true, Status: e.Status, Progress: &p})
	case progress.StatusCompleted:
		final, ok := e.Result.(report.Final)
		if !ok {
			s.logger.Error("unexpected result type", "scan_id", e.ID, "type", fmt.Sprintf("%T", e.Result))
			writeError(w, http.StatusInternalServerError, CodeInternal, "result unavailable")
			return
		}
		writeJSON(w, http.StatusOK, resultsResponse{Success: true, Status: e.Status, Data: &final})
	default:
		writeJSON(w, http.StatusOK, resultsResponse{Status: e.Status, Error: &APIError{Code: CodeScanFailed, Message: e.Err}})
	}
}

// Wait blocks until every started scan has finished.
func (s *Server) Wait() { s.wg.Wait() }

// ListenAndServe serves on addr until ctx is done, running the registry
// janitor alongside.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	go s.reg.Janitor(ctx, time.Minute)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		s.cancel()
		shctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shctx)
	}()
	s.logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
