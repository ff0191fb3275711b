package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipsafe/shipsafe/internal/pipeline"
	"github.com/shipsafe/shipsafe/internal/progress"
	"github.com/shipsafe/shipsafe/internal/report"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

type fakeRunner struct {
	release chan struct{}
	hook    func(pipeline.Event)
}

func (f *fakeRunner) Run(_ context.Context, id, repo string) pipeline.Result {
	if f.hook != nil {
		f.hook(pipeline.Event{ScanID: id, Stage: "load", Step: 1, Total: 5})
	}
	if f.release != nil {
		<-f.release
	}
	st := pipeline.NewState(repo)
	st.Repository = toon.New("url", repo)
	st.Vulnerabilities = []string{toon.Encode(toon.New(types.KeyKind, types.KindVulnerability, types.KeyFile, "a.go"))}
	st.AgentTrace = []string{"load"}
	st.Status = pipeline.StatusCompleted
	return pipeline.Result{ScanID: id, State: st, Duration: time.Second}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestStartScanValidation(t *testing.T) {
	h := New(Options{Runner: &fakeRunner{}}).Handler()

	rec, body := do(t, h, http.MethodPost, "/api/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]any{"code": "invalid_request", "message": "repo_url is required"}, body["error"])

	for _, target := range []string{"/", "/etc", "../", "file:///srv/app"} {
		rec, body = do(t, h, http.MethodPost, "/api/scan", `{"repo_url":"`+target+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, map[string]any{"code": "invalid_request", "message": "repo_url must be a remote git repository URL"}, body["error"], target)
	}

	rec, body = do(t, h, http.MethodPost, "/api/scan", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidRequest, body["error"].(map[string]any)["code"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestScanLifecycle(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	var finished []report.Final
	var mu sync.Mutex
	s := New(Options{Runner: runner, OnFinished: func(_ context.Context, f report.Final) {
		mu.Lock()
		finished = append(finished, f)
		mu.Unlock()
	}})
	runner.hook = s.ProgressHook()
	h := s.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/scan", `{"repo_url":"https://github.com/acme/app"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "running", body["status"])
	id, _ := body["scan_id"].(string)
	require.Len(t, id, 36)

	require.Eventually(t, func() bool {
		_, b := do(t, h, http.MethodGet, "/api/scan/results/"+id, "")
		p, ok := b["progress"].(map[string]any)
		return ok && p["stage"] == "load"
	}, time.Second, 5*time.Millisecond)

	close(runner.release)
	s.Wait()

	rec, body = do(t, h, http.MethodGet, "/api/scan/results/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["scan_summary"].(map[string]any)["vulnerabilities_count"])
	assert.Equal(t, id, data["metadata"].(map[string]any)["scan_id"])
	mu.Lock()
	assert.Len(t, finished, 1)
	mu.Unlock()
}

func TestResultsUnknownID(t *testing.T) {
	h := New(Options{Runner: &fakeRunner{}}).Handler()
	rec, body := do(t, h, http.MethodGet, "/api/scan/results/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"code": "not_found", "message": "scan not found"}, body["error"])
}

func TestFailedScanIsStructured(t *testing.T) {
	reg := progress.New(0, 0)
	s := New(Options{Registry: reg})
	id := s.Start("https://github.com/acme/app")
	s.Wait()
	_, body := do(t, s.Handler(), http.MethodGet, "/api/scan/results/"+id, "")
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, map[string]any{"code": "scan_failed", "message": "scan failed"}, body["error"])
}

func TestHealthRootAndUnknown(t *testing.T) {
	h := New(Options{Version: "1.0.0"}).Handler()
	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	_, body = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, "ShipSafe API", body["message"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Contains(t, body["endpoints"], "scan")

	rec, body = do(t, h, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, body["error"].(map[string]any)["code"])
}

type blockingRunner struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	release chan struct{}
}

func (b *blockingRunner) Run(_ context.Context, id, repo string) pipeline.Result {
	b.mu.Lock()
	b.active++
	if b.active > b.maxSeen {
		b.maxSeen = b.active
	}
	b.mu.Unlock()
	<-b.release
	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	return pipeline.Result{ScanID: id, State: pipeline.NewState(repo)}
}

func TestConcurrentScansAreBounded(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	s := New(Options{Runner: r, MaxConcurrent: 2})
	for i := 0; i < 5; i++ {
		s.Start("repo")
	}
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.active == 2
	}, time.Second, time.Millisecond)
	close(r.release)
	s.Wait()
	assert.Equal(t, 2, r.maxSeen)
}

func TestAcceptTargetAllowsLocalRoots(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	s := New(Options{Runner: runner, AcceptTarget: func(target string) bool { return target == dir }})
	rec, _ := do(t, s.Handler(), http.MethodPost, "/api/scan", `{"repo_url":`+strconv.Quote(dir)+`}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	s.Wait()

	rec, _ = do(t, s.Handler(), http.MethodPost, "/api/scan", `{"repo_url":"https://github.com/acme/app"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
