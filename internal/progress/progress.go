// Package progress tracks the status of running and finished scans by ID and
// evicts entries once they have been read or grown too old.
package progress

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnknownScan is returned for IDs the registry does not hold.
var ErrUnknownScan = errors.New("unknown scan id")

// Defaults for eviction.
const (
	DefaultReadTTL = 10 * time.Minute
	DefaultMaxAge  = time.Hour
)

// Entry statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Progress is the live view of a running scan.
type Progress struct {
	Stage     string         `json:"stage"`
	Step      int            `json:"step"`
	Total     int            `json:"total"`
	Stages    []string       `json:"stages_completed"`
	Counts    map[string]int `json:"counts,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Entry is the registry record for one scan.
type Entry struct {
	ID        string
	Status    string
	Progress  Progress
	Result    any
	Err       string
	CreatedAt time.Time
	ReadAt    time.Time
}

// Registry is a concurrency-safe map of scan entries.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	readTTL time.Duration
	maxAge  time.Duration
	now     func() time.Time
}

// New creates a Registry. Zero durations select the defaults.
func New(readTTL, maxAge time.Duration) *Registry {
	if readTTL <= 0 {
		readTTL = DefaultReadTTL
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Registry{entries: map[string]*Entry{}, readTTL: readTTL, maxAge: maxAge, now: time.Now}
}

// Start registers a running scan.
func (r *Registry) Start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.entries[id] = &Entry{ID: id, Status: StatusRunning, CreatedAt: now, Progress: Progress{UpdatedAt: now}}
}

// Update records a completed stage for a running scan.
func (r *Registry) Update(id, stage string, step, total int, counts map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrUnknownScan
	}
	e.Progress.Stage = stage
	e.Progress.Step = step
	e.Progress.Total = total
	e.Progress.Stages = append(e.Progress.Stages, stage)
	e.Progress.Counts = counts
	e.Progress.UpdatedAt = r.now()
	return nil
}

// Complete stores the final result.
func (r *Registry) Complete(id string, result any) error {
	return r.finish(id, StatusCompleted, result, "")
}

// Fail marks a scan as failed with a user-facing message.
func (r *Registry) Fail(id, msg string) error {
	return r.finish(id, StatusError, nil, msg)
}

func (r *Registry) finish(id, status string, result any, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrUnknownScan
	}
	e.Status = status
	e.Result = result
	e.Err = msg
	e.Progress.UpdatedAt = r.now()
	return nil
}

// Get returns a copy of the entry. Reading a finished scan starts its
// eviction TTL.
func (r *Registry) Get(id string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, ErrUnknownScan
	}
	if e.Status != StatusRunning && e.ReadAt.IsZero() {
		e.ReadAt = r.now()
	}
	cp := *e
	cp.Progress.Stages = append([]string(nil), e.Progress.Stages...)
	return cp, nil
}

// Len returns the number of held entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict drops entries read more than the read TTL ago and entries older than
// the max age. It returns how many were removed.
func (r *Registry) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, e := range r.entries {
		if (!e.ReadAt.IsZero() && now.Sub(e.ReadAt) >= r.readTTL) || now.Sub(e.CreatedAt) >= r.maxAge {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Janitor runs Evict every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Evict()
		}
	}
}
