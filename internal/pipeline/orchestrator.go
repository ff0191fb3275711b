package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Stage is one pipeline phase. Run receives a view holding only the fields
// named by Inputs and returns the fields it produces.
type Stage interface {
	Name() string
	Inputs() []Field
	Run(ctx context.Context, view ScanState) (Update, error)
}

// Event describes a finished stage.
type Event struct {
	ScanID string
	Stage  string
	Step   int
	Total  int
	Failed bool
	Counts Counts
}

// Orchestrator runs stages sequentially and owns the errors and agent_trace
// fields.
type Orchestrator struct {
	stages []Stage
	logger hclog.Logger
	onDone func(Event)
}

// New creates an Orchestrator over stages, run in the given order.
func New(logger hclog.Logger, stages ...Stage) *Orchestrator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Orchestrator{stages: stages, logger: logger}
}

// OnStageComplete registers fn to be called after every stage, whether it
// failed or not.
func (o *Orchestrator) OnStageComplete(fn func(Event)) {
	o.onDone = fn
}

// Stages returns the stage names in run order.
func (o *Orchestrator) Stages() []string {
	out := make([]string, len(o.stages))
	for i, s := range o.stages {
		out[i] = s.Name()
	}
	return out
}

// Result is a finished scan.
type Result struct {
	ScanID   string
	State    *ScanState
	Duration time.Duration
}

// Run executes every stage for repoURL. It never aborts early: a failing or
// panicking stage is recorded as "stage:msg" and leaves the state as it was.
func (o *Orchestrator) Run(ctx context.Context, scanID, repoURL string) Result {
	start := time.Now()
	st := NewState(repoURL)
	st.Status = StatusRunning
	log := o.logger.With("scan_id", scanID)

	for i, stage := range o.stages {
		name := stage.Name()
		st.AgentTrace = append(st.AgentTrace, name)
		log.Debug("stage starting", "stage", name)

		u, err := runStage(ctx, stage, st.view(stage.Inputs()))
		failed := err != nil
		if failed {
			log.Error("stage failed", "stage", name, "error", err)
			st.Errors = append(st.Errors, name+":"+err.Error())
		} else {
			st.apply(u)
			for _, f := range u.Faults {
				log.Warn("item fault", "stage", name, "fault", f)
				st.Errors = append(st.Errors, name+":"+f)
			}
			log.Debug("stage complete", "stage", name, "faults", len(u.Faults))
		}
		if o.onDone != nil {
			o.onDone(Event{ScanID: scanID, Stage: name, Step: i + 1, Total: len(o.stages), Failed: failed, Counts: st.Counts()})
		}
	}

	st.Status = StatusCompleted
	d := time.Since(start)
	log.Info("scan complete", "duration", d, "errors", len(st.Errors))
	return Result{ScanID: scanID, State: st, Duration: d}
}

func runStage(ctx context.Context, s Stage, view ScanState) (u Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			u, err = Update{}, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Run(ctx, view)
}
