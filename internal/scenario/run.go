package scenario

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/google/uuid"
)

// Run status constants
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusTimedOut
}

var (
	ErrAlreadyStarted  = errors.New("run already started")
	ErrNotRunning      = errors.New("run is not running")
	ErrAlreadyFinished = errors.New("run already finished")
)

// Result is the outcome of one scenario invocation.
type Result struct {
	RunID      uuid.UUID    `json:"run_id"`
	ScenarioID string       `json:"scenario_id"`
	Status     Status       `json:"status"`
	Steps      int          `json:"steps"`
	FailedStep int          `json:"failed_step"`
	Kind       failure.Kind `json:"kind,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Artifacts  []string     `json:"artifacts,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	// DOMSnapshot is the simplified final DOM, attached to failures.
	DOMSnapshot string    `json:"dom_snapshot,omitempty"`
	Started     time.Time `json:"started,omitempty"`
	Finished    time.Time `json:"finished,omitempty"`
}

func (r Result) Passed() bool {
	return r.Status == StatusPassed
}

func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// LastArtifact returns the most recent screenshot path, if any.
func (r Result) LastArtifact() string {
	if len(r.Artifacts) == 0 {
		return ""
	}
	return r.Artifacts[len(r.Artifacts)-1]
}

// Run tracks one invocation through pending, running and exactly one
// terminal state.
type Run struct {
	mu     sync.Mutex
	result Result
}

func NewRun(sc Scenario) *Run {
	return &Run{result: Result{
		RunID:      uuid.New(),
		ScenarioID: sc.ID,
		Status:     StatusPending,
		Steps:      len(sc.Steps),
		FailedStep: failure.NoStep,
	}}
}

func (r *Run) ID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result.RunID
}

func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result.Status
}

func (r *Run) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result.Status != StatusPending {
		return fmt.Errorf("%w: status %s", ErrAlreadyStarted, r.result.Status)
	}
	r.result.Status = StatusRunning
	r.result.Started = time.Now().UTC()
	return nil
}

// Finish records the terminal state derived from err: nil passes, timeout
// kinds time out and everything else fails. Only the first call counts.
func (r *Run) Finish(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.result.Status.Terminal():
		return ErrAlreadyFinished
	case r.result.Status != StatusRunning:
		return ErrNotRunning
	}

	r.result.Finished = time.Now().UTC()
	if err == nil {
		r.result.Status = StatusPassed
		return nil
	}

	kind := failure.KindOf(err)
	r.result.Kind = kind
	r.result.FailedStep = failure.StepOf(err)
	r.result.Reason = err.Error()
	var fe *failure.Error
	if errors.As(err, &fe) {
		r.result.Reason = fe.Reason()
	}
	if kind.Timeout() {
		r.result.Status = StatusTimedOut
	} else {
		r.result.Status = StatusFailed
	}
	return nil
}

func (r *Run) AddArtifact(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Artifacts = append(r.result.Artifacts, path)
}

func (r *Run) AddWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Warnings = append(r.result.Warnings, msg)
}

func (r *Run) SetSnapshot(snapshot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.DOMSnapshot = snapshot
}

// Result returns a copy of the current state.
func (r *Run) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.result
	res.Artifacts = append([]string(nil), r.result.Artifacts...)
	res.Warnings = append([]string(nil), r.result.Warnings...)
	return res
}
