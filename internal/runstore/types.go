package runstore

import (
	"time"

	"github.com/planwave/planwave/internal/plan"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunPaused     RunStatus = "paused"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunCancelled  RunStatus = "cancelled"
)

// StepResult is the durable record of one step's execution within a run.
type StepResult struct {
	StepID    string          `json:"step_id"`
	Status    plan.StepStatus `json:"status"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Output    string          `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	Artifacts []string        `json:"artifacts,omitempty"`
}

// Run is the only mutable, durable record of execution progress. The plan's
// in-memory step statuses are rehydrated from StepResults on resume.
type Run struct {
	ID          string       `json:"id"`
	Project     string       `json:"project"`
	PlanID      string       `json:"plan_id"`
	PlanPath    string       `json:"plan_path,omitempty"`
	Status      RunStatus    `json:"status"`
	CurrentStep string       `json:"current_step,omitempty"`
	StepResults []StepResult `json:"step_results"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Progress summarizes a run for status reporting.
type Progress struct {
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Status    RunStatus `json:"status"`
}

// Result returns the recorded result for a step, or nil.
func (r *Run) Result(stepID string) *StepResult {
	for i := range r.StepResults {
		if r.StepResults[i].StepID == stepID {
			return &r.StepResults[i]
		}
	}
	return nil
}

// SetResult records a step result, replacing any earlier record for the same
// step. Ordering of first appearance is preserved.
func (r *Run) SetResult(sr StepResult) {
	for i := range r.StepResults {
		if r.StepResults[i].StepID == sr.StepID {
			r.StepResults[i] = sr
			return
		}
	}
	r.StepResults = append(r.StepResults, sr)
}
