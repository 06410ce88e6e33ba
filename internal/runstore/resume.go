package runstore

import (
	"fmt"

	"github.com/planwave/planwave/internal/plan"
)

// Resume loads a run with its plan snapshot and replays every step result
// onto the plan's in-memory statuses, so NextStep and ReadySteps behave
// identically to an uninterrupted process. The replay is idempotent:
// resuming a run that never paused is a no-op for the next-step decision.
func (s *Store) Resume(runID string) (*Run, *plan.Plan, error) {
	run, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	if run == nil {
		return nil, nil, fmt.Errorf("run %s not found", runID)
	}
	p, err := s.LoadPlan(runID)
	if err != nil {
		return nil, nil, err
	}

	Replay(run, p)
	return run, p, nil
}

// Replay applies a run's step results to the plan's step statuses. Steps
// with no recorded result stay pending. In-progress results are rewound to
// pending: the work never durably finished, so it must execute again.
func Replay(run *Run, p *plan.Plan) {
	for _, s := range p.Steps {
		s.Status = plan.StatusPending
		s.Error = ""
		s.StartedAt = nil
		s.CompletedAt = nil
	}
	for _, sr := range run.StepResults {
		step := p.Step(sr.StepID)
		if step == nil {
			continue
		}
		switch sr.Status {
		case plan.StatusCompleted, plan.StatusFailed, plan.StatusSkipped:
			step.Status = sr.Status
			step.Error = sr.Error
			step.StartedAt = sr.StartedAt
			step.CompletedAt = sr.EndedAt
		case plan.StatusInProgress:
			step.Status = plan.StatusPending
		}
	}
}
