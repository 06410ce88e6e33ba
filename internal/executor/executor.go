// Package executor drives a plan through its waves: it submits each wave's
// ready steps to the worker pool, barrier-waits for the wave to finish,
// records every transition in the run store, and halts at the first failure
// or checkpoint. Control flow is single-threaded; only the pool runs work
// concurrently.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planwave/planwave/internal/artifact"
	"github.com/planwave/planwave/internal/checkpoint"
	"github.com/planwave/planwave/internal/deviation"
	dagerrors "github.com/planwave/planwave/internal/errors"
	"github.com/planwave/planwave/internal/knowledge"
	"github.com/planwave/planwave/internal/logging"
	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/pool"
	"github.com/planwave/planwave/internal/runstore"
	"github.com/planwave/planwave/internal/verify"
	"github.com/planwave/planwave/internal/wave"
)

// Executor ties the engine's components together for one project.
type Executor struct {
	Store       *runstore.Store
	Worker      Worker
	Gate        *verify.Gate
	Classifier  *deviation.Classifier
	Checkpoints *checkpoint.Manager
	Knowledge   knowledge.Store
	Log         *logging.Logger

	DataDir     string
	WorkDir     string
	Project     string
	MaxParallel int
	StepTimeout time.Duration
}

// Start validates the plan, creates a new run, and executes it to
// completion, failure, or a checkpoint halt.
func (e *Executor) Start(ctx context.Context, p *plan.Plan, planPath string) (*runstore.Run, error) {
	if errs := plan.Validate(p); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return nil, dagerrors.NewValidationError(
			fmt.Sprintf("plan %q is invalid: %s", p.ID, strings.Join(msgs, "; ")),
			"Fix the plan before starting a run")
	}

	run, err := e.Store.Create(p, planPath, e.Project)
	if err != nil {
		return run, err
	}
	e.Log.Run(run.ID, fmt.Sprintf("run created for plan %q", p.ID))
	return run, e.execute(ctx, run, p, "")
}

// Resume reloads a run, replays its recorded progress onto the plan, and
// continues from the last durably saved state. A run with an unresolved
// checkpoint refuses to resume; a completed run is a no-op.
func (e *Executor) Resume(ctx context.Context, runID string) (*runstore.Run, error) {
	run, p, err := e.Store.Resume(runID)
	if err != nil {
		return nil, err
	}

	switch run.Status {
	case runstore.RunCompleted:
		return run, nil
	case runstore.RunCancelled:
		return run, &dagerrors.RunError{Type: dagerrors.Cancelled,
			Message: fmt.Sprintf("run %s was cancelled", runID)}
	}

	response := ""
	if run.Status == runstore.RunPaused {
		cp, err := e.Store.LatestCheckpoint(runID)
		if err != nil {
			return run, err
		}
		if cp != nil && !cp.Resolved() {
			return run, &dagerrors.RunError{
				Type:    dagerrors.CheckpointHalt,
				Message: fmt.Sprintf("run %s is waiting on checkpoint %s", runID, cp.ID),
				Hint:    fmt.Sprintf("Resolve it first: planwave resolve %s --response <answer>", cp.ID),
			}
		}
		if cp != nil && cp.UserResponse != nil {
			response = *cp.UserResponse
		}
	}

	e.Log.Run(run.ID, "resuming run")
	return run, e.execute(ctx, run, p, response)
}

// DryRunStep is one entry of a dry-run report.
type DryRunStep struct {
	Wave    int    `json:"wave"`
	StepID  string `json:"step_id"`
	Action  string `json:"action"`
	Command string `json:"command,omitempty"`
}

// DryRun reports what executing the plan would do, wave by wave, without
// touching the worker, the gate, or the store.
func (e *Executor) DryRun(p *plan.Plan) ([]DryRunStep, error) {
	if errs := plan.Validate(p); len(errs) > 0 {
		return nil, errs[0]
	}
	res := wave.Assign(p)
	var out []DryRunStep
	for w := 1; w <= res.Waves.MaxWave(); w++ {
		for _, s := range res.Waves.Steps(p, w) {
			out = append(out, DryRunStep{Wave: w, StepID: s.ID, Action: s.Action, Command: s.Run})
		}
	}
	return out, nil
}

type stepOutcome struct {
	step       *plan.Step
	result     pool.Result
	needsHuman *NeedsHumanError
}

func (e *Executor) execute(ctx context.Context, run *runstore.Run, p *plan.Plan, resumeResponse string) error {
	assignment := wave.Assign(p)
	if assignment.Degraded {
		return dagerrors.NewValidationError(
			fmt.Sprintf("plan %q has unschedulable steps: %s", p.ID, strings.Join(assignment.Unplaced, ", ")),
			"Run planwave validate against the plan")
	}

	store, err := artifact.New(run.ID, e.DataDir)
	if err != nil {
		return err
	}

	resumeStep := run.CurrentStep
	run.Status = runstore.RunInProgress
	if err := e.Store.Save(run); err != nil {
		return err
	}

	for w := 1; w <= assignment.Waves.MaxWave(); w++ {
		// Ready means pending with every dependency durably completed.
		// After a resume over a failed run, steps behind the failure stay
		// unready and are reported below instead of executing.
		completed := p.CompletedIDs()
		var steps []*plan.Step
		for _, s := range assignment.Waves.Steps(p, w) {
			if s.Status != plan.StatusPending {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !completed[dep] {
					ready = false
					break
				}
			}
			if ready {
				steps = append(steps, s)
			}
		}
		if len(steps) == 0 {
			continue
		}

		// Durably record the wave's start before any unit runs: wave N-1's
		// effects happen-before wave N's submission.
		now := time.Now().UTC()
		for _, s := range steps {
			s.Status = plan.StatusInProgress
			started := now
			run.SetResult(runstore.StepResult{
				StepID:    s.ID,
				Status:    plan.StatusInProgress,
				StartedAt: &started,
			})
		}
		run.CurrentStep = steps[0].ID
		if err := e.Store.Save(run); err != nil {
			return err
		}
		e.Log.Run(run.ID, fmt.Sprintf("wave %d: %d step(s)", w, len(steps)))

		outcomes, err := e.runWave(ctx, run, steps, resumeStep, resumeResponse)
		if err != nil {
			return err
		}

		var failed []*plan.Step
		var halt *stepOutcome
		for i := range outcomes {
			o := &outcomes[i]
			if o.result.Err != nil && o.needsHuman == nil && !o.result.TimedOut && !isTimeoutErr(o.result.Err) {
				e.classify(run, o)
			}
			switch {
			case o.needsHuman != nil:
				if halt == nil {
					halt = o
				}
			default:
				e.finishStep(run, store, o)
				if o.step.Status == plan.StatusFailed {
					failed = append(failed, o.step)
				}
			}
		}
		if err := e.Store.Save(run); err != nil {
			return err
		}

		if halt != nil {
			return e.pause(run, p, halt)
		}
		if len(failed) > 0 {
			run.Status = runstore.RunFailed
			run.CurrentStep = failed[0].ID
			if err := e.Store.Save(run); err != nil {
				return err
			}
			e.Log.Error(run.ID, failed[0].ID, errors.New(failed[0].Error))
			return dagerrors.NewStepError(failed[0].ID, failed[0].Error,
				"Fix the step and resume the run")
		}
	}

	for _, s := range p.Steps {
		if s.Status == plan.StatusPending {
			run.Status = runstore.RunFailed
			if err := e.Store.Save(run); err != nil {
				return err
			}
			return dagerrors.NewStepError(s.ID,
				fmt.Sprintf("step %q is blocked by a failed dependency", s.ID),
				"Mark the failed step completed or skipped, then resume")
		}
	}

	// Run-level verification: commands without a step-type filter gate the
	// whole run. A failed required command leaves the run unverified.
	if e.Gate != nil {
		vres := e.Gate.Run(ctx, "run", "")
		if err := e.Store.SaveVerification(run.ID, vres); err != nil {
			return err
		}
		e.Log.Log(logging.Event{Type: logging.EventVerify, RunID: run.ID,
			Message: string(vres.Status)})
		if vres.Status == verify.StatusFailed {
			run.Status = runstore.RunFailed
			if err := e.Store.Save(run); err != nil {
				return err
			}
			return &dagerrors.RunError{Type: dagerrors.VerifyFailed,
				Message: "run-level verification failed",
				Hint:    "Inspect the verification record and resume after fixing"}
		}
	}

	run.Status = runstore.RunCompleted
	run.CurrentStep = ""
	if err := e.Store.Save(run); err != nil {
		return err
	}
	store.WriteResult(run)
	e.Log.Run(run.ID, "run completed")
	return nil
}

// runWave submits every step of the wave to a bounded pool and blocks until
// each has a terminal result. Each unit gets a fresh Context; nothing is
// shared between units.
func (e *Executor) runWave(ctx context.Context, run *runstore.Run, steps []*plan.Step, resumeStep, resumeResponse string) ([]stepOutcome, error) {
	pl := pool.New(e.MaxParallel)
	defer pl.Shutdown(true)

	waitTimeout := time.Duration(0)
	if e.StepTimeout > 0 {
		// The worker enforces the step timeout itself; the pool wait gets a
		// grace period so the worker's own timeout reports first.
		waitTimeout = e.StepTimeout + 30*time.Second
	}

	handles := make([]*pool.Handle, len(steps))
	for i, s := range steps {
		step := s
		notes, err := e.Knowledge.Lookup(step.Target)
		if err != nil {
			e.Log.Error(run.ID, step.ID, fmt.Errorf("knowledge lookup: %w", err))
			notes = ""
		}
		sc := &Context{
			RunID:   run.ID,
			StepID:  step.ID,
			WorkDir: e.WorkDir,
			Notes:   notes,
		}
		if step.ID == resumeStep {
			sc.Response = resumeResponse
		}
		h, err := pl.Submit(func(ctx context.Context) (string, error) {
			if e.StepTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, e.StepTimeout)
				defer cancel()
			}
			out, werr := e.Worker.Execute(ctx, step, sc)
			// A worker that yields to the deadline without reporting it still
			// counts as timed out.
			if werr == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				werr = dagerrors.NewTimeoutError(step.ID,
					fmt.Sprintf("step exceeded its %s timeout", e.StepTimeout))
			}
			return out, werr
		})
		if err != nil {
			return nil, err
		}
		handles[i] = h
	}

	outcomes := make([]stepOutcome, len(steps))
	for i, s := range steps {
		r := pl.Wait(handles[i], waitTimeout)
		outcomes[i] = stepOutcome{step: s, result: r}
		var nhe *NeedsHumanError
		if errors.As(r.Err, &nhe) {
			outcomes[i].needsHuman = nhe
		}
	}
	return outcomes, nil
}

// isTimeoutErr reports whether the error is a step-timeout signal. Timeouts
// are a scheduling outcome, not an anomaly for the deviation policy.
func isTimeoutErr(err error) bool {
	var re *dagerrors.RunError
	return errors.As(err, &re) && re.Type == dagerrors.Timeout
}

// classify runs the deviation policy over a failed step's error text and
// records the audit trail. An architectural match converts the failure into
// a checkpoint halt: the engine must not decide those on its own.
func (e *Executor) classify(run *runstore.Run, o *stepOutcome) {
	desc := o.result.Err.Error()
	rule, action := e.Classifier.Classify(desc)
	rec := deviation.NewRecord(o.step.ID, desc, rule, action, []string{o.step.Target})
	if err := e.Store.SaveDeviation(run.ID, rec); err != nil {
		e.Log.Error(run.ID, o.step.ID, err)
	}
	e.Log.Log(logging.Event{Type: logging.EventDeviation, RunID: run.ID,
		StepID: o.step.ID, Message: string(action), Data: rec})

	if action == deviation.ActionCheckpoint {
		o.needsHuman = &NeedsHumanError{
			Type:     checkpoint.TypeDecision,
			Blocker:  desc,
			Awaiting: "Approve or reject the change, then resolve the checkpoint",
		}
	}
}

// finishStep resolves one outcome into the step's terminal status, records
// verification, and writes artifacts. Runs on the executor thread only.
func (e *Executor) finishStep(run *runstore.Run, store *artifact.Store, o *stepOutcome) {
	step := o.step
	now := time.Now().UTC()
	sr := runstore.StepResult{StepID: step.ID, EndedAt: &now}
	if prev := run.Result(step.ID); prev != nil {
		sr.StartedAt = prev.StartedAt
	}
	sr.Output = o.result.Output

	switch {
	case o.result.TimedOut:
		step.Status = plan.StatusFailed
		step.Error = fmt.Sprintf("step timed out after %s", e.StepTimeout)
		e.Log.Step(run.ID, step.ID, "timed out")

	case o.result.Err != nil:
		step.Status = plan.StatusFailed
		step.Error = o.result.Err.Error()
		e.Log.Step(run.ID, step.ID, "failed")

	default:
		step.Status = plan.StatusCompleted
		if err := store.WriteStepOutput(step.ID, o.result.Output, ""); err != nil {
			e.Log.Error(run.ID, step.ID, err)
		}
		stdout, _ := store.StepPaths(step.ID)
		sr.Artifacts = []string{stdout}

		vres := e.verifyStep(step)
		if vres.Status != verify.StatusSkipped {
			if err := e.Store.SaveVerification(run.ID, vres); err != nil {
				e.Log.Error(run.ID, step.ID, err)
			}
			store.WriteVerification(step.ID, vres)
		}
		if vres.Status == verify.StatusFailed {
			// Verification rolls a completed step back to failed.
			step.Status = plan.StatusFailed
			step.Error = fmt.Sprintf("verification failed for step %q", step.ID)
		}
		e.Log.Step(run.ID, step.ID, string(step.Status))
	}

	step.CompletedAt = &now
	sr.Status = step.Status
	sr.Error = step.Error
	run.SetResult(sr)
}

// verifyStep runs the gate's type-scoped commands plus the step's own
// verify_command, which is always required. Commands without a step-type
// filter are the run-level suite and run once at the end, not per step.
func (e *Executor) verifyStep(step *plan.Step) *verify.Result {
	var cmds []verify.Command
	var workDir string
	stopOnFailure := false
	if e.Gate != nil {
		for _, c := range e.Gate.Commands {
			if len(c.StepTypes) > 0 {
				cmds = append(cmds, c)
			}
		}
		workDir = e.Gate.WorkDir
		stopOnFailure = e.Gate.StopOnFailure
	}
	if workDir == "" {
		workDir = e.WorkDir
	}
	if step.VerifyCommand != "" {
		cmds = append(cmds, verify.Command{
			Name:     "step_verify",
			Command:  step.VerifyCommand,
			Required: true,
			Timeout:  e.StepTimeout,
		})
	}
	g := verify.New(cmds, workDir, stopOnFailure)
	return g.Run(context.Background(), step.ID, step.Type)
}

// pause serializes a checkpoint for the halting step and parks the run.
func (e *Executor) pause(run *runstore.Run, p *plan.Plan, halt *stepOutcome) error {
	step := halt.step
	step.Status = plan.StatusPending // the step itself has not run
	run.SetResult(runstore.StepResult{StepID: step.ID, Status: plan.StatusPending})

	var completed []string
	for _, sr := range run.StepResults {
		if sr.Status != plan.StatusCompleted {
			continue
		}
		if s := p.Step(sr.StepID); s != nil {
			completed = append(completed, fmt.Sprintf("%s: %s", s.ID, s.Action))
		}
	}

	cp, err := e.Checkpoints.Create(run.ID, p.ID, e.Project, halt.needsHuman.Type,
		completed, step.ID, halt.needsHuman.Blocker, halt.needsHuman.Awaiting, step.Details)
	if err != nil {
		return err
	}

	run.Status = runstore.RunPaused
	run.CurrentStep = step.ID
	if err := e.Store.Save(run); err != nil {
		return err
	}
	e.Log.Log(logging.Event{Type: logging.EventCheckpoint, RunID: run.ID,
		StepID: step.ID, Message: halt.needsHuman.Blocker, Data: cp.ID})

	return &dagerrors.RunError{
		Type:    dagerrors.CheckpointHalt,
		StepID:  step.ID,
		Message: fmt.Sprintf("paused at step %q: %s", step.ID, halt.needsHuman.Blocker),
		Hint: fmt.Sprintf("Awaiting: %s. Resolve with: planwave resolve %s --response <answer>",
			halt.needsHuman.Awaiting, cp.ID),
	}
}
