package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/planwave/planwave/internal/checkpoint"
	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/runner"
)

// NeedsHumanError signals that a step cannot proceed unattended. The
// executor turns it into a checkpoint instead of a failure.
type NeedsHumanError struct {
	Type     checkpoint.Type
	Blocker  string
	Awaiting string
}

func (e *NeedsHumanError) Error() string {
	return fmt.Sprintf("needs human input: %s (awaiting: %s)", e.Blocker, e.Awaiting)
}

// Worker performs the actual work of a step. It may be a script, an
// automated agent, or a human behind a checkpoint; the engine is agnostic.
type Worker interface {
	Execute(ctx context.Context, step *plan.Step, sc *Context) (string, error)
}

// CommandWorker executes steps that carry a shell command. Checkpoint-type
// steps and steps with no command are routed to a human.
type CommandWorker struct {
	Timeout time.Duration
}

// Execute implements Worker.
func (w *CommandWorker) Execute(ctx context.Context, step *plan.Step, sc *Context) (string, error) {
	// A resolved checkpoint's response satisfies the resume step: the human
	// already did the work or made the call.
	if sc.Response != "" {
		return sc.Response, nil
	}
	if step.Type == plan.StepCheckpoint {
		return "", &NeedsHumanError{
			Type:     checkpoint.TypeHumanVerify,
			Blocker:  step.Action,
			Awaiting: step.Details,
		}
	}
	if step.Run == "" {
		return "", &NeedsHumanError{
			Type:     checkpoint.TypeHumanAction,
			Blocker:  fmt.Sprintf("step %q has no run command", step.ID),
			Awaiting: step.Action,
		}
	}

	res := runner.Run(ctx, step.Run, sc.WorkDir, w.Timeout)
	if res.TimedOut {
		return res.Stdout, fmt.Errorf("command timed out after %s", w.Timeout)
	}
	if res.ExitCode != 0 {
		msg := res.Stderr
		if msg == "" {
			msg = res.Stdout
		}
		return res.Stdout, fmt.Errorf("command exited %d: %s", res.ExitCode, msg)
	}
	return res.Stdout, nil
}

// ManualWorker routes every step to a human. Useful when a plan is executed
// as a guided checklist.
type ManualWorker struct{}

// Execute implements Worker.
func (ManualWorker) Execute(_ context.Context, step *plan.Step, _ *Context) (string, error) {
	return "", &NeedsHumanError{
		Type:     checkpoint.TypeHumanAction,
		Blocker:  fmt.Sprintf("step %q requires manual execution", step.ID),
		Awaiting: step.Action,
	}
}
