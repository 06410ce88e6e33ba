// Package verify runs configured external check commands and aggregates an
// overall pass/fail verdict for a step or a whole run.
package verify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/runner"
)

// Status is the overall outcome of a verification pass.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Command is one configured check.
type Command struct {
	Name     string        `yaml:"name" json:"name"`
	Command  string        `yaml:"command" json:"command"`
	WorkDir  string        `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Required bool          `yaml:"required" json:"required"`

	// StepTypes limits the command to particular step types. Empty means it
	// applies to every step.
	StepTypes []plan.StepType `yaml:"step_types,omitempty" json:"step_types,omitempty"`
}

// UnmarshalYAML accepts timeouts as duration strings like "90s" or "5m".
func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Name      string          `yaml:"name"`
		Command   string          `yaml:"command"`
		WorkDir   string          `yaml:"workdir"`
		Timeout   string          `yaml:"timeout"`
		Required  bool            `yaml:"required"`
		StepTypes []plan.StepType `yaml:"step_types"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	c.Name = aux.Name
	c.Command = aux.Command
	c.WorkDir = aux.WorkDir
	c.Required = aux.Required
	c.StepTypes = aux.StepTypes
	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("command %q: bad timeout %q: %w", aux.Name, aux.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// CommandResult records one command's execution.
type CommandResult struct {
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	ExitCode  int       `json:"exit_code"`
	Stdout    string    `json:"stdout,omitempty"`
	Stderr    string    `json:"stderr,omitempty"`
	Required  bool      `json:"required"`
	TimedOut  bool      `json:"timed_out,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Passed reports whether the command succeeded.
func (c CommandResult) Passed() bool {
	return !c.Skipped && !c.TimedOut && c.ExitCode == 0
}

// Result aggregates every command outcome for one verification pass.
// Overall status is passed iff every required command passed. Optional
// failures are retained for diagnostics but never flip the verdict.
type Result struct {
	StepID   string          `json:"step_id,omitempty"`
	Status   Status          `json:"status"`
	Commands []CommandResult `json:"commands"`
}

// Gate executes verification commands in configured order.
type Gate struct {
	Commands      []Command
	WorkDir       string
	StopOnFailure bool
}

// New constructs a gate with a default working directory for commands that
// do not set their own.
func New(commands []Command, workDir string, stopOnFailure bool) *Gate {
	return &Gate{Commands: commands, WorkDir: workDir, StopOnFailure: stopOnFailure}
}

// Run executes every applicable command in order and aggregates the verdict.
// With no applicable commands the result is skipped, which downstream
// consumers must not conflate with passed.
func (g *Gate) Run(ctx context.Context, stepID string, stepType plan.StepType) *Result {
	res := &Result{StepID: stepID, Status: StatusSkipped}

	requiredFailed := false
	stopped := false
	ran := 0
	for _, cmd := range g.Commands {
		if !cmd.applies(stepType) {
			continue
		}
		cr := CommandResult{
			Name:     cmd.Name,
			Command:  cmd.Command,
			Required: cmd.Required,
		}
		if stopped {
			cr.Skipped = true
			res.Commands = append(res.Commands, cr)
			continue
		}

		dir := cmd.WorkDir
		if dir == "" {
			dir = g.WorkDir
		}
		cr.StartedAt = time.Now()
		sh := runner.Run(ctx, cmd.Command, dir, cmd.Timeout)
		cr.EndedAt = time.Now()
		cr.ExitCode = sh.ExitCode
		cr.Stdout = sh.Stdout
		cr.Stderr = sh.Stderr
		cr.TimedOut = sh.TimedOut
		res.Commands = append(res.Commands, cr)
		ran++

		if !cr.Passed() && cmd.Required {
			requiredFailed = true
			if g.StopOnFailure {
				stopped = true
			}
		}
	}

	if ran == 0 {
		return res
	}
	if requiredFailed {
		res.Status = StatusFailed
	} else {
		res.Status = StatusPassed
	}
	return res
}

func (c Command) applies(stepType plan.StepType) bool {
	if len(c.StepTypes) == 0 {
		return true
	}
	for _, t := range c.StepTypes {
		if t == stepType {
			return true
		}
	}
	return false
}
