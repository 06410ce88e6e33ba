package plan

import "time"

// StepType is the closed set of work a step can describe.
type StepType string

const (
	StepRead       StepType = "read"
	StepExtract    StepType = "extract"
	StepCreate     StepType = "create"
	StepModify     StepType = "modify"
	StepWire       StepType = "wire"
	StepVerify     StepType = "verify"
	StepTest       StepType = "test"
	StepCheckpoint StepType = "checkpoint"
)

// KnownStepTypes enumerates every valid StepType.
var KnownStepTypes = map[StepType]bool{
	StepRead:       true,
	StepExtract:    true,
	StepCreate:     true,
	StepModify:     true,
	StepWire:       true,
	StepVerify:     true,
	StepTest:       true,
	StepCheckpoint: true,
}

// RiskLevel tags how dangerous a step is if it goes wrong.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// StepStatus is the lifecycle state of a step within a run.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
	StatusSkipped    StepStatus = "skipped"
)

// Step is one unit of planned work. The structural fields (ID, DependsOn,
// type, target) are immutable once the plan is loaded; Status, Error and the
// timestamps are mutated by the executor as the run progresses.
type Step struct {
	ID            string    `yaml:"id" json:"id"`
	Type          StepType  `yaml:"type" json:"type"`
	Target        string    `yaml:"target,omitempty" json:"target,omitempty"`
	Action        string    `yaml:"action" json:"action"`
	Details       string    `yaml:"details,omitempty" json:"details,omitempty"`
	Run           string    `yaml:"run,omitempty" json:"run,omitempty"`
	DependsOn     []string  `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Order         int       `yaml:"order,omitempty" json:"order,omitempty"`
	Risk          RiskLevel `yaml:"risk,omitempty" json:"risk,omitempty"`
	VerifyCommand string    `yaml:"verify_command,omitempty" json:"verify_command,omitempty"`
	Inputs        []string  `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs       []string  `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	// Mutable run state, owned by the executor.
	Status      StepStatus `yaml:"-" json:"status,omitempty"`
	Error       string     `yaml:"-" json:"error,omitempty"`
	StartedAt   *time.Time `yaml:"-" json:"started_at,omitempty"`
	CompletedAt *time.Time `yaml:"-" json:"completed_at,omitempty"`

	// Wave is the scheduling wave assigned by the wave assigner. Zero means
	// not yet assigned.
	Wave int `yaml:"-" json:"wave,omitempty"`
}

// Plan is a validated, dependency-ordered set of steps. The structural graph
// never changes after load; only step statuses move during a run.
type Plan struct {
	ID          string  `yaml:"id,omitempty" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []*Step `yaml:"steps" json:"steps"`
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *Step {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// CompletedIDs returns the set of step ids whose status is completed or
// skipped. Skipped steps count as satisfied dependencies.
func (p *Plan) CompletedIDs() map[string]bool {
	done := map[string]bool{}
	for _, s := range p.Steps {
		if s.Status == StatusCompleted || s.Status == StatusSkipped {
			done[s.ID] = true
		}
	}
	return done
}
