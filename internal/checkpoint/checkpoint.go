// Package checkpoint serializes paused execution state for decisions the
// engine must not make on its own, and replays the human resolution back
// into a fresh execution context.
package checkpoint

import "time"

// Type says what kind of input the checkpoint is waiting for.
type Type string

const (
	TypeHumanVerify Type = "human_verify"
	TypeDecision    Type = "decision"
	TypeHumanAction Type = "human_action"
)

// Checkpoint is a serialized halt point. UserResponse and ResolvedAt stay
// nil until an external resolver answers.
type Checkpoint struct {
	ID             string     `json:"id"`
	RunID          string     `json:"run_id"`
	PlanID         string     `json:"plan_id"`
	Project        string     `json:"project"`
	Type           Type       `json:"type"`
	CompletedTasks []string   `json:"completed_tasks,omitempty"`
	CurrentTask    string     `json:"current_task,omitempty"`
	Blocker        string     `json:"blocker"`
	Awaiting       string     `json:"awaiting"`
	Context        string     `json:"context,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	UserResponse   *string    `json:"user_response,omitempty"`
}

// Resolved reports whether an external response has been recorded.
func (c *Checkpoint) Resolved() bool {
	return c.ResolvedAt != nil
}
