package checkpoint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence the manager needs. The run store implements it.
type Store interface {
	SaveCheckpoint(cp *Checkpoint) error
	GetCheckpoint(id string) (*Checkpoint, error)
	ListPendingCheckpoints(project string) ([]*Checkpoint, error)
}

// ResumeContext is the fresh execution context a caller builds from a
// resolved checkpoint before continuing the run.
type ResumeContext struct {
	RunID          string
	CompletedTasks []string
	ResumeStep     string
	Response       string
	Context        string
}

// Manager creates, lists and resolves checkpoints.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create persists a new pending checkpoint for a halted run.
func (m *Manager) Create(runID, planID, project string, typ Type, completed []string, currentTask, blocker, awaiting, execContext string) (*Checkpoint, error) {
	cp := &Checkpoint{
		ID:             uuid.New().String(),
		RunID:          runID,
		PlanID:         planID,
		Project:        project,
		Type:           typ,
		CompletedTasks: completed,
		CurrentTask:    currentTask,
		Blocker:        blocker,
		Awaiting:       awaiting,
		Context:        execContext,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.SaveCheckpoint(cp); err != nil {
		return nil, fmt.Errorf("persisting checkpoint: %w", err)
	}
	return cp, nil
}

// Resolve stamps the checkpoint with the external response and returns the
// context a caller needs to continue the run.
func (m *Manager) Resolve(id, response string) (*ResumeContext, error) {
	cp, err := m.store.GetCheckpoint(id)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("checkpoint %s not found", id)
	}
	if cp.Resolved() {
		return nil, fmt.Errorf("checkpoint %s already resolved at %s", id, cp.ResolvedAt.Format(time.RFC3339))
	}
	now := time.Now().UTC()
	cp.ResolvedAt = &now
	cp.UserResponse = &response
	if err := m.store.SaveCheckpoint(cp); err != nil {
		return nil, fmt.Errorf("persisting resolution: %w", err)
	}
	return &ResumeContext{
		RunID:          cp.RunID,
		CompletedTasks: cp.CompletedTasks,
		ResumeStep:     cp.CurrentTask,
		Response:       response,
		Context:        cp.Context,
	}, nil
}

// ListPending enumerates every unresolved checkpoint across all runs in a
// project, independent of which run is current. Checkpoints are never
// silently dropped.
func (m *Manager) ListPending(project string) ([]*Checkpoint, error) {
	return m.store.ListPendingCheckpoints(project)
}
