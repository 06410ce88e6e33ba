package checkpoint

import (
	"testing"
)

// memStore is an in-memory Store for manager tests.
type memStore struct {
	byID map[string]*Checkpoint
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*Checkpoint{}}
}

func (m *memStore) SaveCheckpoint(cp *Checkpoint) error {
	copied := *cp
	m.byID[cp.ID] = &copied
	return nil
}

func (m *memStore) GetCheckpoint(id string) (*Checkpoint, error) {
	cp, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *cp
	return &copied, nil
}

func (m *memStore) ListPendingCheckpoints(project string) ([]*Checkpoint, error) {
	var out []*Checkpoint
	for _, cp := range m.byID {
		if cp.Project == project && !cp.Resolved() {
			out = append(out, cp)
		}
	}
	return out, nil
}

func TestCreatePersistsPendingCheckpoint(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	cp, err := mgr.Create("run-1", "plan-1", "proj", TypeDecision,
		[]string{"a: done"}, "b", "schema change needed", "approve or reject", "ctx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp.ID == "" {
		t.Fatal("checkpoint should get an id")
	}
	if cp.Resolved() {
		t.Fatal("fresh checkpoint must be unresolved")
	}

	pending, _ := mgr.ListPending("proj")
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending checkpoint, got %d", len(pending))
	}
}

func TestResolveStampsResponse(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	cp, _ := mgr.Create("run-1", "plan-1", "proj", TypeHumanVerify,
		nil, "b", "blocked", "a decision", "")

	rc, err := mgr.Resolve(cp.ID, "approved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Response != "approved" || rc.RunID != "run-1" || rc.ResumeStep != "b" {
		t.Errorf("unexpected resume context: %+v", rc)
	}

	stored, _ := store.GetCheckpoint(cp.ID)
	if !stored.Resolved() {
		t.Fatal("resolution not persisted")
	}
	if *stored.UserResponse != "approved" {
		t.Errorf("expected response persisted, got %q", *stored.UserResponse)
	}

	pending, _ := mgr.ListPending("proj")
	if len(pending) != 0 {
		t.Errorf("resolved checkpoint still listed as pending")
	}
}

func TestResolveTwiceFails(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	cp, _ := mgr.Create("run-1", "plan-1", "proj", TypeDecision, nil, "b", "x", "y", "")

	if _, err := mgr.Resolve(cp.ID, "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mgr.Resolve(cp.ID, "second"); err == nil {
		t.Fatal("expected error resolving an already-resolved checkpoint")
	}
}

func TestResolveUnknownCheckpointFails(t *testing.T) {
	mgr := NewManager(newMemStore())
	if _, err := mgr.Resolve("nope", "r"); err == nil {
		t.Fatal("expected error for unknown checkpoint")
	}
}

func TestListPendingScopedToProject(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	mgr.Create("run-1", "plan-1", "proj-a", TypeDecision, nil, "s", "x", "y", "")
	mgr.Create("run-2", "plan-2", "proj-b", TypeDecision, nil, "s", "x", "y", "")

	pending, _ := mgr.ListPending("proj-a")
	if len(pending) != 1 || pending[0].RunID != "run-1" {
		t.Errorf("expected only proj-a checkpoints, got %+v", pending)
	}
}
