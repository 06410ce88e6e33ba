package runstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/planwave/planwave/internal/checkpoint"
	"github.com/planwave/planwave/internal/deviation"
	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/verify"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePlan(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.Load([]byte(`
name: sample
steps:
  - id: a
    type: create
    action: make a thing
  - id: b
    type: verify
    action: check the thing
    depends_on: [a]
`))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateAllocatesPendingRun(t *testing.T) {
	s := openStore(t)
	run, err := s.Create(samplePlan(t), "plan.yaml", "proj")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID == "" {
		t.Fatal("run should get an id")
	}
	if run.Status != RunPending {
		t.Errorf("expected pending, got %q", run.Status)
	}

	loaded, err := s.Load(run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil || loaded.PlanID != "sample" || loaded.Project != "proj" {
		t.Errorf("unexpected loaded run: %+v", loaded)
	}
}

func TestLoadUnknownRunReturnsNil(t *testing.T) {
	s := openStore(t)
	run, err := s.Load("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Fatal("expected nil for unknown run")
	}
}

func TestSaveIsFullOverwrite(t *testing.T) {
	s := openStore(t)
	run, _ := s.Create(samplePlan(t), "", "proj")

	now := time.Now().UTC()
	run.Status = RunInProgress
	run.SetResult(StepResult{StepID: "a", Status: plan.StatusCompleted, StartedAt: &now, EndedAt: &now, Output: "ok"})
	run.SetResult(StepResult{StepID: "b", Status: plan.StatusInProgress, StartedAt: &now})
	if err := s.Save(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second save with a shrunk result set must fully replace the first.
	run.StepResults = []StepResult{{StepID: "a", Status: plan.StatusCompleted, StartedAt: &now, EndedAt: &now}}
	if err := s.Save(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, _ := s.Load(run.ID)
	if len(loaded.StepResults) != 1 {
		t.Fatalf("expected full overwrite to leave 1 result, got %d", len(loaded.StepResults))
	}
	if loaded.StepResults[0].StepID != "a" {
		t.Errorf("unexpected result: %+v", loaded.StepResults[0])
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	s := openStore(t)
	run, _ := s.Create(samplePlan(t), "", "proj")
	run.Status = RunCompleted
	if err := s.Save(run); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(run); err != nil {
		t.Fatal(err)
	}
	loaded, _ := s.Load(run.ID)
	if loaded.Status != RunCompleted {
		t.Errorf("expected completed, got %q", loaded.Status)
	}
}

func TestResumeReplaysStatusesOntoPlan(t *testing.T) {
	s := openStore(t)
	p := samplePlan(t)
	run, _ := s.Create(p, "", "proj")

	now := time.Now().UTC()
	run.SetResult(StepResult{StepID: "a", Status: plan.StatusCompleted, StartedAt: &now, EndedAt: &now})
	run.Status = RunPaused
	if err := s.Save(run); err != nil {
		t.Fatal(err)
	}

	_, replayed, err := s.Resume(run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replayed.Step("a").Status != plan.StatusCompleted {
		t.Errorf("step a should replay as completed, got %q", replayed.Step("a").Status)
	}
	if replayed.Step("b").Status != plan.StatusPending {
		t.Errorf("step b should stay pending, got %q", replayed.Step("b").Status)
	}
	next := replayed.NextStep(replayed.CompletedIDs())
	if next == nil || next.ID != "b" {
		t.Errorf("expected next step b after replay, got %v", next)
	}
}

// Resume law: for any prefix of completed steps, the resumed next-step
// decision matches an uninterrupted session's.
func TestResumeMatchesUninterruptedDecision(t *testing.T) {
	prefixes := [][]string{{}, {"a"}, {"a", "b"}}
	for _, prefix := range prefixes {
		s := openStore(t)
		p := samplePlan(t)
		run, _ := s.Create(p, "", "proj")

		now := time.Now().UTC()
		uninterrupted := samplePlan(t)
		for _, id := range prefix {
			run.SetResult(StepResult{StepID: id, Status: plan.StatusCompleted, StartedAt: &now, EndedAt: &now})
			uninterrupted.Step(id).Status = plan.StatusCompleted
		}
		if err := s.Save(run); err != nil {
			t.Fatal(err)
		}

		_, replayed, err := s.Resume(run.ID)
		if err != nil {
			t.Fatal(err)
		}
		want := uninterrupted.NextStep(uninterrupted.CompletedIDs())
		got := replayed.NextStep(replayed.CompletedIDs())
		switch {
		case want == nil && got == nil:
		case want == nil || got == nil || want.ID != got.ID:
			t.Errorf("prefix %v: want %v, got %v", prefix, want, got)
		}
	}
}

func TestReplayRewindsInProgressToPending(t *testing.T) {
	s := openStore(t)
	p := samplePlan(t)
	run, _ := s.Create(p, "", "proj")
	now := time.Now().UTC()
	run.SetResult(StepResult{StepID: "a", Status: plan.StatusInProgress, StartedAt: &now})
	s.Save(run)

	_, replayed, err := s.Resume(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if replayed.Step("a").Status != plan.StatusPending {
		t.Errorf("in-progress work never durably finished; expected pending, got %q",
			replayed.Step("a").Status)
	}
}

func TestProgressCounts(t *testing.T) {
	s := openStore(t)
	run, _ := s.Create(samplePlan(t), "", "proj")
	now := time.Now().UTC()
	run.Status = RunFailed
	run.SetResult(StepResult{StepID: "a", Status: plan.StatusCompleted, EndedAt: &now})
	run.SetResult(StepResult{StepID: "b", Status: plan.StatusFailed, EndedAt: &now, Error: "boom"})
	s.Save(run)

	prog, err := s.Progress(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if prog.Total != 2 || prog.Completed != 1 || prog.Failed != 1 {
		t.Errorf("unexpected progress: %+v", prog)
	}
	if prog.Status != RunFailed {
		t.Errorf("expected failed status, got %q", prog.Status)
	}
}

func TestVerificationRoundTrip(t *testing.T) {
	s := openStore(t)
	run, _ := s.Create(samplePlan(t), "", "proj")

	res := &verify.Result{StepID: "a", Status: verify.StatusPassed,
		Commands: []verify.CommandResult{{Name: "lint", Command: "true", Required: true}}}
	if err := s.SaveVerification(run.ID, res); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadVerification(run.ID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.Status != verify.StatusPassed || len(loaded.Commands) != 1 {
		t.Errorf("unexpected verification: %+v", loaded)
	}

	// Overwrite on re-verify.
	res.Status = verify.StatusFailed
	if err := s.SaveVerification(run.ID, res); err != nil {
		t.Fatal(err)
	}
	loaded, _ = s.LoadVerification(run.ID, "a")
	if loaded.Status != verify.StatusFailed {
		t.Errorf("expected overwrite to failed, got %q", loaded.Status)
	}
}

func TestDeviationAudit(t *testing.T) {
	s := openStore(t)
	run, _ := s.Create(samplePlan(t), "", "proj")
	rec := deviation.NewRecord("a", "needs alter table", &deviation.Rule{
		Name: "schema-change", Category: deviation.CategoryArchitectural,
	}, deviation.ActionCheckpoint, []string{"db"})
	if err := s.SaveDeviation(run.ID, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckpointPersistenceThroughManager(t *testing.T) {
	s := openStore(t)
	mgr := checkpoint.NewManager(s)

	cp, err := mgr.Create("run-1", "plan-1", "proj", checkpoint.TypeDecision,
		[]string{"a: done"}, "b", "schema change", "approval", "context blob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, err := s.ListPendingCheckpoints("proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != cp.ID {
		t.Fatalf("expected the pending checkpoint, got %+v", pending)
	}

	latest, err := s.LatestCheckpoint("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != cp.ID {
		t.Fatalf("expected latest checkpoint, got %+v", latest)
	}

	if _, err := mgr.Resolve(cp.ID, "approved"); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.ListPendingCheckpoints("proj")
	if len(pending) != 0 {
		t.Error("resolved checkpoint still pending")
	}
	latest, _ = s.LatestCheckpoint("run-1")
	if latest == nil || !latest.Resolved() {
		t.Error("latest checkpoint should be resolved")
	}
}

func TestListRuns(t *testing.T) {
	s := openStore(t)
	s.Create(samplePlan(t), "", "proj")
	s.Create(samplePlan(t), "", "proj")
	s.Create(samplePlan(t), "", "other")

	runs, err := s.ListRuns("proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs in proj, got %d", len(runs))
	}
}
