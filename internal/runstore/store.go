// Package runstore persists runs, step results, checkpoints, verification
// results and deviation records in a local SQLite database. The store is
// single-writer: one orchestrator process owns a given run's record, and
// saves are full-record overwrites.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/planwave/planwave/internal/checkpoint"
	"github.com/planwave/planwave/internal/deviation"
	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/verify"
)

// Store wraps the SQLite database.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run database: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			plan_path TEXT,
			plan_json TEXT NOT NULL,
			status TEXT NOT NULL,
			current_step TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS step_results (
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			step_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME,
			ended_at DATETIME,
			output TEXT,
			error TEXT,
			artifacts TEXT,
			PRIMARY KEY (run_id, step_id)
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			project TEXT NOT NULL,
			payload TEXT NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS verifications (
			run_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			status TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, step_id)
		);`,
		`CREATE TABLE IF NOT EXISTS deviations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step_id TEXT,
			category TEXT,
			rule TEXT,
			action TEXT NOT NULL,
			details TEXT,
			resolution TEXT,
			created_at DATETIME NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	return &Store{DB: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Create allocates a new run for a plan, persists it with status pending,
// and stores a JSON snapshot of the plan alongside it so resume never
// depends on the original file staying put.
func (s *Store) Create(p *plan.Plan, planPath, project string) (*Run, error) {
	now := time.Now().UTC()
	run := &Run{
		ID:        uuid.New().String(),
		Project:   project,
		PlanID:    p.ID,
		PlanPath:  planPath,
		Status:    RunPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	planJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("snapshotting plan: %w", err)
	}
	_, err = s.DB.Exec(
		`INSERT INTO runs (id, project, plan_id, plan_path, plan_json, status, current_step, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.PlanID, run.PlanPath, string(planJSON),
		string(run.Status), run.CurrentStep, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// Save idempotently overwrites the run's durable record: the run row is
// upserted and its step results replaced wholesale. There is no
// partial-update API; callers read-modify-write.
func (s *Store) Save(run *Run) error {
	run.UpdatedAt = time.Now().UTC()

	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE runs SET status = ?, current_step = ?, updated_at = ? WHERE id = ?`,
		string(run.Status), run.CurrentStep, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM step_results WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clearing step results: %w", err)
	}
	for i, sr := range run.StepResults {
		artifacts, err := json.Marshal(sr.Artifacts)
		if err != nil {
			return fmt.Errorf("encoding artifacts for step %s: %w", sr.StepID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO step_results (run_id, position, step_id, status, started_at, ended_at, output, error, artifacts)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, sr.StepID, string(sr.Status), sr.StartedAt, sr.EndedAt,
			sr.Output, sr.Error, string(artifacts),
		)
		if err != nil {
			return fmt.Errorf("inserting result for step %s: %w", sr.StepID, err)
		}
	}

	return tx.Commit()
}

// Load reads a run and its step results. Returns nil, nil when no run with
// that id exists.
func (s *Store) Load(runID string) (*Run, error) {
	run := &Run{}
	var status string
	err := s.DB.QueryRow(
		`SELECT id, project, plan_id, plan_path, status, current_step, created_at, updated_at
		 FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Project, &run.PlanID, &run.PlanPath, &status,
		&run.CurrentStep, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	run.Status = RunStatus(status)

	rows, err := s.DB.Query(
		`SELECT step_id, status, started_at, ended_at, output, error, artifacts
		 FROM step_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading step results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sr StepResult
		var srStatus string
		var artifacts sql.NullString
		var output, errText sql.NullString
		if err := rows.Scan(&sr.StepID, &srStatus, &sr.StartedAt, &sr.EndedAt, &output, &errText, &artifacts); err != nil {
			return nil, fmt.Errorf("scanning step result: %w", err)
		}
		sr.Status = plan.StepStatus(srStatus)
		sr.Output = output.String
		sr.Error = errText.String
		if artifacts.Valid && artifacts.String != "" {
			if err := json.Unmarshal([]byte(artifacts.String), &sr.Artifacts); err != nil {
				return nil, fmt.Errorf("decoding artifacts for step %s: %w", sr.StepID, err)
			}
		}
		run.StepResults = append(run.StepResults, sr)
	}
	return run, rows.Err()
}

// LoadPlan returns the plan snapshot stored with a run.
func (s *Store) LoadPlan(runID string) (*plan.Plan, error) {
	var planJSON string
	err := s.DB.QueryRow(`SELECT plan_json FROM runs WHERE id = ?`, runID).Scan(&planJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan snapshot: %w", err)
	}
	return plan.LoadJSON([]byte(planJSON))
}

// ListRuns returns every run in a project, most recent first.
func (s *Store) ListRuns(project string) ([]*Run, error) {
	rows, err := s.DB.Query(
		`SELECT id FROM runs WHERE project = ? ORDER BY created_at DESC`, project)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var runs []*Run
	for _, id := range ids {
		run, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Progress summarizes a run against its plan.
func (s *Store) Progress(runID string) (*Progress, error) {
	run, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	p, err := s.LoadPlan(runID)
	if err != nil {
		return nil, err
	}

	prog := &Progress{Total: len(p.Steps), Status: run.Status}
	for _, sr := range run.StepResults {
		switch sr.Status {
		case plan.StatusCompleted, plan.StatusSkipped:
			prog.Completed++
		case plan.StatusFailed:
			prog.Failed++
		}
	}
	return prog, nil
}

// SaveVerification records a verification result keyed by (run, step).
func (s *Store) SaveVerification(runID string, res *verify.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding verification: %w", err)
	}
	_, err = s.DB.Exec(
		`INSERT INTO verifications (run_id, step_id, status, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, step_id) DO UPDATE SET status = excluded.status,
		 payload = excluded.payload, created_at = excluded.created_at`,
		runID, res.StepID, string(res.Status), string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving verification: %w", err)
	}
	return nil
}

// LoadVerification returns the stored verification for (run, step), or nil.
func (s *Store) LoadVerification(runID, stepID string) (*verify.Result, error) {
	var payload string
	err := s.DB.QueryRow(
		`SELECT payload FROM verifications WHERE run_id = ? AND step_id = ?`,
		runID, stepID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading verification: %w", err)
	}
	var res verify.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decoding verification: %w", err)
	}
	return &res, nil
}

// SaveDeviation appends a deviation record to the audit trail.
func (s *Store) SaveDeviation(runID string, rec *deviation.Record) error {
	_, err := s.DB.Exec(
		`INSERT INTO deviations (run_id, step_id, category, rule, action, details, resolution, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.StepID, string(rec.Category), rec.Rule, string(rec.Action),
		rec.Details, rec.Resolution, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving deviation: %w", err)
	}
	return nil
}

// SaveCheckpoint upserts a checkpoint record. Implements checkpoint.Store.
func (s *Store) SaveCheckpoint(cp *checkpoint.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	resolved := 0
	if cp.Resolved() {
		resolved = 1
	}
	_, err = s.DB.Exec(
		`INSERT INTO checkpoints (id, run_id, project, payload, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, resolved = excluded.resolved`,
		cp.ID, cp.RunID, cp.Project, string(payload), resolved, cp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint loads one checkpoint by id, or nil. Implements checkpoint.Store.
func (s *Store) GetCheckpoint(id string) (*checkpoint.Checkpoint, error) {
	var payload string
	err := s.DB.QueryRow(`SELECT payload FROM checkpoints WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	var cp checkpoint.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return &cp, nil
}

// LatestCheckpoint returns the most recent checkpoint for a run, resolved
// or not, or nil when the run has none.
func (s *Store) LatestCheckpoint(runID string) (*checkpoint.Checkpoint, error) {
	var payload string
	err := s.DB.QueryRow(
		`SELECT payload FROM checkpoints WHERE run_id = ? ORDER BY created_at DESC LIMIT 1`,
		runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest checkpoint: %w", err)
	}
	var cp checkpoint.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return &cp, nil
}

// ListPendingCheckpoints enumerates unresolved checkpoints across all runs
// in a project, oldest first. Implements checkpoint.Store.
func (s *Store) ListPendingCheckpoints(project string) ([]*checkpoint.Checkpoint, error) {
	rows, err := s.DB.Query(
		`SELECT payload FROM checkpoints WHERE project = ? AND resolved = 0 ORDER BY created_at`,
		project)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []*checkpoint.Checkpoint
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var cp checkpoint.Checkpoint
		if err := json.Unmarshal([]byte(payload), &cp); err != nil {
			return nil, fmt.Errorf("decoding checkpoint: %w", err)
		}
		cps = append(cps, &cp)
	}
	return cps, rows.Err()
}
