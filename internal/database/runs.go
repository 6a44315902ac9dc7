package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kosarica/feed-service/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS refresh_runs (
	id TEXT PRIMARY KEY,
	trigger TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	suppliers_total INTEGER NOT NULL DEFAULT 0,
	outcomes JSONB NOT NULL DEFAULT '{}'::jsonb,
	error TEXT,
	metadata JSONB
);

CREATE INDEX IF NOT EXISTS refresh_runs_started_at_idx ON refresh_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS refresh_run_suppliers (
	run_id TEXT NOT NULL REFERENCES refresh_runs(id) ON DELETE CASCADE,
	supplier_id TEXT NOT NULL,
	supplier_name TEXT,
	outcome TEXT NOT NULL,
	product_count INTEGER NOT NULL DEFAULT 0,
	rejected_count INTEGER NOT NULL DEFAULT 0,
	fingerprint TEXT,
	error TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (run_id, supplier_id)
);
`

// RunStore persists refresh run history
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a run store over a pool
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// EnsureSchema creates the run history tables if they do not exist
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create run tables: %w", err)
	}
	return nil
}

// StartRun records a new running run
func (s *RunStore) StartRun(ctx context.Context, run *types.RunSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_runs (id, trigger, status, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.ID, string(run.Trigger), string(types.RunStatusRunning), run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordSupplier stores the result of one supplier in a run
func (s *RunStore) RecordSupplier(ctx context.Context, runID string, r types.SupplierResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_run_suppliers
			(run_id, supplier_id, supplier_name, outcome, product_count, rejected_count, fingerprint, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
		ON CONFLICT (run_id, supplier_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			product_count = EXCLUDED.product_count,
			rejected_count = EXCLUDED.rejected_count,
			fingerprint = EXCLUDED.fingerprint,
			error = EXCLUDED.error,
			duration_ms = EXCLUDED.duration_ms,
			recorded_at = NOW()
	`, runID, r.SupplierID, r.SupplierName, string(r.Outcome), r.ProductCount, r.RejectedCount,
		r.Fingerprint, r.Error, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record supplier %s for run %s: %w", r.SupplierID, runID, err)
	}
	return nil
}

// FinishRun stores the final state of a run
func (s *RunStore) FinishRun(ctx context.Context, run *types.RunSummary) error {
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	completedAt := time.Now()
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE refresh_runs
		SET status = $2,
		    completed_at = $3,
		    suppliers_total = $4,
		    outcomes = $5,
		    error = NULLIF($6, '')
		WHERE id = $1
	`, run.ID, string(run.Status), completedAt, run.SuppliersTotal, outcomes, run.Error)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, trigger, status, started_at, completed_at, suppliers_total, outcomes, COALESCE(error, '')
		FROM refresh_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]types.RunSummary, 0)
	for rows.Next() {
		var (
			run      types.RunSummary
			trigger  string
			status   string
			outcomes []byte
		)
		if err := rows.Scan(&run.ID, &trigger, &status, &run.StartedAt, &run.CompletedAt,
			&run.SuppliersTotal, &outcomes, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Trigger = types.RunTrigger(trigger)
		run.Status = types.RunStatus(status)
		if err := json.Unmarshal(outcomes, &run.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to decode outcomes of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetSuppliers returns the supplier results recorded for a run
func (s *RunStore) GetSuppliers(ctx context.Context, runID string) ([]types.SupplierResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT supplier_id, COALESCE(supplier_name, ''), outcome, product_count, rejected_count,
		       COALESCE(fingerprint, ''), COALESCE(error, ''), duration_ms
		FROM refresh_run_suppliers
		WHERE run_id = $1
		ORDER BY recorded_at, supplier_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers of run %s: %w", runID, err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.SupplierResult, error) {
		var (
			r          types.SupplierResult
			outcome    string
			durationMs int64
		)
		err := row.Scan(&r.SupplierID, &r.SupplierName, &outcome, &r.ProductCount, &r.RejectedCount,
			&r.Fingerprint, &r.Error, &durationMs)
		r.Outcome = types.SupplierOutcome(outcome)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		return r, err
	})
}

// MarkInterrupted flags runs left in the running state by a previous process
func (s *RunStore) MarkInterrupted(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_runs
		SET status = $1,
		    completed_at = NOW(),
		    metadata = jsonb_build_object('interrupted_reason', 'Service restarted during processing')
		WHERE status = $2
	`, string(types.RunStatusInterrupted), string(types.RunStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
