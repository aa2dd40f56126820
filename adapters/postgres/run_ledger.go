// Package postgres stores the conversion-run audit trail in Postgres.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ports"
)

// runLedger implements the RunLedgerPort interface
type runLedger struct {
	db *sqlx.DB
}

// NewRunLedger creates a new Postgres-backed run ledger
func NewRunLedger(db *sqlx.DB) ports.RunLedgerPort {
	return &runLedger{db: db}
}

// EnsureSchema creates the ledger table if it does not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS conversion_runs (
		run_id            TEXT PRIMARY KEY,
		source_file       TEXT NOT NULL,
		input_fingerprint TEXT NOT NULL,
		input_rows        INTEGER NOT NULL,
		tasks             TEXT NOT NULL,
		warning_count     INTEGER NOT NULL,
		tolerance_count   INTEGER NOT NULL,
		started_at        TIMESTAMPTZ NOT NULL,
		finished_at       TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create conversion_runs table: %w", err)
	}
	return nil
}

// RecordRun inserts one run record
func (r *runLedger) RecordRun(ctx context.Context, record ports.RunRecord) error {
	query := `INSERT INTO conversion_runs (
		run_id, source_file, input_fingerprint, input_rows, tasks,
		warning_count, tolerance_count, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		record.RunID.String(), record.SourceFile, record.InputFingerprint.String(), record.InputRows,
		joinTasks(record.Tasks), record.WarningCount, record.ToleranceCount,
		record.StartedAt, record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent run records
func (r *runLedger) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, source_file, input_fingerprint, input_rows, tasks,
		warning_count, tolerance_count, started_at, finished_at
	FROM conversion_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversion runs: %w", err)
	}
	defer rows.Close()

	var out []ports.RunRecord
	for rows.Next() {
		var rec ports.RunRecord
		var runID, fingerprint, tasks string
		if err := rows.Scan(&runID, &rec.SourceFile, &fingerprint, &rec.InputRows, &tasks,
			&rec.WarningCount, &rec.ToleranceCount, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		rec.RunID = core.RunID(runID)
		rec.InputFingerprint = core.Hash(fingerprint)
		rec.Tasks = splitTasks(tasks)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func joinTasks(tasks []core.TaskName) string {
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitTasks(s string) []core.TaskName {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]core.TaskName, len(parts))
	for i, p := range parts {
		out[i] = core.TaskName(p)
	}
	return out
}
