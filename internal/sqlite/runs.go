package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ganot/sitewatch/internal/domain/capture"
)

// RunRepository implements capture.RunRepository for SQLite
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// RecordRun stores one finished bulk run
func (r *RunRepository) RecordRun(ctx context.Context, run *capture.Run) error {
	var errs sql.NullString
	if len(run.Errors) > 0 {
		data, err := json.Marshal(run.Errors)
		if err != nil {
			return fmt.Errorf("failed to encode run errors: %w", err)
		}
		errs = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO capture_runs (id, started_at, finished_at, total, completed, errors, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.Total,
		run.Completed,
		errs,
		run.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recently finished runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]capture.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, finished_at, total, completed, errors, outcome
		FROM capture_runs
		ORDER BY finished_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []capture.Run
	for rows.Next() {
		var (
			run  capture.Run
			errs sql.NullString
		)
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Total,
			&run.Completed,
			&errs,
			&run.Outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if errs.Valid {
			if err := json.Unmarshal([]byte(errs.String), &run.Errors); err != nil {
				return nil, fmt.Errorf("failed to decode errors for run %s: %w", run.ID, err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}
