// Package db stores the history of finished pipeline runs, in PostgreSQL when
// a database URL is configured and in memory otherwise.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS pipeline_runs (
	id           UUID PRIMARY KEY,
	outcome      TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	statuses     JSONB NOT NULL,
	snapshots    INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS pipeline_runs_started_at_idx ON pipeline_runs (started_at DESC);`

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the run history table when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces a finished run
func (db *DB) SaveRun(ctx context.Context, result *pipeline.Result) error {
	statuses, err := json.Marshal(result.Statuses)
	if err != nil {
		return fmt.Errorf("failed to marshal statuses: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, outcome, failed_stage, statuses, snapshots, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET outcome = $2, failed_stage = $3, statuses = $4,
		   snapshots = $5, started_at = $6, finished_at = $7`,
		result.ID, string(result.Outcome), result.FailedStage, statuses,
		result.Snapshots, result.StartedAt, result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.ID, err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil without error when no run matches.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*pipeline.Result, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, outcome, failed_stage, statuses, snapshots, started_at, finished_at
		 FROM pipeline_runs WHERE id = $1`,
		runID,
	)
	result, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return result, nil
}

// ListRuns retrieves the most recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]pipeline.Result, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, outcome, failed_stage, statuses, snapshots, started_at, finished_at
		 FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []pipeline.Result{}
	for rows.Next() {
		result, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *result)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*pipeline.Result, error) {
	var result pipeline.Result
	var outcome string
	var statuses []byte
	if err := row.Scan(&result.ID, &outcome, &result.FailedStage, &statuses,
		&result.Snapshots, &result.StartedAt, &result.FinishedAt); err != nil {
		return nil, err
	}
	result.Outcome = pipeline.Outcome(outcome)
	if err := json.Unmarshal(statuses, &result.Statuses); err != nil {
		return nil, fmt.Errorf("failed to decode statuses: %w", err)
	}
	return &result, nil
}
