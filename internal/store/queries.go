package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Run operations

// BeginRun records the start of a backup cycle and returns its id.
func (s *Store) BeginRun(startedAt time.Time) (int64, error) {
	query := `
		INSERT INTO runs (started_at, status)
		VALUES (?, ?)
	`

	result, err := s.db.Exec(query, startedAt.UTC().Format(time.RFC3339), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// SetRunSnapshot records the snapshot created in a run and the parent
// snapshot used for its incremental send. parentPath is empty for a
// full send.
func (s *Store) SetRunSnapshot(runID int64, snapshotPath, parentPath string) error {
	query := `
		UPDATE runs SET snapshot_path = ?, parent_path = ?
		WHERE id = ?
	`

	_, err := s.db.Exec(query, snapshotPath, parentPath, runID)
	if err != nil {
		return fmt.Errorf("failed to set run snapshot: %w", err)
	}
	return nil
}

// FinishRun marks a run finished. A non-nil runErr marks the run
// failed and stores its message.
func (s *Store) FinishRun(runID int64, finishedAt time.Time, runErr error) error {
	status := StatusSucceeded
	message := ""
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}

	query := `
		UPDATE runs SET finished_at = ?, status = ?, error = ?
		WHERE id = ?
	`

	_, err := s.db.Exec(query, finishedAt.UTC().Format(time.RFC3339), status, message, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, snapshot_path, parent_path, error
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt, snapshotPath, parentPath, errorMessage sql.NullString

		err := rows.Scan(
			&run.ID,
			&startedAt,
			&finishedAt,
			&run.Status,
			&snapshotPath,
			&parentPath,
			&errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %d: %w", run.ID, err)
		}
		if finishedAt.Valid {
			run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse finished_at for run %d: %w", run.ID, err)
			}
		}
		run.SnapshotPath = snapshotPath.String
		run.ParentPath = parentPath.String
		run.Error = errorMessage.String

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// Pruned snapshot operations

// RecordPruned stores a snapshot deleted during policing.
func (s *Store) RecordPruned(runID int64, side, path string, prunedAt time.Time) error {
	query := `
		INSERT INTO pruned_snapshots (run_id, side, path, pruned_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, runID, side, path, prunedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record pruned snapshot %s: %w", path, err)
	}
	return nil
}

// ListPruned returns the most recently pruned snapshots, newest first.
func (s *Store) ListPruned(limit int) ([]*PrunedSnapshot, error) {
	query := `
		SELECT id, run_id, side, path, pruned_at
		FROM pruned_snapshots
		ORDER BY pruned_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pruned snapshots: %w", err)
	}
	defer rows.Close()

	var pruned []*PrunedSnapshot
	for rows.Next() {
		var p PrunedSnapshot
		var prunedAt string

		if err := rows.Scan(&p.ID, &p.RunID, &p.Side, &p.Path, &prunedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pruned snapshot: %w", err)
		}

		var err error
		p.PrunedAt, err = time.Parse(time.RFC3339, prunedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pruned_at: %w", err)
		}

		pruned = append(pruned, &p)
	}

	return pruned, rows.Err()
}
