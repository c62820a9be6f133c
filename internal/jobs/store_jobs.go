package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateJob inserts a pending job for kind. params is stored as JSON for
// status views and reconciliation.
func (s *Store) CreateJob(ctx context.Context, kind Kind, params any, totalUnits int) (*Job, error) {
	if kind != KindContent && kind != KindVideo {
		return nil, fmt.Errorf("create job: unknown kind %q", kind)
	}
	if totalUnits < 0 {
		return nil, fmt.Errorf("create job: negative total units %d", totalUnits)
	}
	paramsJSON, err := nullableJSON(params, params == nil)
	if err != nil {
		return nil, fmt.Errorf("create job: encode params: %w", err)
	}
	now := formatTime(s.now())
	id := uuid.NewString()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, kind, state, progress, total_units, completed_units, params_json, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, 0, ?, ?, ?)`,
		id, kind, StatePending, totalUnits, paramsJSON, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. It returns nil, nil when absent.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// LatestRunningJob returns the most recently created running job of kind, or
// nil when none is running.
func (s *Store) LatestRunningJob(ctx context.Context, kind Kind) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE kind = ? AND state = ? ORDER BY created_at DESC LIMIT 1`,
		kind, StateRunning,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest running job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest first, optionally filtered by kind.
func (s *Store) ListJobs(ctx context.Context, kind Kind, page Page) ([]Job, error) {
	page = page.Normalize()
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// UpdateJob applies patch to the job atomically and returns the new snapshot.
// Lifecycle rules are enforced here: states only move forward, terminal jobs
// reject further changes, progress is clamped to be non-decreasing while
// running and snaps to 100 on completion.
func (s *Store) UpdateJob(ctx context.Context, id string, patch Patch) (*Job, error) {
	ctx = ensureContext(ctx)
	var updated *Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		if err != nil {
			return err
		}

		sets, args, err := s.buildJobUpdate(current, patch)
		if err != nil {
			return err
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return err
		}
		updated, err = scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return updated, nil
}

func (s *Store) buildJobUpdate(current *Job, patch Patch) ([]string, []any, error) {
	nextState := current.State
	if patch.State != nil {
		if err := checkTransition(current.State, *patch.State); err != nil {
			return nil, nil, err
		}
		nextState = *patch.State
	} else if current.State.IsTerminal() && !patch.IsEmpty() {
		return nil, nil, fmt.Errorf("%w: job is %s", ErrInvalidTransition, current.State)
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(s.now())}
	if patch.State != nil {
		sets = append(sets, "state = ?")
		args = append(args, nextState)
	}

	progress := current.Progress
	if patch.Progress != nil {
		progress = clampProgress(*patch.Progress)
		if progress < current.Progress && !nextState.IsTerminal() {
			progress = current.Progress
		}
	}
	if nextState == StateCompleted {
		progress = 100
	}
	if progress != current.Progress {
		sets = append(sets, "progress = ?")
		args = append(args, progress)
	}

	total := current.TotalUnits
	if patch.TotalUnits != nil {
		total = *patch.TotalUnits
	}
	completed := current.CompletedUnits
	if patch.CompletedUnits != nil {
		completed = *patch.CompletedUnits
	}
	if total < 0 || completed < 0 || completed > total {
		return nil, nil, fmt.Errorf("%w: %d/%d", ErrUnitsExceeded, completed, total)
	}
	if patch.TotalUnits != nil {
		sets = append(sets, "total_units = ?")
		args = append(args, total)
	}
	if patch.CompletedUnits != nil {
		sets = append(sets, "completed_units = ?")
		args = append(args, completed)
	}

	switch {
	case nextState.IsTerminal():
		sets = append(sets, "current_stage = NULL")
	case patch.CurrentStage != nil:
		sets = append(sets, "current_stage = ?")
		args = append(args, nullableString(*patch.CurrentStage))
	}

	if patch.ErrorMessage != nil {
		if nextState != StateFailed && *patch.ErrorMessage != "" {
			return nil, nil, fmt.Errorf("%w: error message on %s job", ErrInvalidTransition, nextState)
		}
		sets = append(sets, "error_message = ?")
		args = append(args, nullableString(*patch.ErrorMessage))
	}
	if patch.Result != nil {
		encoded, err := json.Marshal(patch.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("encode result: %w", err)
		}
		sets = append(sets, "result_json = ?")
		args = append(args, string(encoded))
	}
	if patch.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, nullableTime(patch.StartedAt))
	}
	if nextState.IsTerminal() && current.CompletedAt == nil {
		completedAt := s.now()
		if patch.CompletedAt != nil {
			completedAt = *patch.CompletedAt
		}
		sets = append(sets, "completed_at = ?")
		args = append(args, formatTime(completedAt))
	}
	return sets, args, nil
}

func clampProgress(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

// UpdateHeartbeat records that the owning task is still alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(s.now())
	if _, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND state IN (?, ?)`,
		now, now, id, StatePending, StateRunning,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// FailInterrupted transitions every non-terminal job to failed with message and
// marks their unfinished videos failed. It returns the affected job IDs.
func (s *Store) FailInterrupted(ctx context.Context, message string) ([]string, error) {
	ctx = ensureContext(ctx)
	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids = ids[:0]
		rows, err := tx.QueryContext(ctx, `SELECT id FROM jobs WHERE state IN (?, ?)`, StatePending, StateRunning)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		now := formatTime(s.now())
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET state = ?, error_message = ?, current_stage = NULL, completed_at = ?, updated_at = ?
             WHERE state IN (?, ?)`,
			StateFailed, message, now, now, StatePending, StateRunning,
		); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE videos SET status = ?, error_message = ?, updated_at = ?
             WHERE status IN (?, ?) AND job_id IN (SELECT id FROM jobs WHERE state = ? AND error_message = ?)`,
			VideoFailed, message, now, VideoPending, VideoProcessing, StateFailed, message,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return ids, nil
}
