package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"charter/internal/observability"
)

// PostgresStore is a Store backed by the delayed_jobs table.
//
// The one-live-job rule is enforced in the enqueue statement itself
// (insert-unless-live), so concurrent enqueuers cannot race two live
// jobs into existence. Claiming uses FOR UPDATE SKIP LOCKED so multiple
// worker processes can poll the same table without stepping on each
// other.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a delayed-job store on the given database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const jobColumns = `id, kind, correlation_id, fire_at, payload, status, attempts, locked_until, created_at, updated_at`

// Enqueue schedules a job unless a live one already exists for the same
// (kind, correlation id).
func (s *PostgresStore) Enqueue(ctx context.Context, kind Kind, correlationID string, fireAt time.Time, payload Payload) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:            uuid.New().String(),
		Kind:          kind,
		CorrelationID: correlationID,
		FireAt:        fireAt,
		Payload:       data,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO delayed_jobs (` + jobColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, 0, NULL, $7, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM delayed_jobs
			WHERE kind = $2 AND correlation_id = $3 AND status IN ('PENDING', 'RUNNING')
		)
	`
	result, err := s.db.ExecContext(ctx, query,
		job.ID, job.Kind, job.CorrelationID, job.FireAt, job.Payload, job.Status, job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrDuplicateJob
	}

	observability.JobsEnqueued.WithLabelValues(string(kind)).Inc()
	return job, nil
}

// Cancel removes a pending job matching (kind, correlationID).
func (s *PostgresStore) Cancel(ctx context.Context, kind Kind, correlationID string) error {
	query := `
		UPDATE delayed_jobs SET status = 'CANCELLED', updated_at = now()
		WHERE kind = $1 AND correlation_id = $2 AND status = 'PENDING'
	`
	result, err := s.db.ExecContext(ctx, query, kind, correlationID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		observability.JobsCancelled.WithLabelValues(string(kind)).Add(float64(n))
	}
	return nil
}

// HasLive reports whether a live job exists for (kind, correlationID).
func (s *PostgresStore) HasLive(ctx context.Context, kind Kind, correlationID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM delayed_jobs
			WHERE kind = $1 AND correlation_id = $2 AND status IN ('PENDING', 'RUNNING')
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, kind, correlationID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Claim leases the next due job of the given kind.
func (s *PostgresStore) Claim(ctx context.Context, kind Kind, now, lockedUntil time.Time) (*Job, error) {
	query := `
		UPDATE delayed_jobs
		SET status = 'RUNNING', attempts = attempts + 1, locked_until = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM delayed_jobs
			WHERE kind = $2
			  AND fire_at <= $3
			  AND (status = 'PENDING' OR (status = 'RUNNING' AND locked_until < $3))
			ORDER BY fire_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	var job Job
	var lease sql.NullTime
	err := s.db.QueryRowContext(ctx, query, lockedUntil, kind, now).Scan(
		&job.ID,
		&job.Kind,
		&job.CorrelationID,
		&job.FireAt,
		&job.Payload,
		&job.Status,
		&job.Attempts,
		&lease,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoJob
		}
		return nil, err
	}
	if lease.Valid {
		job.LockedUntil = lease.Time
	}
	return &job, nil
}

// MarkDone finishes a job successfully.
func (s *PostgresStore) MarkDone(ctx context.Context, jobID string) error {
	query := `UPDATE delayed_jobs SET status = 'DONE', locked_until = NULL, updated_at = now() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, jobID)
	return err
}

// MarkRetry reschedules a failed job.
func (s *PostgresStore) MarkRetry(ctx context.Context, jobID string, retryAt time.Time) error {
	query := `UPDATE delayed_jobs SET status = 'PENDING', fire_at = $1, locked_until = NULL, updated_at = now() WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, retryAt, jobID)
	return err
}

// MarkFailed terminates a job that exhausted its retries.
func (s *PostgresStore) MarkFailed(ctx context.Context, jobID string) error {
	query := `UPDATE delayed_jobs SET status = 'FAILED', locked_until = NULL, updated_at = now() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, jobID)
	return err
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
