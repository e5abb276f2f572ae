package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"channelpulse/internal/domain"
)

// JobRepositoryPG persists the background job queue in analytics_jobs.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository constructs the repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Enqueue inserts a job due immediately.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, kind domain.JobKind, entityID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO analytics_jobs (id, kind, entity_id, status, attempts, run_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, now(), now(), now());
`, uuid.NewString(), string(kind), entityID, string(domain.JobStatusQueued))
	return err
}

// Claim atomically takes the oldest due queued job. SKIP LOCKED lets
// concurrent workers claim without blocking each other; the attempt counter
// advances at claim time so a crashed worker still burns an attempt.
func (r *JobRepositoryPG) Claim(ctx context.Context) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
WITH due AS (
    SELECT id
    FROM analytics_jobs
    WHERE status = $1 AND run_at <= now()
    ORDER BY run_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
UPDATE analytics_jobs j
SET status = $2, attempts = attempts + 1, updated_at = now()
FROM due
WHERE j.id = due.id
RETURNING j.id, j.kind, j.entity_id, j.status, j.attempts, j.run_at,
          COALESCE(j.last_error, ''), j.created_at, j.updated_at;
`, string(domain.JobStatusQueued), string(domain.JobStatusRunning))

	var job domain.Job
	err := row.Scan(&job.ID, &job.Kind, &job.EntityID, &job.Status, &job.Attempts,
		&job.RunAt, &job.LastError, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkSucceeded finalizes a job that completed.
func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE analytics_jobs
SET status = $2, last_error = NULL, updated_at = now()
WHERE id = $1;
`, jobID, string(domain.JobStatusSucceeded))
	return err
}

// Reschedule returns a job to the queue for a later retry.
func (r *JobRepositoryPG) Reschedule(ctx context.Context, jobID string, runAt time.Time, lastError string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE analytics_jobs
SET status = $2, run_at = $3, last_error = $4, updated_at = now()
WHERE id = $1;
`, jobID, string(domain.JobStatusQueued), runAt, lastError)
	return err
}

// RequeueStale sweeps RUNNING rows a crashed worker left behind back to the
// queue. Each reclaim burns another attempt, so a repeatedly stranded job
// still converges on the attempts ceiling.
func (r *JobRepositoryPG) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE analytics_jobs
SET status = $2, run_at = now(), updated_at = now()
WHERE status = $1 AND updated_at < $3;
`, string(domain.JobStatusRunning), string(domain.JobStatusQueued), cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// MarkFailed finalizes a job whose attempts are exhausted.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID string, lastError string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE analytics_jobs
SET status = $2, last_error = $3, updated_at = now()
WHERE id = $1;
`, jobID, string(domain.JobStatusFailed), lastError)
	return err
}
