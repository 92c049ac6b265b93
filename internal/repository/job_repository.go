package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediavault/internal/models"
)

var ErrJobNotFound = errors.New("media job not found")

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `
	id, user_id, file_name, file_size, sha256_hash, mime_type,
	linked_to_id, linked_to_type, status, created_at, updated_at
`

func (r *JobRepository) Create(ctx context.Context, job models.MediaJob) error {
	const query = `
		INSERT INTO media_jobs (
			id, user_id, file_name, file_size, sha256_hash, mime_type,
			linked_to_id, linked_to_type, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.FileName,
		job.FileSize,
		job.SHA256Hash,
		job.MimeType,
		job.LinkedToID,
		job.LinkedToType,
		job.Status,
	)
	return err
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (models.MediaJob, error) {
	const query = `SELECT ` + jobColumns + ` FROM media_jobs WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaJob{}, ErrJobNotFound
		}
		return models.MediaJob{}, err
	}
	return job, nil
}

func (r *JobRepository) SetStatus(ctx context.Context, id string, status models.JobStatus) error {
	const query = `
		UPDATE media_jobs
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) GetPendingJobs(ctx context.Context) ([]models.MediaJob, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM media_jobs
		WHERE status = 'pending'
		ORDER BY created_at
	`
	return r.queryJobs(ctx, query)
}

// GetStalePending returns pending jobs untouched for longer than age. Used
// by the hourly sweep to pick up jobs dropped by whole-batch scan failures.
func (r *JobRepository) GetStalePending(ctx context.Context, age time.Duration) ([]models.MediaJob, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM media_jobs
		WHERE status = 'pending' AND updated_at < $1
		ORDER BY created_at
	`
	return r.queryJobs(ctx, query, time.Now().UTC().Add(-age))
}

// MarkComplete flips a set of jobs to complete in one statement. Idempotent,
// and a no-op on an empty id list.
func (r *JobRepository) MarkComplete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `
		UPDATE media_jobs
		SET status = 'complete', updated_at = NOW()
		WHERE id = ANY($1)
	`
	_, err := r.pool.Exec(ctx, query, ids)
	return err
}

// DeleteExpiredAwaiting removes awaiting_upload jobs whose upload URL can no
// longer be valid and returns them so the caller can clear staging objects.
func (r *JobRepository) DeleteExpiredAwaiting(ctx context.Context, age time.Duration) ([]models.MediaJob, error) {
	const query = `
		DELETE FROM media_jobs
		WHERE status = 'awaiting_upload' AND created_at < $1
		RETURNING ` + jobColumns
	return r.queryJobs(ctx, query, time.Now().UTC().Add(-age))
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]models.MediaJob, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.MediaJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (models.MediaJob, error) {
	var job models.MediaJob
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.FileName,
		&job.FileSize,
		&job.SHA256Hash,
		&job.MimeType,
		&job.LinkedToID,
		&job.LinkedToType,
		&job.Status,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	return job, err
}
