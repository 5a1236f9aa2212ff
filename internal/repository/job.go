package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, user_id, name, type, status, schedule_type, start_time,
	urls, sitemap_url, total_urls, processed_urls, succeeded_urls, failed_urls,
	created_at, updated_at`

// JobRepository handles database operations for indexing jobs.
type JobRepository struct {
	db DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

func scanJob(row pgx.Row) (*domain.IndexJob, error) {
	var j domain.IndexJob
	err := row.Scan(
		&j.ID, &j.UserID, &j.Name, &j.Type, &j.Status, &j.ScheduleType, &j.StartTime,
		&j.URLs, &j.SitemapURL, &j.TotalURLs, &j.ProcessedURLs, &j.SucceededURLs, &j.FailedURLs,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return &j, nil
}

// Create inserts a new indexing job.
func (r *JobRepository) Create(ctx context.Context, j *domain.IndexJob) error {
	query := `
		INSERT INTO index_jobs (id, user_id, name, type, status, schedule_type, start_time,
			urls, sitemap_url, total_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		j.ID, j.UserID, j.Name, j.Type, j.Status, j.ScheduleType, j.StartTime,
		j.URLs, j.SitemapURL, j.TotalURLs, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FindByID returns a job owned by the given user.
func (r *JobRepository) FindByID(ctx context.Context, id, userID string) (*domain.IndexJob, error) {
	query := `SELECT ` + jobColumns + ` FROM index_jobs WHERE id = $1 AND user_id = $2`
	return scanJob(r.db.QueryRow(ctx, query, id, userID))
}

// List returns a page of the user's jobs plus the total row count for
// pagination metadata. Search matches the job name; status and schedule
// filter exactly when non-empty.
func (r *JobRepository) List(ctx context.Context, userID string, q domain.JobListQuery) ([]*domain.IndexJob, int, error) {
	where := `WHERE user_id = $1
		AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		AND ($3 = '' OR status = $3)
		AND ($4 = '' OR schedule_type = $4)`

	var total int
	countQuery := `SELECT COUNT(*) FROM index_jobs ` + where
	if err := r.db.QueryRow(ctx, countQuery, userID, q.Search, q.Status, q.Schedule).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	listQuery := `SELECT ` + jobColumns + ` FROM index_jobs ` + where + `
		ORDER BY created_at DESC LIMIT $5 OFFSET $6`
	rows, err := r.db.Query(ctx, listQuery, userID, q.Search, q.Status, q.Schedule, q.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.IndexJob
	for rows.Next() {
		var j domain.IndexJob
		if err := rows.Scan(
			&j.ID, &j.UserID, &j.Name, &j.Type, &j.Status, &j.ScheduleType, &j.StartTime,
			&j.URLs, &j.SitemapURL, &j.TotalURLs, &j.ProcessedURLs, &j.SucceededURLs, &j.FailedURLs,
			&j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, total, nil
}

// UpdateStatus sets a job's status.
func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error {
	_, err := r.db.Exec(ctx,
		`UPDATE index_jobs SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update job %s status: %w", id, err)
	}
	return nil
}

// UpdateCounters records submission progress for a job.
func (r *JobRepository) UpdateCounters(ctx context.Context, id string, processed, succeeded, failed int) error {
	query := `
		UPDATE index_jobs
		SET processed_urls = $1, succeeded_urls = $2, failed_urls = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, processed, succeeded, failed, id)
	if err != nil {
		return fmt.Errorf("failed to update job %s counters: %w", id, err)
	}
	return nil
}

// Delete removes a job owned by the given user. Returns true when a row was
// deleted.
func (r *JobRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM index_jobs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindPendingDue returns pending jobs whose start time has passed (or was
// never set), oldest first. Consumed by the submission runner.
func (r *JobRepository) FindPendingDue(ctx context.Context, now time.Time, limit int) ([]*domain.IndexJob, error) {
	query := `
		SELECT ` + jobColumns + ` FROM index_jobs
		WHERE status = 'pending' AND (start_time IS NULL OR start_time <= $1)
		ORDER BY created_at ASC LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.IndexJob
	for rows.Next() {
		var j domain.IndexJob
		if err := rows.Scan(
			&j.ID, &j.UserID, &j.Name, &j.Type, &j.Status, &j.ScheduleType, &j.StartTime,
			&j.URLs, &j.SitemapURL, &j.TotalURLs, &j.ProcessedURLs, &j.SucceededURLs, &j.FailedURLs,
			&j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, nil
}

// CountByStatus returns the number of jobs in the given status.
func (r *JobRepository) CountByStatus(ctx context.Context, status domain.JobStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM index_jobs WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}
