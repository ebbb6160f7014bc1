package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

type TranslationJobRepository interface {
	EnqueueJob(ctx context.Context, job *model.TranslationJob) error
	GetJobByID(ctx context.Context, id string) (*model.TranslationJob, error)
	// ClaimNextQueuedJob atomically moves the highest-priority, oldest queued job to
	// processing and assigns it to workerID. Returns (nil, nil) when the queue is empty.
	ClaimNextQueuedJob(ctx context.Context, workerID string) (*model.TranslationJob, error)
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus, opts model.JobStatusUpdate) error
	CancelJob(ctx context.Context, id string) (*model.TranslationJob, error)
	CountJobs(ctx context.Context, status model.JobStatus, since time.Time) (int, error)
	ListRetryableJobs(ctx context.Context, limit int) ([]model.TranslationJob, error)
	// RequeueJob moves a failed job with retries left back to queued and bumps its
	// retry count. Reports false when another process got there first.
	RequeueJob(ctx context.Context, id string) (bool, error)
	// FailStaleJobs settles processing jobs started before cutoff whose ids are not in
	// live. Jobs with retries left become failed, the rest cancelled.
	FailStaleJobs(ctx context.Context, cutoff time.Time, live []string) (int, error)
}

const jobColumns = `id, source_article_id, target_languages, priority, status, assigned_worker,
	retry_count, max_retries, translation_config, estimated_completion, error_message,
	created_at, updated_at, started_at, completed_at`

// claimNextJobSQL picks by priority rank then age; SKIP LOCKED lets concurrent
// claimers pass over a row another transaction is already taking.
const claimNextJobSQL = `
UPDATE translation_jobs
   SET status = 'processing',
       assigned_worker = $1,
       started_at = NOW(),
       updated_at = NOW(),
       error_message = NULL
 WHERE id = (
       SELECT id FROM translation_jobs
        WHERE status = 'queued'
        ORDER BY CASE priority
                   WHEN 'urgent' THEN 0
                   WHEN 'high' THEN 1
                   WHEN 'normal' THEN 2
                   ELSE 3
                 END,
                 created_at
        FOR UPDATE SKIP LOCKED
        LIMIT 1)
RETURNING ` + jobColumns

const staleJobMessage = "worker lost while processing"

type pgTranslationJobRepository struct {
	db *sql.DB
}

func NewPgTranslationJobRepository(db *sql.DB) TranslationJobRepository {
	return &pgTranslationJobRepository{db: db}
}

func (r *pgTranslationJobRepository) EnqueueJob(ctx context.Context, job *model.TranslationJob) error {
	langs, err := json.Marshal(job.TargetLanguages)
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.EnqueueJob: encode languages: %w", err)
	}
	cfg, err := json.Marshal(job.TranslationConfig)
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.EnqueueJob: encode config: %w", err)
	}

	query, args, err := psql.Insert("translation_jobs").
		Columns("id", "source_article_id", "target_languages", "priority", "status",
			"retry_count", "max_retries", "translation_config", "estimated_completion",
			"created_at", "updated_at").
		Values(job.ID, job.SourceArticleID, string(langs), string(job.Priority), string(job.Status),
			job.RetryCount, job.MaxRetries, string(cfg), job.EstimatedCompletion,
			job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.EnqueueJob: build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key violation
			return fmt.Errorf("article %s: %w", job.SourceArticleID, common.ErrNotFound)
		}
		return fmt.Errorf("pgTranslationJobRepository.EnqueueJob: %w", err)
	}
	return nil
}

func (r *pgTranslationJobRepository) GetJobByID(ctx context.Context, id string) (*model.TranslationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM translation_jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgTranslationJobRepository.GetJobByID: %w", err)
	}
	return job, nil
}

func (r *pgTranslationJobRepository) ClaimNextQueuedJob(ctx context.Context, workerID string) (*model.TranslationJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, claimNextJobSQL, workerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgTranslationJobRepository.ClaimNextQueuedJob: %w", err)
	}
	return job, nil
}

func (r *pgTranslationJobRepository) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus, opts model.JobStatusUpdate) error {
	builder := psql.Update("translation_jobs").
		Set("status", string(status)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	switch {
	case status.IsTerminal():
		builder = builder.Set("assigned_worker", nil)
	case opts.AssignedWorker != nil:
		builder = builder.Set("assigned_worker", *opts.AssignedWorker)
	}
	if status == model.JobStatusCompleted {
		builder = builder.Set("completed_at", sq.Expr("NOW()"))
	}
	if opts.ErrorMessage != nil {
		builder = builder.Set("error_message", *opts.ErrorMessage)
	}
	if opts.FromStatus != "" {
		builder = builder.Where(sq.Eq{"status": string(opts.FromStatus)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.UpdateJobStatus: build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.UpdateJobStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.UpdateJobStatus: rows affected: %w", err)
	}
	if n == 0 {
		if opts.FromStatus != "" {
			return fmt.Errorf("job %s is no longer %s: %w", id, opts.FromStatus, common.ErrConflict)
		}
		return fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *pgTranslationJobRepository) CancelJob(ctx context.Context, id string) (*model.TranslationJob, error) {
	query := `UPDATE translation_jobs
	             SET status = 'cancelled', assigned_worker = NULL, updated_at = NOW()
	           WHERE id = $1 AND status IN ('queued', 'processing', 'failed')
	       RETURNING ` + jobColumns
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pgTranslationJobRepository.CancelJob: %w", err)
	}

	existing, err := r.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("job %s is already %s: %w", id, existing.Status, common.ErrConflict)
}

func (r *pgTranslationJobRepository) CountJobs(ctx context.Context, status model.JobStatus, since time.Time) (int, error) {
	builder := psql.Select("COUNT(*)").
		From("translation_jobs").
		Where(sq.Eq{"status": string(status)})
	if !since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"updated_at": since})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("pgTranslationJobRepository.CountJobs: build query: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgTranslationJobRepository.CountJobs: %w", err)
	}
	return n, nil
}

func (r *pgTranslationJobRepository) ListRetryableJobs(ctx context.Context, limit int) ([]model.TranslationJob, error) {
	query := `SELECT ` + jobColumns + `
	            FROM translation_jobs
	           WHERE status = 'failed' AND retry_count < max_retries
	           ORDER BY updated_at
	           LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgTranslationJobRepository.ListRetryableJobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.TranslationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("pgTranslationJobRepository.ListRetryableJobs: scan: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTranslationJobRepository.ListRetryableJobs: rows: %w", err)
	}
	return jobs, nil
}

func (r *pgTranslationJobRepository) RequeueJob(ctx context.Context, id string) (bool, error) {
	query := `UPDATE translation_jobs
	             SET status = 'queued',
	                 retry_count = retry_count + 1,
	                 assigned_worker = NULL,
	                 started_at = NULL,
	                 updated_at = NOW()
	           WHERE id = $1 AND status = 'failed' AND retry_count < max_retries`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("pgTranslationJobRepository.RequeueJob: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgTranslationJobRepository.RequeueJob: rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *pgTranslationJobRepository) FailStaleJobs(ctx context.Context, cutoff time.Time, live []string) (int, error) {
	builder := psql.Update("translation_jobs").
		Set("status", sq.Expr("CASE WHEN retry_count < max_retries THEN 'failed' ELSE 'cancelled' END")).
		Set("assigned_worker", nil).
		Set("error_message", staleJobMessage).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"status": string(model.JobStatusProcessing)}).
		Where(sq.Lt{"started_at": cutoff})
	if len(live) > 0 {
		builder = builder.Where(sq.NotEq{"id": live})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("pgTranslationJobRepository.FailStaleJobs: build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("pgTranslationJobRepository.FailStaleJobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pgTranslationJobRepository.FailStaleJobs: rows affected: %w", err)
	}
	return int(n), nil
}

func scanJob(row rowScanner) (*model.TranslationJob, error) {
	var (
		job              model.TranslationJob
		langs, cfg       []byte
		priority, status string
	)
	err := row.Scan(
		&job.ID, &job.SourceArticleID, &langs, &priority, &status, &job.AssignedWorker,
		&job.RetryCount, &job.MaxRetries, &cfg, &job.EstimatedCompletion, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(langs, &job.TargetLanguages); err != nil {
		return nil, fmt.Errorf("decode target_languages: %w", err)
	}
	if err := json.Unmarshal(cfg, &job.TranslationConfig); err != nil {
		return nil, fmt.Errorf("decode translation_config: %w", err)
	}
	job.Priority = model.Priority(priority)
	job.Status = model.JobStatus(status)
	return &job, nil
}
