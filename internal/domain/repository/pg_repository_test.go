package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var jobRowColumns = []string{
	"id", "source_article_id", "target_languages", "priority", "status", "assigned_worker",
	"retry_count", "max_retries", "translation_config", "estimated_completion", "error_message",
	"created_at", "updated_at", "started_at", "completed_at",
}

func TestPgClaimNextQueuedJob(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationJobRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs("worker-1").
		WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow(
			"job-1", "article-1", []byte(`["es","fr"]`), "urgent", "processing", "worker-1",
			0, 3, []byte(`{"model":"llama3.1:8b","quality_threshold":0.7,"max_tokens":2000,"temperature":0.2}`),
			now, nil, now, now, now, nil,
		))

	job, err := repo.ClaimNextQueuedJob(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.ID != "job-1" || job.Priority != model.PriorityUrgent || len(job.TargetLanguages) != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.TranslationConfig.MaxTokens != 2000 || *job.AssignedWorker != "worker-1" {
		t.Fatalf("config or worker not decoded: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPgClaimNextQueuedJobEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE translation_jobs")).
		WithArgs("worker-1").
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	job, err := repo.ClaimNextQueuedJob(context.Background(), "worker-1")
	if err != nil || job != nil {
		t.Fatalf("want nil, nil; got %v, %v", job, err)
	}
}

func TestPgUpdateJobStatusGuardConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE translation_jobs SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateJobStatus(context.Background(), "job-1", model.JobStatusCompleted,
		model.JobStatusUpdate{FromStatus: model.JobStatusProcessing})
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestPgUpdateJobStatusNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE translation_jobs SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateJobStatus(context.Background(), "missing", model.JobStatusFailed, model.JobStatusUpdate{})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPgEnqueueJob(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationJobRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO translation_jobs")).
		WithArgs("job-1", "article-1", `["es"]`, "normal", "queued", 0, 3,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.EnqueueJob(context.Background(), &model.TranslationJob{
		ID: "job-1", SourceArticleID: "article-1", TargetLanguages: []string{"es"},
		Priority: model.PriorityNormal, Status: model.JobStatusQueued, MaxRetries: 3,
		EstimatedCompletion: now, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPgFailStaleJobsSkipsLiveJobs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationJobRepository(db)

	mock.ExpectExec(`UPDATE translation_jobs SET status = CASE .* WHERE status = \$\d+ AND started_at < \$\d+ AND id NOT IN \(\$\d+,\$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.FailStaleJobs(context.Background(), time.Now(), []string{"a", "b"})
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPgSaveTranslationResultUpserts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationResultRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (article_id, target_language) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.SaveTranslationResult(context.Background(), &model.TranslationResult{
		ArticleID: "article-1", JobID: "job-1", SourceLanguage: "en", TargetLanguage: "es",
		TranslatedTitle: "Hola", QualityScore: 0.9, Confidence: 0.9,
		Method: model.MethodAI, Status: model.ResultStatusCompleted, ParseMethod: model.ParseStructured,
		TranslatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPgGetRecentQualityMetrics(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgTranslationResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG(quality_score), 0), COUNT(*) FROM translation_results")).
		WillReturnRows(sqlmock.NewRows([]string{"avg", "count"}).AddRow(0.82, 5))

	m, err := repo.GetRecentQualityMetrics(context.Background(), 7)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.AverageQuality != 0.82 || m.TotalCount != 5 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestPgGetArticleNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgArticleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles a WHERE a.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetArticleByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
