package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"

	"github.com/samber/lo"
)

// MemoryStore implements every repository in process. It backs the worker and
// service tests and the server when PIPELINE_STORE=memory; a single mutex makes
// each operation atomic, which is what the claim contract needs.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	articles map[string]model.Article
	jobs     map[string]*memoryJob
	results  map[resultKey]model.TranslationResult
	seq      int64
}

type memoryJob struct {
	job model.TranslationJob
	seq int64
}

type resultKey struct {
	articleID string
	language  string
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now for timestamps written by the store.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:      time.Now,
		articles: make(map[string]model.Article),
		jobs:     make(map[string]*memoryJob),
		results:  make(map[resultKey]model.TranslationResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ ArticleRepository           = (*MemoryStore)(nil)
	_ TranslationJobRepository    = (*MemoryStore)(nil)
	_ TranslationResultRepository = (*MemoryStore)(nil)
)

func (s *MemoryStore) GetArticleByID(_ context.Context, id string) (*model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[id]
	if !ok {
		return nil, fmt.Errorf("article %s: %w", id, common.ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) SaveArticle(_ context.Context, article *model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *article
	if existing, ok := s.articles[a.ID]; ok {
		a.CreatedAt = existing.CreatedAt
	} else if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.articles[a.ID] = a
	return nil
}

func (s *MemoryStore) ListArticlesEligibleForBulkTranslation(_ context.Context, urgency model.UrgencyTag, limit int) ([]model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	busy := make(map[string]bool)
	for _, mj := range s.jobs {
		switch mj.job.Status {
		case model.JobStatusQueued, model.JobStatusProcessing, model.JobStatusCompleted:
			busy[mj.job.SourceArticleID] = true
		}
	}

	eligible := lo.Filter(lo.Values(s.articles), func(a model.Article, _ int) bool {
		return a.Urgency == urgency && !busy[a.ID]
	})
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].PublishedAt.Equal(eligible[j].PublishedAt) {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].PublishedAt.After(eligible[j].PublishedAt)
	})
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *MemoryStore) EnqueueJob(_ context.Context, job *model.TranslationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[job.SourceArticleID]; !ok {
		return fmt.Errorf("article %s: %w", job.SourceArticleID, common.ErrNotFound)
	}
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists: %w", job.ID, common.ErrConflict)
	}
	s.seq++
	s.jobs[job.ID] = &memoryJob{job: cloneJob(*job), seq: s.seq}
	return nil
}

func (s *MemoryStore) GetJobByID(_ context.Context, id string) (*model.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mj, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	job := cloneJob(mj.job)
	return &job, nil
}

func (s *MemoryStore) ClaimNextQueuedJob(_ context.Context, workerID string) (*model.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *memoryJob
	for _, mj := range s.jobs {
		if mj.job.Status != model.JobStatusQueued {
			continue
		}
		if next == nil || claimsBefore(mj, next) {
			next = mj
		}
	}
	if next == nil {
		return nil, nil
	}

	now := s.now()
	next.job.Status = model.JobStatusProcessing
	next.job.AssignedWorker = lo.ToPtr(workerID)
	next.job.StartedAt = lo.ToPtr(now)
	next.job.UpdatedAt = now
	next.job.ErrorMessage = nil

	job := cloneJob(next.job)
	return &job, nil
}

func claimsBefore(a, b *memoryJob) bool {
	ra, rb := a.job.Priority.Rank(), b.job.Priority.Rank()
	if ra != rb {
		return ra < rb
	}
	if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
		return a.job.CreatedAt.Before(b.job.CreatedAt)
	}
	return a.seq < b.seq
}

func (s *MemoryStore) UpdateJobStatus(_ context.Context, id string, status model.JobStatus, opts model.JobStatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mj, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if opts.FromStatus != "" && mj.job.Status != opts.FromStatus {
		return fmt.Errorf("job %s is no longer %s: %w", id, opts.FromStatus, common.ErrConflict)
	}

	now := s.now()
	mj.job.Status = status
	mj.job.UpdatedAt = now
	switch {
	case status.IsTerminal():
		mj.job.AssignedWorker = nil
	case opts.AssignedWorker != nil:
		mj.job.AssignedWorker = lo.ToPtr(*opts.AssignedWorker)
	}
	if status == model.JobStatusCompleted {
		mj.job.CompletedAt = lo.ToPtr(now)
	}
	if opts.ErrorMessage != nil {
		mj.job.ErrorMessage = lo.ToPtr(*opts.ErrorMessage)
	}
	return nil
}

func (s *MemoryStore) CancelJob(_ context.Context, id string) (*model.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mj, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	switch mj.job.Status {
	case model.JobStatusQueued, model.JobStatusProcessing, model.JobStatusFailed:
	default:
		return nil, fmt.Errorf("job %s is already %s: %w", id, mj.job.Status, common.ErrConflict)
	}

	mj.job.Status = model.JobStatusCancelled
	mj.job.AssignedWorker = nil
	mj.job.UpdatedAt = s.now()
	job := cloneJob(mj.job)
	return &job, nil
}

func (s *MemoryStore) CountJobs(_ context.Context, status model.JobStatus, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.CountBy(lo.Values(s.jobs), func(mj *memoryJob) bool {
		return mj.job.Status == status && (since.IsZero() || !mj.job.UpdatedAt.Before(since))
	}), nil
}

func (s *MemoryStore) ListRetryableJobs(_ context.Context, limit int) ([]model.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []model.TranslationJob
	for _, mj := range s.jobs {
		if mj.job.Status == model.JobStatusFailed && mj.job.CanRetry() {
			jobs = append(jobs, cloneJob(mj.job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].UpdatedAt.Before(jobs[j].UpdatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) RequeueJob(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mj, ok := s.jobs[id]
	if !ok || mj.job.Status != model.JobStatusFailed || !mj.job.CanRetry() {
		return false, nil
	}
	mj.job.Status = model.JobStatusQueued
	mj.job.RetryCount++
	mj.job.AssignedWorker = nil
	mj.job.StartedAt = nil
	mj.job.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) FailStaleJobs(_ context.Context, cutoff time.Time, live []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := lo.SliceToMap(live, func(id string) (string, struct{}) { return id, struct{}{} })
	now := s.now()
	n := 0
	for id, mj := range s.jobs {
		if mj.job.Status != model.JobStatusProcessing || mj.job.StartedAt == nil || !mj.job.StartedAt.Before(cutoff) {
			continue
		}
		if _, ok := held[id]; ok {
			continue
		}
		mj.job.Status = mj.job.FailureStatus()
		mj.job.AssignedWorker = nil
		mj.job.ErrorMessage = lo.ToPtr(staleJobMessage)
		mj.job.UpdatedAt = now
		n++
	}
	return n, nil
}

func (s *MemoryStore) SaveTranslationResult(_ context.Context, result *model.TranslationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[resultKey{result.ArticleID, result.TargetLanguage}] = *result
	return nil
}

func (s *MemoryStore) ListResultsByArticle(_ context.Context, articleID string) ([]model.TranslationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []model.TranslationResult
	for key, res := range s.results {
		if key.articleID == articleID {
			results = append(results, res)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].TargetLanguage < results[j].TargetLanguage })
	return results, nil
}

func (s *MemoryStore) GetRecentQualityMetrics(_ context.Context, days int) (*model.QualityMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.now().AddDate(0, 0, -days)
	metrics := &model.QualityMetrics{}
	var sum float64
	for _, res := range s.results {
		if res.Status == model.ResultStatusFailed || res.TranslatedAt.Before(since) {
			continue
		}
		sum += res.QualityScore
		metrics.TotalCount++
	}
	if metrics.TotalCount > 0 {
		metrics.AverageQuality = sum / float64(metrics.TotalCount)
	}
	return metrics, nil
}

func cloneJob(job model.TranslationJob) model.TranslationJob {
	job.TargetLanguages = append([]string(nil), job.TargetLanguages...)
	if job.AssignedWorker != nil {
		job.AssignedWorker = lo.ToPtr(*job.AssignedWorker)
	}
	if job.ErrorMessage != nil {
		job.ErrorMessage = lo.ToPtr(*job.ErrorMessage)
	}
	if job.StartedAt != nil {
		job.StartedAt = lo.ToPtr(*job.StartedAt)
	}
	if job.CompletedAt != nil {
		job.CompletedAt = lo.ToPtr(*job.CompletedAt)
	}
	return job
}
