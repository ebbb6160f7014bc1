package worker

import (
	"context"
	"fmt"
	"time"

	"globalnews_translator/internal/domain/model"
	"globalnews_translator/internal/domain/repository"
)

// PoolStats is the in-memory view of the worker pool.
type PoolStats interface {
	Busy() int
	Capacity() int
	Running() bool
}

// MetricsReporter assembles a read-only snapshot of the queue.
type MetricsReporter struct {
	jobs       repository.TranslationJobRepository
	results    repository.TranslationResultRepository
	pool       PoolStats
	windowDays int
	now        func() time.Time
}

func NewMetricsReporter(jobs repository.TranslationJobRepository, results repository.TranslationResultRepository, pool PoolStats, windowDays int) *MetricsReporter {
	if windowDays < 1 {
		windowDays = 7
	}
	return &MetricsReporter{jobs: jobs, results: results, pool: pool, windowDays: windowDays, now: time.Now}
}

func (m *MetricsReporter) QueueMetrics(ctx context.Context) (*model.QueueMetrics, error) {
	now := m.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	queued, err := m.jobs.CountJobs(ctx, model.JobStatusQueued, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("count queued jobs: %w", err)
	}

	today := make(map[model.JobStatus]int, 3)
	for _, status := range []model.JobStatus{model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled} {
		n, err := m.jobs.CountJobs(ctx, status, midnight)
		if err != nil {
			return nil, fmt.Errorf("count %s jobs: %w", status, err)
		}
		today[status] = n
	}

	quality, err := m.results.GetRecentQualityMetrics(ctx, m.windowDays)
	if err != nil {
		return nil, fmt.Errorf("quality metrics: %w", err)
	}

	return &model.QueueMetrics{
		Queued:            queued,
		Processing:        m.pool.Busy(),
		CompletedToday:    today[model.JobStatusCompleted],
		FailedToday:       today[model.JobStatusFailed],
		CancelledToday:    today[model.JobStatusCancelled],
		AverageQuality:    quality.AverageQuality,
		RecentResults:     quality.TotalCount,
		QualityWindowDays: m.windowDays,
		Capacity:          m.pool.Capacity(),
		Running:           m.pool.Running(),
		GeneratedAt:       now,
	}, nil
}
