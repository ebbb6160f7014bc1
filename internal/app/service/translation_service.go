package service

import (
	"context"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"
	"globalnews_translator/internal/domain/repository"

	"go.uber.org/zap"
)

// PipelineController is the lifecycle surface of the worker pool.
type PipelineController interface {
	// Start reports false when the pipeline was already running.
	Start() bool
	Stop(ctx context.Context) error
	Running() bool
}

type MetricsSource interface {
	QueueMetrics(ctx context.Context) (*model.QueueMetrics, error)
}

// TranslationService is the operator-facing entry point used by the HTTP API
// and the CLI.
type TranslationService struct {
	jobs        *TranslationJobService
	pipeline    PipelineController
	metrics     MetricsSource
	articleRepo repository.ArticleRepository
	jobRepo     repository.TranslationJobRepository
	resultRepo  repository.TranslationResultRepository
	log         *zap.Logger
}

func NewTranslationService(
	jobs *TranslationJobService,
	pipeline PipelineController,
	metrics MetricsSource,
	articleRepo repository.ArticleRepository,
	jobRepo repository.TranslationJobRepository,
	resultRepo repository.TranslationResultRepository,
	log *zap.Logger,
) *TranslationService {
	return &TranslationService{
		jobs:        jobs,
		pipeline:    pipeline,
		metrics:     metrics,
		articleRepo: articleRepo,
		jobRepo:     jobRepo,
		resultRepo:  resultRepo,
		log:         log.Named("translation"),
	}
}

func (s *TranslationService) CreateTranslationJobs(ctx context.Context, articleID string, targetLanguages []string, priority model.Priority, override *model.ConfigOverride) ([]string, error) {
	return s.jobs.CreateTranslationJobs(ctx, articleID, targetLanguages, priority, override)
}

func (s *TranslationService) CreateBulkTranslationJobs(ctx context.Context, urgency model.UrgencyTag, targetLanguages []string, limit int) ([]string, error) {
	return s.jobs.CreateBulkTranslationJobs(ctx, urgency, targetLanguages, limit)
}

// StartPipeline is idempotent; the pipeline logs a repeated start itself.
func (s *TranslationService) StartPipeline() bool {
	return s.pipeline.Start()
}

// StopPipeline waits for in-flight jobs until ctx expires.
func (s *TranslationService) StopPipeline(ctx context.Context) error {
	return s.pipeline.Stop(ctx)
}

func (s *TranslationService) PipelineRunning() bool {
	return s.pipeline.Running()
}

func (s *TranslationService) GetQueueMetrics(ctx context.Context) (*model.QueueMetrics, error) {
	return s.metrics.QueueMetrics(ctx)
}

func (s *TranslationService) GetJob(ctx context.Context, jobID string) (*model.TranslationJob, error) {
	return s.jobRepo.GetJobByID(ctx, jobID)
}

func (s *TranslationService) CancelJob(ctx context.Context, jobID string) (*model.TranslationJob, error) {
	job, err := s.jobRepo.CancelJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.log.Info("translation job cancelled", zap.String("job_id", jobID))
	return job, nil
}

func (s *TranslationService) ListArticleTranslations(ctx context.Context, articleID string) ([]model.TranslationResult, error) {
	if _, err := s.articleRepo.GetArticleByID(ctx, articleID); err != nil {
		return nil, err
	}
	results, err := s.resultRepo.ListResultsByArticle(ctx, articleID)
	if err != nil {
		return nil, common.Errorf("failed to list translations for %s: %w", articleID, err)
	}
	return results, nil
}
