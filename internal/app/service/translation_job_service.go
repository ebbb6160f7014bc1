package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"
	"globalnews_translator/internal/domain/repository"
	"globalnews_translator/internal/platform/queue"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultBulkLimit = 50
	MaxBulkLimit     = 500
)

// TranslationJobService turns articles into persisted translation jobs.
type TranslationJobService struct {
	articleRepo  repository.ArticleRepository
	jobRepo      repository.TranslationJobRepository
	signal       queue.JobSignal
	defaultModel string
	log          *zap.Logger
	now          func() time.Time
}

func NewTranslationJobService(
	articleRepo repository.ArticleRepository,
	jobRepo repository.TranslationJobRepository,
	signal queue.JobSignal,
	defaultModel string,
	log *zap.Logger,
) *TranslationJobService {
	return &TranslationJobService{
		articleRepo:  articleRepo,
		jobRepo:      jobRepo,
		signal:       signal,
		defaultModel: defaultModel,
		log:          log.Named("scheduler"),
		now:          time.Now,
	}
}

// CreateTranslationJobs creates one job covering every requested language and
// returns its id.
func (s *TranslationJobService) CreateTranslationJobs(ctx context.Context, articleID string, targetLanguages []string, priority model.Priority, override *model.ConfigOverride) ([]string, error) {
	langs, err := normalizeLanguages(targetLanguages)
	if err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, common.Errorf("unknown priority %q: %w", priority, common.ErrValidation)
	}
	if err := override.Validate(); err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}

	article, err := s.articleRepo.GetArticleByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("article %s does not exist: %w", articleID, errors.Join(common.ErrValidation, common.ErrNotFound))
		}
		return nil, common.Errorf("failed to load article %s: %w", articleID, err)
	}

	job, err := s.enqueue(ctx, article, langs, priority, override)
	if err != nil {
		return nil, err
	}
	return []string{job.ID}, nil
}

// CreateBulkTranslationJobs queues one job per eligible article with the given
// urgency tag. Failures for individual articles are logged and skipped.
func (s *TranslationJobService) CreateBulkTranslationJobs(ctx context.Context, urgency model.UrgencyTag, targetLanguages []string, limit int) ([]string, error) {
	priority, err := model.BulkPriority(urgency)
	if err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}
	langs, err := normalizeLanguages(targetLanguages)
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultBulkLimit
	case limit > MaxBulkLimit:
		limit = MaxBulkLimit
	}

	articles, err := s.articleRepo.ListArticlesEligibleForBulkTranslation(ctx, urgency, limit)
	if err != nil {
		return nil, common.Errorf("failed to list articles for bulk translation: %w", err)
	}

	var (
		ids  = make([]string, 0, len(articles))
		errs error
	)
	for i := range articles {
		job, err := s.enqueue(ctx, &articles[i], langs, priority, nil)
		if err != nil {
			errs = multierr.Append(errs, common.Errorf("article %s: %w", articles[i].ID, err))
			continue
		}
		ids = append(ids, job.ID)
	}

	if errs != nil {
		s.log.Warn("bulk translation skipped articles",
			zap.String("urgency", string(urgency)),
			zap.Int("skipped", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
	}
	s.log.Info("bulk translation jobs created",
		zap.String("urgency", string(urgency)),
		zap.Int("articles", len(articles)),
		zap.Int("jobs", len(ids)),
	)
	return ids, nil
}

func (s *TranslationJobService) enqueue(ctx context.Context, article *model.Article, langs []string, priority model.Priority, override *model.ConfigOverride) (*model.TranslationJob, error) {
	now := s.now()
	maxRetries := model.DefaultMaxRetries
	if override != nil && override.MaxRetries != nil {
		maxRetries = *override.MaxRetries
	}

	job := &model.TranslationJob{
		ID:                  uuid.NewString(),
		SourceArticleID:     article.ID,
		TargetLanguages:     langs,
		Priority:            priority,
		Status:              model.JobStatusQueued,
		MaxRetries:          maxRetries,
		TranslationConfig:   model.ResolveConfig(priority, s.defaultModel, override),
		EstimatedCompletion: model.EstimateCompletion(now, len(langs), priority),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.jobRepo.EnqueueJob(ctx, job); err != nil {
		return nil, common.Errorf("failed to enqueue translation job: %w", err)
	}

	if err := s.signal.Notify(ctx, job.ID); err != nil {
		// The dispatcher also wakes on its idle timeout, so the job is not lost.
		s.log.Warn("failed to signal new job", zap.String("job_id", job.ID), zap.Error(err))
	}

	s.log.Info("translation job queued",
		zap.String("job_id", job.ID),
		zap.String("article_id", article.ID),
		zap.Strings("languages", langs),
		zap.String("priority", string(priority)),
		zap.Time("estimated_completion", job.EstimatedCompletion),
	)
	return job, nil
}

// normalizeLanguages lower-cases, trims and de-duplicates while keeping order.
func normalizeLanguages(in []string) ([]string, error) {
	langs := lo.Uniq(lo.FilterMap(in, func(code string, _ int) (string, bool) {
		code = strings.ToLower(strings.TrimSpace(code))
		return code, code != ""
	}))
	if len(langs) == 0 {
		return nil, common.Errorf("at least one target language is required: %w", common.ErrValidation)
	}
	return langs, nil
}
