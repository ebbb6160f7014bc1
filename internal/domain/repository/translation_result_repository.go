package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"globalnews_translator/internal/domain/model"

	sq "github.com/Masterminds/squirrel"
)

type TranslationResultRepository interface {
	// SaveTranslationResult upserts on (article_id, target_language).
	SaveTranslationResult(ctx context.Context, result *model.TranslationResult) error
	ListResultsByArticle(ctx context.Context, articleID string) ([]model.TranslationResult, error)
	// GetRecentQualityMetrics averages non-failed results translated in the last days.
	GetRecentQualityMetrics(ctx context.Context, days int) (*model.QualityMetrics, error)
}

type pgTranslationResultRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPgTranslationResultRepository(db *sql.DB) TranslationResultRepository {
	return &pgTranslationResultRepository{db: db, now: time.Now}
}

func (r *pgTranslationResultRepository) SaveTranslationResult(ctx context.Context, res *model.TranslationResult) error {
	query, args, err := psql.Insert("translation_results").
		Columns("article_id", "job_id", "source_language", "target_language",
			"translated_title", "translated_description", "translated_content", "translated_summary",
			"quality_score", "confidence", "method", "status", "parse_method", "model",
			"error_message", "translated_at").
		Values(res.ArticleID, res.JobID, res.SourceLanguage, res.TargetLanguage,
			res.TranslatedTitle, res.TranslatedDescription, res.TranslatedContent, res.TranslatedSummary,
			res.QualityScore, res.Confidence, string(res.Method), string(res.Status), string(res.ParseMethod), res.Model,
			res.ErrorMessage, res.TranslatedAt).
		Suffix(`ON CONFLICT (article_id, target_language) DO UPDATE
		        SET job_id = EXCLUDED.job_id,
		            source_language = EXCLUDED.source_language,
		            translated_title = EXCLUDED.translated_title,
		            translated_description = EXCLUDED.translated_description,
		            translated_content = EXCLUDED.translated_content,
		            translated_summary = EXCLUDED.translated_summary,
		            quality_score = EXCLUDED.quality_score,
		            confidence = EXCLUDED.confidence,
		            method = EXCLUDED.method,
		            status = EXCLUDED.status,
		            parse_method = EXCLUDED.parse_method,
		            model = EXCLUDED.model,
		            error_message = EXCLUDED.error_message,
		            translated_at = EXCLUDED.translated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("pgTranslationResultRepository.SaveTranslationResult: build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgTranslationResultRepository.SaveTranslationResult: %w", err)
	}
	return nil
}

func (r *pgTranslationResultRepository) ListResultsByArticle(ctx context.Context, articleID string) ([]model.TranslationResult, error) {
	query, args, err := psql.Select("article_id", "job_id", "source_language", "target_language",
		"translated_title", "translated_description", "translated_content", "translated_summary",
		"quality_score", "confidence", "method", "status", "parse_method", "model",
		"error_message", "translated_at").
		From("translation_results").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("target_language").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgTranslationResultRepository.ListResultsByArticle: build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTranslationResultRepository.ListResultsByArticle: %w", err)
	}
	defer rows.Close()

	var results []model.TranslationResult
	for rows.Next() {
		var (
			res                         model.TranslationResult
			method, status, parseMethod string
		)
		if err := rows.Scan(
			&res.ArticleID, &res.JobID, &res.SourceLanguage, &res.TargetLanguage,
			&res.TranslatedTitle, &res.TranslatedDescription, &res.TranslatedContent, &res.TranslatedSummary,
			&res.QualityScore, &res.Confidence, &method, &status, &parseMethod, &res.Model,
			&res.ErrorMessage, &res.TranslatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgTranslationResultRepository.ListResultsByArticle: scan: %w", err)
		}
		res.Method = model.TranslationMethod(method)
		res.Status = model.ResultStatus(status)
		res.ParseMethod = model.ParseMethod(parseMethod)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTranslationResultRepository.ListResultsByArticle: rows: %w", err)
	}
	return results, nil
}

func (r *pgTranslationResultRepository) GetRecentQualityMetrics(ctx context.Context, days int) (*model.QualityMetrics, error) {
	since := r.now().AddDate(0, 0, -days)
	query, args, err := psql.Select("COALESCE(AVG(quality_score), 0)", "COUNT(*)").
		From("translation_results").
		Where(sq.NotEq{"status": string(model.ResultStatusFailed)}).
		Where(sq.GtOrEq{"translated_at": since}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgTranslationResultRepository.GetRecentQualityMetrics: build query: %w", err)
	}

	metrics := &model.QualityMetrics{}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&metrics.AverageQuality, &metrics.TotalCount); err != nil {
		return nil, fmt.Errorf("pgTranslationResultRepository.GetRecentQualityMetrics: %w", err)
	}
	return metrics, nil
}
