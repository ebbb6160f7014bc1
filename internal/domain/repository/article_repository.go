package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"

	sq "github.com/Masterminds/squirrel"
)

// psql builds Postgres-flavoured statements ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ArticleRepository interface {
	GetArticleByID(ctx context.Context, id string) (*model.Article, error)
	// ListArticlesEligibleForBulkTranslation returns articles tagged with urgency that
	// have no queued, processing or completed translation job, newest first.
	ListArticlesEligibleForBulkTranslation(ctx context.Context, urgency model.UrgencyTag, limit int) ([]model.Article, error)
	SaveArticle(ctx context.Context, article *model.Article) error
}

var articleColumns = []string{
	"a.id", "a.feed_id", "a.title", "a.description", "a.content", "a.summary",
	"a.url", "a.language", "a.urgency", "a.published_at", "a.created_at",
}

type pgArticleRepository struct {
	db *sql.DB
}

func NewPgArticleRepository(db *sql.DB) ArticleRepository {
	return &pgArticleRepository{db: db}
}

func (r *pgArticleRepository) GetArticleByID(ctx context.Context, id string) (*model.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgArticleRepository.GetArticleByID: build query: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgArticleRepository.GetArticleByID: %w", err)
	}
	return article, nil
}

func (r *pgArticleRepository) ListArticlesEligibleForBulkTranslation(ctx context.Context, urgency model.UrgencyTag, limit int) ([]model.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.urgency": string(urgency)}).
		Where(`NOT EXISTS (SELECT 1 FROM translation_jobs j
		        WHERE j.source_article_id = a.id
		          AND j.status IN ('queued', 'processing', 'completed'))`).
		OrderBy("a.published_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgArticleRepository.ListArticlesEligibleForBulkTranslation: build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgArticleRepository.ListArticlesEligibleForBulkTranslation: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("pgArticleRepository.ListArticlesEligibleForBulkTranslation: scan: %w", err)
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgArticleRepository.ListArticlesEligibleForBulkTranslation: rows: %w", err)
	}
	return articles, nil
}

func (r *pgArticleRepository) SaveArticle(ctx context.Context, a *model.Article) error {
	query, args, err := psql.Insert("articles").
		Columns("id", "feed_id", "title", "description", "content", "summary", "url", "language", "urgency", "published_at").
		Values(a.ID, a.FeedID, a.Title, a.Description, a.Content, a.Summary, a.URL, a.Language, string(a.Urgency), a.PublishedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE
		        SET title = EXCLUDED.title,
		            description = EXCLUDED.description,
		            content = EXCLUDED.content,
		            summary = EXCLUDED.summary,
		            language = EXCLUDED.language,
		            urgency = EXCLUDED.urgency`).
		ToSql()
	if err != nil {
		return fmt.Errorf("pgArticleRepository.SaveArticle: build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgArticleRepository.SaveArticle: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	var (
		a       model.Article
		urgency string
	)
	err := row.Scan(
		&a.ID, &a.FeedID, &a.Title, &a.Description, &a.Content, &a.Summary,
		&a.URL, &a.Language, &urgency, &a.PublishedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Urgency = model.UrgencyTag(urgency)
	return &a, nil
}
