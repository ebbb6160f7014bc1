package translation

import (
	"context"
	"time"

	"globalnews_translator/internal/domain/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Translator runs prompt, gateway, parser and scorer for a single language.
type Translator struct {
	gateway Gateway
	scorer  Scorer
	log     *zap.Logger
	now     func() time.Time
}

func NewTranslator(gateway Gateway, scorer Scorer, log *zap.Logger) *Translator {
	return &Translator{gateway: gateway, scorer: scorer, log: log.Named("translator"), now: time.Now}
}

// Translate never returns an error: gateway and parse failures become a result
// with status failed so the caller can persist them and move on.
func (t *Translator) Translate(ctx context.Context, article *model.Article, job *model.TranslationJob, targetLanguage string) *model.TranslationResult {
	src := ArticleText(article)
	cfg := job.TranslationConfig

	result := &model.TranslationResult{
		ArticleID:      article.ID,
		JobID:          job.ID,
		SourceLanguage: src.Language,
		TargetLanguage: targetLanguage,
		Method:         model.MethodAI,
		Model:          cfg.Model,
	}

	raw, err := t.gateway.Generate(ctx, BuildPrompt(src.forPrompt(), targetLanguage), GenerateOptions{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err == nil {
		var parsed *ParsedTranslation
		parsed, err = ParseResponse(raw)
		if err == nil {
			return t.scored(result, src, parsed, cfg.QualityThreshold)
		}
	}

	t.log.Warn("translation failed",
		zap.String("job_id", job.ID),
		zap.String("language", targetLanguage),
		zap.Error(err),
	)
	result.Status = model.ResultStatusFailed
	result.ParseMethod = model.ParseNone
	result.ErrorMessage = lo.ToPtr(err.Error())
	result.TranslatedAt = t.now()
	return result
}

func (t *Translator) scored(result *model.TranslationResult, src SourceText, parsed *ParsedTranslation, threshold float64) *model.TranslationResult {
	score := t.scorer.Score(src, parsed, result.TargetLanguage)

	result.TranslatedTitle = parsed.Title
	result.TranslatedDescription = lo.EmptyableToPtr(parsed.Description)
	result.TranslatedContent = lo.EmptyableToPtr(parsed.Content)
	result.TranslatedSummary = lo.EmptyableToPtr(parsed.Summary)
	result.QualityScore = score
	result.Confidence = score
	result.Status = model.ResultStatusFor(score, threshold)
	result.ParseMethod = model.ParseStructured
	if parsed.Fallback {
		result.ParseMethod = model.ParseFallback
	}
	result.TranslatedAt = t.now()
	return result
}
