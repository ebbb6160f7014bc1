package model

import "time"

type TranslationMethod string

const (
	MethodAI     TranslationMethod = "ai"
	MethodHuman  TranslationMethod = "human"  // reserved
	MethodHybrid TranslationMethod = "hybrid" // reserved
)

type ResultStatus string

const (
	ResultStatusCompleted    ResultStatus = "completed"
	ResultStatusReviewNeeded ResultStatus = "review_needed"
	ResultStatusFailed       ResultStatus = "failed"
)

type ParseMethod string

const (
	ParseStructured ParseMethod = "structured"
	ParseFallback   ParseMethod = "fallback" // first-line heuristics, degraded confidence
	ParseNone       ParseMethod = "none"     // gateway or parse failure
)

// TranslationResult is one language's rendition of an article. The store keeps
// at most one per (ArticleID, TargetLanguage).
type TranslationResult struct {
	ArticleID             string            `json:"article_id"`
	JobID                 string            `json:"job_id"`
	SourceLanguage        string            `json:"source_language"`
	TargetLanguage        string            `json:"target_language"`
	TranslatedTitle       string            `json:"translated_title"`
	TranslatedDescription *string           `json:"translated_description,omitempty"`
	TranslatedContent     *string           `json:"translated_content,omitempty"`
	TranslatedSummary     *string           `json:"translated_summary,omitempty"`
	QualityScore          float64           `json:"quality_score"`
	Confidence            float64           `json:"confidence"`
	Method                TranslationMethod `json:"method"`
	Status                ResultStatus      `json:"status"`
	ParseMethod           ParseMethod       `json:"parse_method"`
	Model                 string            `json:"model"`
	ErrorMessage          *string           `json:"error_message,omitempty"`
	TranslatedAt          time.Time         `json:"translated_at"`
}

// ResultStatusFor gates auto-acceptance on the job's quality threshold.
func ResultStatusFor(score, threshold float64) ResultStatus {
	if score >= threshold {
		return ResultStatusCompleted
	}
	return ResultStatusReviewNeeded
}
