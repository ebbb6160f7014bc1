package model

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing" // Claimed by exactly one worker
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"    // Retryable; the requeuer moves it back to queued
	JobStatusCancelled  JobStatus = "cancelled" // Retries exhausted or cancelled by an operator
)

// IsTerminal reports whether no worker will touch a job in this status again
// without an explicit requeue.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

const (
	DefaultMaxRetries = 3
	// BaseSecondsPerLanguage is the advisory cost of one target language.
	BaseSecondsPerLanguage = 30
)

var priorityMultipliers = map[Priority]float64{
	PriorityUrgent: 0.5,
	PriorityHigh:   0.7,
	PriorityNormal: 1.0,
	PriorityLow:    1.5,
}

var priorityRanks = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityNormal: 2,
	PriorityLow:    3,
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if _, ok := priorityMultipliers[p]; !ok {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

func (p Priority) Valid() bool {
	_, ok := priorityMultipliers[p]
	return ok
}

// Multiplier scales the estimated completion time.
func (p Priority) Multiplier() float64 {
	if m, ok := priorityMultipliers[p]; ok {
		return m
	}
	return 1.0
}

// Rank orders claims: lower ranks are dequeued first.
func (p Priority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return len(priorityRanks)
}

// EstimateCompletion returns now + languages × base cost × priority multiplier.
func EstimateCompletion(now time.Time, languages int, p Priority) time.Time {
	seconds := float64(languages) * BaseSecondsPerLanguage * p.Multiplier()
	return now.Add(time.Duration(seconds * float64(time.Second)))
}

// TranslationConfig is frozen into a job at creation time.
type TranslationConfig struct {
	Model            string  `json:"model"`
	QualityThreshold float64 `json:"quality_threshold"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
}

// ConfigOverride carries caller-supplied replacements; nil fields keep the defaults.
type ConfigOverride struct {
	Model            *string  `json:"model,omitempty"`
	QualityThreshold *float64 `json:"quality_threshold,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxRetries       *int     `json:"max_retries,omitempty"`
}

var priorityDefaults = map[Priority]TranslationConfig{
	PriorityUrgent: {QualityThreshold: 0.70, MaxTokens: 2000, Temperature: 0.2},
	PriorityHigh:   {QualityThreshold: 0.75, MaxTokens: 3000, Temperature: 0.3},
	PriorityNormal: {QualityThreshold: 0.80, MaxTokens: 4000, Temperature: 0.3},
	PriorityLow:    {QualityThreshold: 0.80, MaxTokens: 4000, Temperature: 0.4},
}

// DefaultConfigFor returns a copy of the default table entry for p.
func DefaultConfigFor(p Priority) TranslationConfig {
	if cfg, ok := priorityDefaults[p]; ok {
		return cfg
	}
	return priorityDefaults[PriorityNormal]
}

// ResolveConfig merges the priority defaults, the service-wide default model and
// an optional override.
func ResolveConfig(p Priority, defaultModel string, override *ConfigOverride) TranslationConfig {
	cfg := DefaultConfigFor(p)
	cfg.Model = defaultModel
	if override == nil {
		return cfg
	}
	if override.Model != nil && *override.Model != "" {
		cfg.Model = *override.Model
	}
	if override.QualityThreshold != nil {
		cfg.QualityThreshold = *override.QualityThreshold
	}
	if override.MaxTokens != nil {
		cfg.MaxTokens = *override.MaxTokens
	}
	if override.Temperature != nil {
		cfg.Temperature = *override.Temperature
	}
	return cfg
}

// Validate rejects overrides that would produce an unusable job.
func (o *ConfigOverride) Validate() error {
	if o == nil {
		return nil
	}
	if o.QualityThreshold != nil && (*o.QualityThreshold < 0 || *o.QualityThreshold > 1) {
		return fmt.Errorf("quality_threshold must be within [0,1]")
	}
	if o.MaxTokens != nil && *o.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return fmt.Errorf("temperature must be within [0,2]")
	}
	if o.MaxRetries != nil && *o.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

type TranslationJob struct {
	ID                  string            `json:"id"`
	SourceArticleID     string            `json:"source_article_id"`
	TargetLanguages     []string          `json:"target_languages"`
	Priority            Priority          `json:"priority"`
	Status              JobStatus         `json:"status"`
	AssignedWorker      *string           `json:"assigned_worker,omitempty"`
	RetryCount          int               `json:"retry_count"`
	MaxRetries          int               `json:"max_retries"`
	TranslationConfig   TranslationConfig `json:"translation_config"`
	EstimatedCompletion time.Time         `json:"estimated_completion"`
	ErrorMessage        *string           `json:"error_message,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
}

// CanRetry reports whether a failure may still be requeued.
func (j *TranslationJob) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// FailureStatus is the terminal status for an unhandled execution error.
func (j *TranslationJob) FailureStatus() JobStatus {
	if j.CanRetry() {
		return JobStatusFailed
	}
	return JobStatusCancelled
}

// RetryBackoff is base × 2^retry_count, capped at limit.
func (j *TranslationJob) RetryBackoff(base, limit time.Duration) time.Duration {
	d := base
	for i := 0; i < j.RetryCount; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// JobStatusUpdate carries the optional columns touched by a status change.
// A non-empty FromStatus makes the update conditional on the current status.
type JobStatusUpdate struct {
	AssignedWorker *string
	ErrorMessage   *string
	FromStatus     JobStatus
}
