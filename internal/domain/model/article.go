package model

import (
	"fmt"
	"time"
)

// UrgencyTag is assigned to articles upstream by the feed importer.
type UrgencyTag string

const (
	UrgencyBreaking UrgencyTag = "breaking"
	UrgencyHigh     UrgencyTag = "high"
	UrgencyNormal   UrgencyTag = "normal"
	UrgencyLow      UrgencyTag = "low"
)

// BulkPriority maps the urgency tags accepted by bulk translation to job priorities.
func BulkPriority(tag UrgencyTag) (Priority, error) {
	switch tag {
	case UrgencyBreaking:
		return PriorityUrgent, nil
	case UrgencyHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("urgency %q is not eligible for bulk translation", tag)
	}
}

type Article struct {
	ID          string     `json:"id"`
	FeedID      string     `json:"feed_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Content     *string    `json:"content,omitempty"`
	Summary     *string    `json:"summary,omitempty"`
	URL         string     `json:"url"`
	Language    string     `json:"language"`
	Urgency     UrgencyTag `json:"urgency"`
	PublishedAt time.Time  `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SourceLanguage falls back to English for articles imported without detection.
func (a *Article) SourceLanguage() string {
	if a.Language == "" {
		return "en"
	}
	return a.Language
}

func (a *Article) DescriptionText() string {
	if a.Description == nil {
		return ""
	}
	return *a.Description
}

func (a *Article) ContentText() string {
	if a.Content == nil {
		return ""
	}
	return *a.Content
}
