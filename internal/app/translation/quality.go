package translation

import (
	"strings"
	"unicode/utf8"
)

const (
	baseScore        = 0.5
	titleBonus       = 0.15
	descriptionBonus = 0.10
	contentBonus     = 0.05
	tightRatioBonus  = 0.20
	looseRatioBonus  = 0.10
	wordCountBonus   = 0.10
	minWordsForBonus = 10
)

// Scorer rates a translation heuristically in [0,1]. It is deterministic.
type Scorer struct {
	// FallbackPenalty is subtracted from responses recovered without JSON.
	FallbackPenalty float64
}

func (s Scorer) Score(src SourceText, t *ParsedTranslation, targetLanguage string) float64 {
	if t == nil {
		return 0
	}

	score := baseScore
	if t.Title != "" {
		score += titleBonus
	}
	if t.Description != "" {
		score += descriptionBonus
	}
	if t.Content != "" {
		score += contentBonus
	}

	srcLen := utf8.RuneCountInString(src.Title + src.Description + src.Content)
	if srcLen > 0 {
		ratio := float64(utf8.RuneCountInString(t.Title+t.Description+t.Content)) / float64(srcLen)
		switch {
		case ratio >= 0.7 && ratio <= 1.5:
			score += tightRatioBonus
		case ratio >= 0.5 && ratio <= 2.0:
			score += looseRatioBonus
		}
	}

	score *= PairDifficulty(src.Language, targetLanguage)

	words := len(strings.Fields(t.Title)) + len(strings.Fields(t.Description)) + len(strings.Fields(t.Content))
	if words > minWordsForBonus {
		score += wordCountBonus
	}

	if t.Fallback {
		score -= s.FallbackPenalty
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
