package translation

import (
	"maps"

	"globalnews_translator/internal/domain/model"
)

const (
	defaultPairDifficulty  = 0.80
	hardPairDifficulty     = 0.75
	sameLanguageDifficulty = 0.95
)

// hardLanguages make any unlisted pair they appear in a hard pair.
var hardLanguages = map[string]bool{"zh": true, "ja": true, "ko": true}

// LanguagePair is unordered: {en, es} and {es, en} are the same key.
type LanguagePair struct {
	A, B string
}

func NewLanguagePair(a, b string) LanguagePair {
	a, b = model.NormalizeLanguage(a), model.NormalizeLanguage(b)
	if b < a {
		a, b = b, a
	}
	return LanguagePair{A: a, B: b}
}

// pairDifficulty scales quality scores: closer languages keep more of the score.
var pairDifficulty = map[LanguagePair]float64{
	NewLanguagePair("en", "es"): 0.95,
	NewLanguagePair("en", "pt"): 0.92,
	NewLanguagePair("en", "fr"): 0.92,
	NewLanguagePair("en", "it"): 0.92,
	NewLanguagePair("en", "de"): 0.85,
	NewLanguagePair("en", "ru"): 0.85,
	NewLanguagePair("en", "ar"): 0.80,
	NewLanguagePair("en", "zh"): 0.75,
	NewLanguagePair("en", "ja"): 0.75,
	NewLanguagePair("en", "ko"): 0.75,

	NewLanguagePair("es", "pt"): 0.95,
	NewLanguagePair("es", "it"): 0.93,
	NewLanguagePair("es", "fr"): 0.92,
	NewLanguagePair("pt", "it"): 0.92,
	NewLanguagePair("pt", "fr"): 0.90,
	NewLanguagePair("fr", "it"): 0.92,

	NewLanguagePair("de", "nl"): 0.92,
	NewLanguagePair("de", "fr"): 0.85,
	NewLanguagePair("de", "ru"): 0.80,

	NewLanguagePair("zh", "ja"): 0.80,
	NewLanguagePair("zh", "es"): 0.75,
	NewLanguagePair("zh", "fr"): 0.75,
	NewLanguagePair("zh", "ar"): 0.70,
	NewLanguagePair("ja", "es"): 0.75,
	NewLanguagePair("ja", "ko"): 0.80,
	NewLanguagePair("ja", "ar"): 0.70,
	NewLanguagePair("ar", "es"): 0.80,
	NewLanguagePair("ar", "fr"): 0.80,
}

// PairDifficulty returns the multiplier for translating between two languages.
func PairDifficulty(source, target string) float64 {
	pair := NewLanguagePair(source, target)
	if pair.A == pair.B {
		return sameLanguageDifficulty
	}
	if d, ok := pairDifficulty[pair]; ok {
		return d
	}
	if hardLanguages[pair.A] || hardLanguages[pair.B] {
		return hardPairDifficulty
	}
	return defaultPairDifficulty
}

// DifficultyTable returns a copy of the known pairs.
func DifficultyTable() map[LanguagePair]float64 {
	return maps.Clone(pairDifficulty)
}
