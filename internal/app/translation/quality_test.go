package translation

import (
	"math"
	"testing"
)

func approx(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("score = %.6f, want %.6f", got, want)
	}
}

func TestScoreTitleOnly(t *testing.T) {
	src := SourceText{Language: "en", Title: "Hello world"}
	got := Scorer{}.Score(src, &ParsedTranslation{Title: "Hola mundo"}, "es")
	// (0.5 + 0.15 + 0.20) × 0.95
	approx(t, got, 0.8075)
}

func TestScoreClampsAtOne(t *testing.T) {
	src := SourceText{
		Language:    "en",
		Title:       "Central bank raises rates",
		Description: "The decision surprised markets across the region",
		Content:     "Officials said inflation remained stubbornly high despite earlier moves.",
	}
	tr := &ParsedTranslation{
		Title:       "El banco central sube los tipos",
		Description: "La decisión sorprendió a los mercados de la región",
		Content:     "Los funcionarios dijeron que la inflación seguía siendo alta pese a medidas anteriores.",
	}
	approx(t, Scorer{}.Score(src, tr, "es"), 1.0)
}

func TestScoreHardPairAndWordBonus(t *testing.T) {
	src := SourceText{
		Language:    "en",
		Title:       "Central bank raises rates",
		Description: "The decision surprised markets across the region",
		Content:     "Officials said inflation remained stubbornly high.",
	}
	tr := &ParsedTranslation{
		Title:       "central bank raises rates today",
		Description: "the decision surprised markets across the region",
		Content:     "officials said inflation remained stubbornly high",
	}
	// (0.5 + 0.15 + 0.10 + 0.05 + 0.20) × 0.75 + 0.10
	approx(t, Scorer{}.Score(src, tr, "zh"), 0.85)
}

func TestScoreLooseRatioAndUnknownPair(t *testing.T) {
	src := SourceText{Language: "en", Title: "abcdefghij"}
	tr := &ParsedTranslation{Title: "abcdefghijklmnopqr"} // ratio 1.8
	// (0.5 + 0.15 + 0.10) × 0.80
	approx(t, Scorer{}.Score(src, tr, "sw"), 0.6)
}

func TestScoreFallbackPenalty(t *testing.T) {
	src := SourceText{Language: "en", Title: "Hello world"}
	tr := &ParsedTranslation{Title: "Hola mundo", Fallback: true}

	approx(t, Scorer{}.Score(src, tr, "es"), 0.8075)
	approx(t, Scorer{FallbackPenalty: 0.2}.Score(src, tr, "es"), 0.6075)
	approx(t, Scorer{FallbackPenalty: 1}.Score(src, tr, "es"), 0)
}

func TestScoreAlwaysWithinUnitInterval(t *testing.T) {
	srcs := []SourceText{
		{Language: "en"},
		{Language: "en", Title: "x"},
		{Language: "ja", Title: "短い", Content: "本文"},
	}
	trs := []*ParsedTranslation{
		{},
		{Title: "a very long translated title with many many words in it indeed yes"},
		{Title: "t", Description: "d", Content: "c", Fallback: true},
	}
	for _, src := range srcs {
		for _, tr := range trs {
			for _, lang := range []string{"en", "es", "zh", "ar", "xx"} {
				got := Scorer{FallbackPenalty: 0.3}.Score(src, tr, lang)
				if got < 0 || got > 1 {
					t.Fatalf("score %v out of range for %+v → %s", got, src, lang)
				}
			}
		}
	}
}

func TestPairDifficulty(t *testing.T) {
	if PairDifficulty("en", "es") != PairDifficulty("es", "EN") {
		t.Fatal("pairs must be symmetric and case-insensitive")
	}
	if PairDifficulty("fr", "fr") != sameLanguageDifficulty {
		t.Fatal("same language should use the same-language factor")
	}
	for _, pair := range [][2]string{{"en", "sw"}, {"de", "pt"}, {"ru", "it"}} {
		if d := PairDifficulty(pair[0], pair[1]); d != defaultPairDifficulty {
			t.Fatalf("%v = %v, want the default factor", pair, d)
		}
	}
	for _, pair := range [][2]string{{"de", "zh"}, {"ru", "JA"}, {"pt", "zh"}, {"it", "ja"}, {"ko", "sw"}} {
		if d := PairDifficulty(pair[0], pair[1]); d != hardPairDifficulty {
			t.Fatalf("%v = %v, want the hard pair factor", pair, d)
		}
	}
	for pair, d := range DifficultyTable() {
		if d < 0.70 || d > 0.95 {
			t.Fatalf("%v difficulty %v outside [0.70, 0.95]", pair, d)
		}
	}

	table := DifficultyTable()
	table[NewLanguagePair("en", "es")] = 0.1
	if PairDifficulty("en", "es") == 0.1 {
		t.Fatal("DifficultyTable must return a copy")
	}
}

func TestScoreEqualLengthFullTranslationReachesDifficulty(t *testing.T) {
	src := SourceText{Language: "en", Title: "Storm hits coast", Description: "Thousands evacuated", Content: "Winds reached record speeds overnight."}
	tr := &ParsedTranslation{Title: "Sturm trifft Küste", Description: "Tausende evakuiert", Content: "Winde erreichten über Nacht Rekorde."}
	for _, target := range []string{"de", "ja", "sw"} {
		d := PairDifficulty("en", target)
		if got := (Scorer{}).Score(src, tr, target); got < d-1e-9 {
			t.Fatalf("%s: score %.4f below pair difficulty %.2f", target, got, d)
		}
	}
}

func TestScoreEmptyTranslationCapped(t *testing.T) {
	src := SourceText{Language: "en", Title: "Storm hits coast", Content: "Winds reached record speeds overnight."}
	for _, target := range []string{"es", "ar", "xx"} {
		d := PairDifficulty("en", target)
		if got := (Scorer{}).Score(src, &ParsedTranslation{}, target); got > 0.5*d+1e-9 {
			t.Fatalf("%s: empty translation scored %.4f, want at most %.4f", target, got, 0.5*d)
		}
	}
}
