package ocr

import (
	"strings"
	"unicode"
)

// Default thresholds.
const (
	DefaultStrongLetters = 8
	DefaultStrongRatio   = 0.6
	DefaultGoodRatio     = 0.2
)

// Score measures text quality.
type Score struct {
	// Letters is the number of alphanumeric characters in any script.
	Letters int

	// Ratio is Letters divided by the number of non-whitespace characters.
	Ratio float64
}

// ScoreText computes the Score of text.
func ScoreText(text string) Score {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Score{}
	}

	total, letters := 0, 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) {
			letters++
		}
	}
	if total == 0 {
		return Score{}
	}
	return Score{Letters: letters, Ratio: float64(letters) / float64(total)}
}

// better reports whether s beats o: more letters, or equal letters and a
// higher ratio.
func (s Score) better(o Score) bool {
	return s.Letters > o.Letters || (s.Letters == o.Letters && s.Ratio > o.Ratio)
}

// Thresholds are the strong and good bars. Zero fields select the defaults.
type Thresholds struct {
	StrongLetters int
	StrongRatio   float64
	GoodRatio     float64
}

// Scorer classifies recognized text.
type Scorer struct {
	t Thresholds
}

// NewScorer returns a Scorer with t, filling zero fields with defaults.
func NewScorer(t Thresholds) Scorer {
	if t.StrongLetters <= 0 {
		t.StrongLetters = DefaultStrongLetters
	}
	if t.StrongRatio <= 0 {
		t.StrongRatio = DefaultStrongRatio
	}
	if t.GoodRatio <= 0 {
		t.GoodRatio = DefaultGoodRatio
	}
	return Scorer{t: t}
}

// Thresholds returns the effective thresholds.
func (s Scorer) Thresholds() Thresholds {
	return s.t
}

// Score computes the Score of text.
func (s Scorer) Score(text string) Score {
	return ScoreText(text)
}

// IsStrong reports whether text is confident enough to stop searching.
func (s Scorer) IsStrong(text string) bool {
	return s.strong(ScoreText(text))
}

// IsGood reports whether text may be considered as a best result.
func (s Scorer) IsGood(text string) bool {
	return s.good(ScoreText(text))
}

func (s Scorer) strong(sc Score) bool {
	return sc.Letters >= s.t.StrongLetters && sc.Ratio >= s.t.StrongRatio
}

func (s Scorer) good(sc Score) bool {
	return sc.Letters > 0 && sc.Ratio >= s.t.GoodRatio
}

// BestOf returns b if it has more letters, or equal letters and a higher
// ratio; otherwise a.
func (s Scorer) BestOf(a, b string) string {
	if ScoreText(b).better(ScoreText(a)) {
		return b
	}
	return a
}
