package ocr

import (
	"math"
	"testing"
)

func TestScoreText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantLetters int
		wantRatio   float64
	}{
		{"empty", "", 0, 0},
		{"whitespace", "   ", 0, 0},
		{"alphanumeric", "abc123", 6, 1.0},
		{"punctuation", "a!! b", 2, 0.5},
		{"newlines", "ab\n\ncd", 4, 1.0},
		{"cyrillic", "Привет мир", 9, 1.0},
		{"combining mark", "e\u0301", 2, 1.0},
		{"symbols only", "--- ***", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreText(tt.text)
			if got.Letters != tt.wantLetters {
				t.Errorf("letters: got %d, want %d", got.Letters, tt.wantLetters)
			}
			if math.Abs(got.Ratio-tt.wantRatio) > 1e-9 {
				t.Errorf("ratio: got %v, want %v", got.Ratio, tt.wantRatio)
			}
		})
	}
}

func TestScorer_IsStrong(t *testing.T) {
	s := NewScorer(Thresholds{})

	tests := []struct {
		text string
		want bool
	}{
		{"abcdefg", false},   // 7 letters
		{"abcdefgh", true},   // 8 letters
		{"abcd efgh!", true}, // 8 of 9
		{"ab!!cd!!ef!!gh!!", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.IsStrong(tt.text); got != tt.want {
			t.Errorf("IsStrong(%q): got %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestScorer_IsStrongMonotonic(t *testing.T) {
	s := NewScorer(Thresholds{})
	text := ""
	prev := false
	for i := 0; i < 20; i++ {
		text += "a"
		got := s.IsStrong(text)
		if prev && !got {
			t.Fatalf("adding a letter made %q weak", text)
		}
		if got != (i+1 >= DefaultStrongLetters) {
			t.Errorf("IsStrong at %d letters: got %v", i+1, got)
		}
		prev = got
	}
}

func TestScorer_IsGood(t *testing.T) {
	s := NewScorer(Thresholds{})

	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"!!!!", false},
		{"a!!!", true},    // ratio 0.25
		{"a!!!!", true},   // ratio 0.2
		{"a!!!!!", false}, // ratio < 0.2
	}
	for _, tt := range tests {
		if got := s.IsGood(tt.text); got != tt.want {
			t.Errorf("IsGood(%q): got %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestScorer_CustomThresholds(t *testing.T) {
	s := NewScorer(Thresholds{StrongLetters: 3, StrongRatio: 0.9, GoodRatio: 0.5})

	if !s.IsStrong("abc") {
		t.Error("3 letters should be strong with a threshold of 3")
	}
	if s.IsStrong("abc!") {
		t.Error("ratio 0.75 should not be strong with a 0.9 threshold")
	}
	if s.IsGood("a!!") {
		t.Error("ratio 0.33 should not be good with a 0.5 threshold")
	}

	got := s.Thresholds()
	if got.StrongLetters != 3 || got.StrongRatio != 0.9 || got.GoodRatio != 0.5 {
		t.Errorf("thresholds not kept: %+v", got)
	}
}

func TestScorer_BestOf(t *testing.T) {
	s := NewScorer(Thresholds{})

	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"more letters wins", "abc", "abcd", "abcd"},
		{"fewer letters loses", "abcd", "abc", "abcd"},
		{"tie higher ratio", "ab!", "ab", "ab"},
		{"full tie keeps first", "ab", "cd", "ab"},
		{"both empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.BestOf(tt.a, tt.b); got != tt.want {
				t.Errorf("BestOf(%q, %q): got %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestScorer_BestOfProperties(t *testing.T) {
	s := NewScorer(Thresholds{})
	texts := []string{"", "a", "ab!", "ab", "hello world", "!!", "12345", "Привет"}

	for _, a := range texts {
		if got := s.BestOf(a, a); got != a {
			t.Errorf("BestOf(%q, %q) should be idempotent, got %q", a, a, got)
		}
		for _, b := range texts {
			ab, ba := ScoreText(s.BestOf(a, b)), ScoreText(s.BestOf(b, a))
			if ab != ba {
				t.Errorf("BestOf(%q, %q) and BestOf(%q, %q) score differently: %+v vs %+v", a, b, b, a, ab, ba)
			}
		}
	}
}
