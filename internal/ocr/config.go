package ocr

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/ironsheep/screen-ocr/internal/candidate"
)

// AccuracyMode selects how hard the pipeline tries.
type AccuracyMode int

const (
	// Standard renders the Standard variant only and uses two ranked configs.
	Standard AccuracyMode = iota

	// High adds the High and Micro variants and three ranked configs tuned
	// for small text.
	High
)

func (m AccuracyMode) String() string {
	if m == High {
		return "high"
	}
	return "standard"
}

func (m AccuracyMode) candidateMode() candidate.Mode {
	if m == High {
		return candidate.ModeHigh
	}
	return candidate.ModeStandard
}

// ParseAccuracyMode parses "standard" or "high". An empty string selects
// Standard.
func ParseAccuracyMode(s string) (AccuracyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "fast":
		return Standard, nil
	case "high", "accurate":
		return High, nil
	}
	return Standard, fmt.Errorf("unknown accuracy mode %q (expected standard or high)", s)
}

// Level is the recognition effort requested from the engine.
type Level int

const (
	Fast Level = iota
	Accurate
)

func (l Level) String() string {
	if l == Accurate {
		return "accurate"
	}
	return "fast"
}

// RecognitionConfig is one way of asking the engine for text.
type RecognitionConfig struct {
	Level              Level
	LanguageCorrection bool

	// MinTextHeight is the smallest text height to report, as a fraction of
	// the image height.
	MinTextHeight float64
}

func (c RecognitionConfig) String() string {
	return fmt.Sprintf("%s/correction=%t/min=%.4f", c.Level, c.LanguageCorrection, c.MinTextHeight)
}

// RankedConfigs returns the configs tried in order during region and full
// passes.
func RankedConfigs(mode AccuracyMode) []RecognitionConfig {
	if mode == High {
		return []RecognitionConfig{
			{Level: Accurate, LanguageCorrection: true, MinTextHeight: 0.002},
			{Level: Accurate, LanguageCorrection: false, MinTextHeight: 0.002},
			{Level: Fast, LanguageCorrection: false, MinTextHeight: 0.0015},
		}
	}
	return []RecognitionConfig{
		{Level: Accurate, LanguageCorrection: true, MinTextHeight: 0.006},
		{Level: Fast, LanguageCorrection: false, MinTextHeight: 0.006},
	}
}

// QuickConfig returns the config of the quick pass.
func QuickConfig(mode AccuracyMode) RecognitionConfig {
	if mode == High {
		return RecognitionConfig{Level: Fast, MinTextHeight: 0.004}
	}
	return RecognitionConfig{Level: Fast, MinTextHeight: 0.008}
}

// LanguageMode selects the recognition languages. Besides the named modes
// any BCP-47 tag is accepted and used as the only hint.
type LanguageMode string

const (
	// LanguageAuto lets the engine detect the language, hinted with the
	// system languages. The full pass falls back to LanguageSystem.
	LanguageAuto LanguageMode = "auto"

	// LanguageSystem uses the system's preferred languages.
	LanguageSystem LanguageMode = "system"

	LanguageEnglish LanguageMode = "english"
	LanguageRussian LanguageMode = "russian"
)

// ParseLanguageMode parses a named mode or a BCP-47 tag. An empty string
// selects LanguageAuto.
func ParseLanguageMode(s string) (LanguageMode, error) {
	s = strings.TrimSpace(s)
	switch m := LanguageMode(strings.ToLower(s)); m {
	case "":
		return LanguageAuto, nil
	case LanguageAuto, LanguageSystem, LanguageEnglish, LanguageRussian:
		return m, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return LanguageAuto, fmt.Errorf("unknown language mode %q: %w", s, err)
	}
	return LanguageMode(tag.String()), nil
}

// fallbackModes lists the language modes the full pass tries.
func (m LanguageMode) fallbackModes() []LanguageMode {
	if m == LanguageAuto {
		return []LanguageMode{LanguageAuto, LanguageSystem}
	}
	return []LanguageMode{m}
}

// hints returns the BCP-47 language hints of the mode and whether automatic
// language detection is requested.
func (m LanguageMode) hints(system []string) ([]string, bool) {
	switch m {
	case LanguageAuto:
		return system, true
	case LanguageSystem:
		return system, false
	case LanguageEnglish:
		return []string{"en-US"}, false
	case LanguageRussian:
		return []string{"ru-RU"}, false
	}
	return []string{string(m)}, false
}
