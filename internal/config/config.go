// Package config loads screen-ocr settings from the environment.
//
// An optional .env file is read first; variables already set in the process
// environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/ironsheep/screen-ocr/internal/ocr"
)

// Engine names accepted in SCREENOCR_ENGINE.
const (
	EngineTesseract = "tesseract"
	EngineGemini    = "gemini"
)

// Config holds all settings.
type Config struct {
	LogLevel string

	// Recognition engine
	Engine         string
	TessdataPrefix string

	// AutoLanguages is the language set tried when auto-detection is
	// requested.
	AutoLanguages []string

	// SystemLanguages are the preferred languages of the user.
	SystemLanguages []string

	// Gemini
	GeminiAPIKey    string
	GeminiModel     string
	GeminiFastModel string

	// Pipeline tuning
	BatchSize      int
	MaxDimension   int
	MinEnhanceArea int
	StrongLetters  int
	StrongRatio    float64
	GoodRatio      float64

	// Defaults for requests that do not specify them
	Accuracy string
	Language string

	// DebugDir enables diagnostic dumps when set.
	DebugDir string

	// Debounce is the minimum interval between two capture requests.
	// Zero or negative disables debouncing.
	Debounce time.Duration
}

// CaptureDebounce returns Debounce in the form capture.ControllerOptions
// expects, where only a negative value disables debouncing.
func (c *Config) CaptureDebounce() time.Duration {
	if c.Debounce <= 0 {
		return -1
	}
	return c.Debounce
}

// Load reads the given .env files (".env" when none is given), then the
// environment, and validates the result. Missing .env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() *Config {
	system := getEnvAsListOrDefault("SCREENOCR_SYSTEM_LANGUAGES", nil)
	if len(system) == 0 {
		system = localeLanguages()
	}

	return &Config{
		LogLevel:        getEnvOrDefault("SCREENOCR_LOG_LEVEL", "info"),
		Engine:          strings.ToLower(getEnvOrDefault("SCREENOCR_ENGINE", EngineTesseract)),
		TessdataPrefix:  getEnvOrDefault("SCREENOCR_TESSDATA_PREFIX", os.Getenv("TESSDATA_PREFIX")),
		AutoLanguages:   getEnvAsListOrDefault("SCREENOCR_LANGUAGES", []string{"en-US", "ru-RU"}),
		SystemLanguages: system,
		GeminiAPIKey:    getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:     getEnvOrDefault("SCREENOCR_GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiFastModel: getEnvOrDefault("SCREENOCR_GEMINI_FAST_MODEL", "gemini-1.5-flash"),
		BatchSize:       getEnvAsIntOrDefault("SCREENOCR_BATCH_SIZE", 2),
		MaxDimension:    getEnvAsIntOrDefault("SCREENOCR_MAX_DIMENSION", 2600),
		MinEnhanceArea:  getEnvAsIntOrDefault("SCREENOCR_MIN_ENHANCE_AREA", 800*800),
		StrongLetters:   getEnvAsIntOrDefault("SCREENOCR_STRONG_LETTERS", 8),
		StrongRatio:     getEnvAsFloatOrDefault("SCREENOCR_STRONG_RATIO", 0.6),
		GoodRatio:       getEnvAsFloatOrDefault("SCREENOCR_GOOD_RATIO", 0.2),
		Accuracy:        strings.ToLower(getEnvOrDefault("SCREENOCR_ACCURACY", "standard")),
		Language:        getEnvOrDefault("SCREENOCR_LANGUAGE", "auto"),
		DebugDir:        getEnvOrDefault("SCREENOCR_DEBUG_DIR", ""),
		Debounce:        time.Duration(getEnvAsIntOrDefault("SCREENOCR_DEBOUNCE_MS", 350)) * time.Millisecond,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineTesseract:
	case EngineGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini engine")
		}
	default:
		return fmt.Errorf("SCREENOCR_ENGINE must be %q or %q, got %q", EngineTesseract, EngineGemini, c.Engine)
	}

	if c.BatchSize < 1 || c.BatchSize > 16 {
		return fmt.Errorf("SCREENOCR_BATCH_SIZE must be between 1 and 16, got %d", c.BatchSize)
	}
	if c.MaxDimension < 256 {
		return fmt.Errorf("SCREENOCR_MAX_DIMENSION must be at least 256, got %d", c.MaxDimension)
	}
	if c.MinEnhanceArea < 0 {
		return fmt.Errorf("SCREENOCR_MIN_ENHANCE_AREA must not be negative, got %d", c.MinEnhanceArea)
	}
	if c.StrongLetters < 1 {
		return fmt.Errorf("SCREENOCR_STRONG_LETTERS must be positive, got %d", c.StrongLetters)
	}
	if c.StrongRatio <= 0 || c.StrongRatio > 1 {
		return fmt.Errorf("SCREENOCR_STRONG_RATIO must be in (0,1], got %v", c.StrongRatio)
	}
	if c.GoodRatio <= 0 || c.GoodRatio > c.StrongRatio {
		return fmt.Errorf("SCREENOCR_GOOD_RATIO must be in (0,%v], got %v", c.StrongRatio, c.GoodRatio)
	}
	if _, err := ocr.ParseAccuracyMode(c.Accuracy); err != nil {
		return fmt.Errorf("SCREENOCR_ACCURACY: %w", err)
	}
	for _, tag := range append(append([]string(nil), c.AutoLanguages...), c.SystemLanguages...) {
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("invalid language tag %q: %w", tag, err)
		}
	}
	return nil
}

// localeLanguages derives BCP-47 tags from the POSIX locale variables.
// LANGUAGE may list several locales separated by colons.
func localeLanguages() []string {
	var raw []string
	if v := os.Getenv("LANGUAGE"); v != "" {
		raw = strings.Split(v, ":")
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			raw = append(raw, v)
		}
	}

	seen := make(map[string]bool)
	var tags []string
	for _, r := range raw {
		tag, ok := localeToTag(r)
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return []string{"en-US"}
	}
	return tags
}

// localeToTag converts a POSIX locale such as "ru_RU.UTF-8" to "ru-RU".
func localeToTag(locale string) (string, bool) {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsListOrDefault splits a comma-separated variable.
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
