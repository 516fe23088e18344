package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Config reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "SCREENOCR_") || key == "GEMINI_API_KEY" || key == "TESSDATA_PREFIX" ||
			key == "LANGUAGE" || key == "LC_ALL" || key == "LC_MESSAGES" || key == "LANG" {
			t.Setenv(key, "")
		}
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Engine != EngineTesseract {
		t.Errorf("Engine: got %q", cfg.Engine)
	}
	if cfg.BatchSize != 2 || cfg.MaxDimension != 2600 || cfg.MinEnhanceArea != 640000 {
		t.Errorf("pipeline defaults: %+v", cfg)
	}
	if cfg.StrongLetters != 8 || cfg.StrongRatio != 0.6 || cfg.GoodRatio != 0.2 {
		t.Errorf("threshold defaults: %+v", cfg)
	}
	if cfg.Debounce != 350*time.Millisecond {
		t.Errorf("Debounce: got %v", cfg.Debounce)
	}
	if !reflect.DeepEqual(cfg.SystemLanguages, []string{"en-US"}) {
		t.Errorf("SystemLanguages: got %v", cfg.SystemLanguages)
	}
	if cfg.DebugDir != "" {
		t.Error("debug dumps should be disabled by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENOCR_BATCH_SIZE", "4")
	t.Setenv("SCREENOCR_STRONG_RATIO", "0.7")
	t.Setenv("SCREENOCR_LANGUAGES", "de-DE, fr ,")
	t.Setenv("SCREENOCR_ACCURACY", "HIGH")
	t.Setenv("SCREENOCR_DEBOUNCE_MS", "0")
	t.Setenv("SCREENOCR_MAX_DIMENSION", "not a number")

	cfg := FromEnv()
	if cfg.BatchSize != 4 || cfg.StrongRatio != 0.7 || cfg.Accuracy != "high" || cfg.Debounce != 0 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AutoLanguages, []string{"de-DE", "fr"}) {
		t.Errorf("AutoLanguages: got %v", cfg.AutoLanguages)
	}
	if cfg.MaxDimension != 2600 {
		t.Errorf("invalid integer should fall back to default, got %d", cfg.MaxDimension)
	}
}

func TestFromEnv_LocaleLanguages(t *testing.T) {
	clearEnv(t)
	t.Setenv("LANGUAGE", "ru_RU:en_GB")
	t.Setenv("LANG", "ru_RU.UTF-8")

	cfg := FromEnv()
	want := []string{"ru-RU", "en-GB"}
	if !reflect.DeepEqual(cfg.SystemLanguages, want) {
		t.Errorf("SystemLanguages: got %v, want %v", cfg.SystemLanguages, want)
	}

	t.Setenv("SCREENOCR_SYSTEM_LANGUAGES", "uk-UA")
	if got := FromEnv().SystemLanguages; !reflect.DeepEqual(got, []string{"uk-UA"}) {
		t.Errorf("explicit system languages should win, got %v", got)
	}
}

func TestLocaleToTag(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"en_US.UTF-8", "en-US", true},
		{"de_DE@euro", "de-DE", true},
		{"ru", "ru", true},
		{"C", "", false},
		{"POSIX", "", false},
		{"C.UTF-8", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := localeToTag(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("localeToTag(%q): got %q/%v, want %q/%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Engine = "paddle" }},
		{"gemini without key", func(c *Config) { c.Engine = EngineGemini }},
		{"batch size zero", func(c *Config) { c.BatchSize = 0 }},
		{"tiny max dimension", func(c *Config) { c.MaxDimension = 10 }},
		{"strong ratio above one", func(c *Config) { c.StrongRatio = 1.5 }},
		{"good above strong", func(c *Config) { c.GoodRatio = 0.9 }},
		{"bad accuracy", func(c *Config) { c.Accuracy = "max" }},
		{"bad language tag", func(c *Config) { c.AutoLanguages = []string{"!!"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}

	valid := []struct {
		name   string
		modify func(*Config)
	}{
		{"gemini with a key", func(c *Config) { c.Engine = EngineGemini; c.GeminiAPIKey = "key" }},
		{"fast alias", func(c *Config) { c.Accuracy = "fast" }},
		{"accurate alias", func(c *Config) { c.Accuracy = "accurate" }},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Millisecond }},
		{"zero debounce", func(c *Config) { c.Debounce = 0 }},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.modify(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestCaptureDebounce(t *testing.T) {
	tests := []struct {
		debounce time.Duration
		want     time.Duration
	}{
		{350 * time.Millisecond, 350 * time.Millisecond},
		{0, -1},
		{-5 * time.Millisecond, -1},
	}
	for _, tt := range tests {
		cfg := &Config{Debounce: tt.debounce}
		if got := cfg.CaptureDebounce(); got != tt.want {
			t.Errorf("CaptureDebounce(%v) = %v, want %v", tt.debounce, got, tt.want)
		}
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("SCREENOCR_BATCH_SIZE")
	t.Cleanup(func() { os.Unsetenv("SCREENOCR_BATCH_SIZE") })

	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SCREENOCR_BATCH_SIZE=3\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("BatchSize: got %d, want 3", cfg.BatchSize)
	}
}
