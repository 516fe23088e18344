package debug

import (
	"image"
	"image/color"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func filledImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	return img
}

func TestDisabled(t *testing.T) {
	var nilDumper *Dumper
	if nilDumper.Enabled() {
		t.Error("nil dumper should be disabled")
	}

	d := New("", quietLog())
	if d.Enabled() {
		t.Error("empty dir should disable dumping")
	}
	// None of these may touch the filesystem or panic.
	if err := d.PrepareDir(); err != nil {
		t.Errorf("PrepareDir on disabled dumper: %v", err)
	}
	d.Logf("ignored %d", 1)
	d.Save(filledImage(2, 2), "ignored")
}

func TestPrepareDir_CreatesAndClears(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	d := New(dir, quietLog())

	if err := d.PrepareDir(); err != nil {
		t.Fatalf("PrepareDir failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory not created: %v", err)
	}

	stale := filepath.Join(dir, "old.png")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := d.PrepareDir(); err != nil {
		t.Fatalf("PrepareDir failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file should have been removed")
	}
}

func TestLogf_Appends(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, quietLog())
	defer d.Close()

	d.Logf("first %s", "line")
	d.Logf("second")

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	for _, want := range []string{"level=info", `msg="first line"`, "time="} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("first line %q should contain %q", lines[0], want)
		}
	}
	if strings.Contains(lines[0], "session=") {
		t.Errorf("plain dumper should not tag a session: %q", lines[0])
	}
}

func TestWithSession(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, quietLog())
	defer d.Close()

	d.WithSession("abc-123").Logf("Final %s", "original")
	d.Logf("outside")

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines in one file, got %q", data)
	}
	if !strings.Contains(lines[0], "session=abc-123") || !strings.Contains(lines[0], `msg="Final original"`) {
		t.Errorf("session line: %q", lines[0])
	}
	if strings.Contains(lines[1], "session=") {
		t.Errorf("parent dumper should stay untagged: %q", lines[1])
	}

	var disabled *Dumper
	if disabled.WithSession("x").Enabled() {
		t.Error("session view of a disabled dumper should be disabled")
	}
}

func TestPrepareDir_ReopensLog(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, quietLog())
	defer d.Close()

	d.Logf("before")
	if err := d.PrepareDir(); err != nil {
		t.Fatalf("PrepareDir failed: %v", err)
	}
	d.Logf("after")

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if strings.Contains(string(data), "before") || !strings.Contains(string(data), "after") {
		t.Errorf("log should only hold lines written after PrepareDir: %q", data)
	}
}

func TestSave_WritesPNG(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, quietLog())

	d.Save(filledImage(8, 4), "pipeline_0_standard/inv")

	path := filepath.Join(dir, "pipeline_0_standard_inv.png")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("saved file is not an image: %v", err)
	}
	if format != "png" || cfg.Width != 8 || cfg.Height != 4 {
		t.Errorf("got %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pipeline_1_high", "pipeline_1_high"},
		{"a b.c", "a_b_c"},
		{"детали", "______"},
		{"keep-dash", "keep-dash"},
		{"", "image"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
