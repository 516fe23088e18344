// Package debug writes diagnostic artifacts of OCR runs to disk.
//
// When enabled, every candidate image, the detected-region overlay and a
// logrus text log of the run are written into a single directory that is
// emptied at startup. It is meant for tuning the pipeline on real captures.
package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-ocr/internal/ocr"
)

// LogFile is the name of the text log inside the dump directory.
const LogFile = "debug.log"

// Dumper writes images and log lines into Dir. The zero value and a Dumper
// created with an empty directory are disabled and do nothing.
type Dumper struct {
	dir string
	log *logrus.Entry

	// session tags the log lines of a session view.
	session string
	out     *output
}

// output is the debug log file shared by a Dumper and its session views.
type output struct {
	mu     sync.Mutex
	file   *os.File
	logger *logrus.Logger
}

// New creates a Dumper for dir. An empty dir disables dumping.
func New(dir string, log *logrus.Entry) *Dumper {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dumper{dir: dir, log: log.WithField("component", "debug"), out: &output{}}
}

// WithSession returns a view of d whose log lines carry the session ID.
func (d *Dumper) WithSession(id string) ocr.Dumper {
	if !d.Enabled() {
		return d
	}
	view := *d
	view.session = id
	return &view
}

// Enabled reports whether artifacts are written.
func (d *Dumper) Enabled() bool {
	return d != nil && d.dir != ""
}

// Dir returns the dump directory.
func (d *Dumper) Dir() string {
	if d == nil {
		return ""
	}
	return d.dir
}

// PrepareDir creates the dump directory, or removes the files left in it by
// an earlier run.
func (d *Dumper) PrepareDir() error {
	if !d.Enabled() {
		return nil
	}
	d.out.mu.Lock()
	defer d.out.mu.Unlock()

	// The log file is about to be removed.
	if err := d.out.closeLocked(); err != nil {
		return err
	}

	entries, err := os.ReadDir(d.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			return fmt.Errorf("failed to create debug directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read debug directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to clear debug directory: %w", err)
		}
	}
	return nil
}

// Logf appends a line to the debug log.
func (d *Dumper) Logf(format string, args ...interface{}) {
	if !d.Enabled() {
		return
	}
	logger, err := d.out.open(d.dir)
	if err != nil {
		d.log.WithError(err).Warn("Failed to open debug log")
		return
	}
	entry := logrus.NewEntry(logger)
	if d.session != "" {
		entry = entry.WithField("session", d.session)
	}
	entry.Infof(format, args...)
}

// Close closes the debug log. Later Logf calls reopen it.
func (d *Dumper) Close() error {
	if !d.Enabled() {
		return nil
	}
	d.out.mu.Lock()
	defer d.out.mu.Unlock()
	return d.out.closeLocked()
}

func (o *output) open(dir string) (*logrus.Logger, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.logger != nil {
		return o.logger, nil
	}

	f, err := os.OpenFile(filepath.Join(dir, LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableColors:   true,
	})
	o.file, o.logger = f, logger
	return logger, nil
}

func (o *output) closeLocked() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file, o.logger = nil, nil
	if err != nil {
		return fmt.Errorf("failed to close debug log: %w", err)
	}
	return nil
}

// Save writes img as <name>.png. Characters outside [A-Za-z0-9_-] in name
// are replaced by underscores.
func (d *Dumper) Save(img image.Image, name string) {
	if !d.Enabled() || img == nil {
		return
	}
	path := filepath.Join(d.dir, SanitizeName(name)+".png")
	if err := imaging.Save(img, path); err != nil {
		d.log.WithError(err).WithField("path", path).Warn("Failed to save debug image")
	}
}

// SanitizeName maps a free-form label to a safe file name.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	return b.String()
}
