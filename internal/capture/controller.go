package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-ocr/internal/ocr"
)

var (
	// ErrDebounced is returned for a trigger inside the debounce window.
	ErrDebounced = errors.New("capture request debounced")

	// ErrBusy is returned while another session is being processed.
	ErrBusy = errors.New("capture already in progress")

	// ErrSelectionTooSmall is returned for selections of MinSelectionSide
	// points or less on either side. It is the equivalent of a cancelled
	// drag, not a failure.
	ErrSelectionTooSmall = errors.New("selection too small")
)

const (
	// DefaultDebounce is the minimum interval between two triggers.
	DefaultDebounce = 350 * time.Millisecond

	// MinSelectionSide is the largest side length, in points, still
	// considered an accidental click.
	MinSelectionSide = 10
)

// Runner runs OCR with the Standard to High retry.
type Runner interface {
	RunWithRetry(ctx context.Context, img image.Image, opts ocr.Options) (*ocr.Result, error)
}

// Dumper is the diagnostic sink used by a session.
type Dumper interface {
	ocr.Dumper
	PrepareDir() error
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// Debounce overrides DefaultDebounce. Negative disables debouncing.
	Debounce time.Duration

	Dumper Dumper

	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Controller runs one capture session at a time.
type Controller struct {
	capturer Capturer
	runner   Runner
	debounce time.Duration
	dumper   Dumper
	now      func() time.Time
	log      *logrus.Entry

	mu          sync.Mutex
	busy        bool
	lastTrigger time.Time
}

// NewController creates a Controller.
func NewController(c Capturer, r Runner, opts ControllerOptions, log *logrus.Entry) *Controller {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		capturer: c,
		runner:   r,
		debounce: opts.Debounce,
		dumper:   opts.Dumper,
		now:      opts.Now,
		log:      log.WithField("component", "capture"),
	}
}

// Capture captures rect (screen points) and recognizes its text.
//
// A result with empty Text means nothing was recognized even after the
// High accuracy retry. Capture failures are returned wrapped so that
// errors.Is matches ErrPermissionDenied, ErrInvalidRect and ErrNoDisplay.
func (c *Controller) Capture(ctx context.Context, rect image.Rectangle, opts ocr.Options) (*ocr.Result, error) {
	return c.CaptureFrom(ctx, c.capturer, rect, opts)
}

// CaptureFrom is Capture with an explicit source, for callers that receive a
// new screenshot with every request.
func (c *Controller) CaptureFrom(ctx context.Context, src Capturer, rect image.Rectangle, opts ocr.Options) (*ocr.Result, error) {
	if src == nil {
		return nil, fmt.Errorf("capture failed: %w", ErrNoDisplay)
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	rect = rect.Canon()
	if rect.Dx() <= MinSelectionSide || rect.Dy() <= MinSelectionSide {
		return nil, ErrSelectionTooSmall
	}

	dumping := c.dumper != nil && c.dumper.Enabled()
	if dumping {
		if err := c.dumper.PrepareDir(); err != nil {
			c.log.WithError(err).Warn("Failed to prepare debug directory")
		}
		c.dumper.Logf("Selection rect: %v", rect)
	}

	img, err := src.Capture(ctx, rect)
	if err != nil {
		if dumping {
			c.dumper.Logf("Capture error: %v", err)
		}
		c.log.WithError(err).WithField("rect", rect.String()).Warn("Capture failed")
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	if dumping {
		c.dumper.Save(img, "last_capture")
	}

	res, err := c.runner.RunWithRetry(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		if dumping {
			c.dumper.Logf("No text recognized after OCR.")
		}
		c.log.WithField("session", res.Session).Info("No text recognized")
	}
	return res, nil
}

// Busy reports whether a session is running.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.debounce > 0 && !c.lastTrigger.IsZero() && now.Sub(c.lastTrigger) < c.debounce {
		return ErrDebounced
	}
	c.lastTrigger = now

	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}
