package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrPermissionDenied is returned when the platform refuses screen
	// recording.
	ErrPermissionDenied = errors.New("screen recording permission not granted")

	// ErrInvalidRect is returned for a selection with no usable area.
	ErrInvalidRect = errors.New("invalid capture rectangle")

	// ErrNoDisplay is returned when no display is available for capture.
	ErrNoDisplay = errors.New("no display available for capture")
)

// maxSelectionSide rejects absurd selections before any clipping.
const maxSelectionSide = 50000

// Capturer captures the pixels under a selection given in screen points.
type Capturer interface {
	Capture(ctx context.Context, rect image.Rectangle) (image.Image, error)
}

// Display describes one screen.
type Display struct {
	// Bounds is the display frame in global screen points.
	Bounds image.Rectangle

	// Scale is the number of pixels per point. Values below 1 are treated
	// as 1.
	Scale float64
}

func (d Display) scale() float64 {
	return math.Max(d.Scale, 1)
}

// ClampToDisplay clips rect (global points) to the display and returns the
// matching rectangle in display pixels, with the display's top-left pixel at
// (0,0).
func ClampToDisplay(rect image.Rectangle, d Display) (image.Rectangle, error) {
	if d.Bounds.Empty() {
		return image.Rectangle{}, ErrNoDisplay
	}
	rect = rect.Canon()
	if rect.Dx() <= 0 || rect.Dy() <= 0 || rect.Dx() >= maxSelectionSide || rect.Dy() >= maxSelectionSide {
		return image.Rectangle{}, ErrInvalidRect
	}

	relative := rect.Intersect(d.Bounds).Sub(d.Bounds.Min)
	if relative.Dx() < 1 || relative.Dy() < 1 {
		return image.Rectangle{}, ErrInvalidRect
	}

	s := d.scale()
	pixels := image.Rect(
		int(math.Floor(float64(relative.Min.X)*s)),
		int(math.Floor(float64(relative.Min.Y)*s)),
		int(math.Ceil(float64(relative.Max.X)*s)),
		int(math.Ceil(float64(relative.Max.Y)*s)),
	)
	displayPixels := image.Rect(0, 0,
		int(math.Round(float64(d.Bounds.Dx())*s)),
		int(math.Round(float64(d.Bounds.Dy())*s)),
	)
	pixels = pixels.Intersect(displayPixels)
	if pixels.Dx() < 1 || pixels.Dy() < 1 {
		return image.Rectangle{}, ErrInvalidRect
	}
	return pixels, nil
}

// ImageCapturer captures from a screenshot that has already been taken,
// such as a file handed to the MCP tools.
type ImageCapturer struct {
	// Screen is the full display image in pixels.
	Screen image.Image

	// Display positions Screen in global points. A zero Bounds places the
	// display at the origin with the size of Screen divided by Scale.
	Display Display
}

// Capture implements Capturer.
func (c *ImageCapturer) Capture(ctx context.Context, rect image.Rectangle) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Screen == nil || c.Screen.Bounds().Empty() {
		return nil, ErrNoDisplay
	}

	d := c.Display
	if d.Bounds.Empty() {
		sb := c.Screen.Bounds()
		s := d.scale()
		d.Bounds = image.Rect(0, 0, int(float64(sb.Dx())/s), int(float64(sb.Dy())/s))
	}

	pixels, err := ClampToDisplay(rect, d)
	if err != nil {
		return nil, err
	}
	pixels = pixels.Add(c.Screen.Bounds().Min).Intersect(c.Screen.Bounds())
	if pixels.Empty() {
		return nil, fmt.Errorf("%w: selection outside screenshot", ErrInvalidRect)
	}
	return imaging.Crop(c.Screen, pixels), nil
}
