package ocr

import (
	"context"
	"image"

	"github.com/ironsheep/screen-ocr/internal/detection"
)

// Request is a single recognition call.
type Request struct {
	Image image.Image

	// Region restricts recognition to part of the image. Nil means the
	// whole image.
	Region *detection.Region

	Config RecognitionConfig

	// Languages are BCP-47 hints, most preferred first.
	Languages []string

	// AutoDetect asks the engine to detect the language itself.
	AutoDetect bool
}

// Recognizer turns an image into text lines joined with newlines.
//
// Implementations must be safe for concurrent use. Returning an empty
// string with a nil error means no text was found.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (string, error)
}
