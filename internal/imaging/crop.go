package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// NormalizedRect is a rectangle expressed as fractions of an image's size,
// with a top-left origin.
type NormalizedRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PixelRect converts a normalized rectangle into pixel coordinates of img,
// rounding outward and clipping to the image bounds.
func PixelRect(img image.Image, r NormalizedRect) image.Rectangle {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	x1 := b.Min.X + int(math.Floor(r.X*w))
	y1 := b.Min.Y + int(math.Floor(r.Y*h))
	x2 := b.Min.X + int(math.Ceil((r.X+r.Width)*w))
	y2 := b.Min.Y + int(math.Ceil((r.Y+r.Height)*h))

	return image.Rect(x1, y1, x2, y2).Intersect(b)
}

// Crop extracts a rectangular region from an image.
//
// The region is given in pixel coordinates; (x1,y1) inclusive, (x2,y2)
// exclusive. The result always starts at (0,0).
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if rect.Empty() {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return imaging.Crop(img, rect), nil
}

// CropNormalized crops the part of img covered by a normalized rectangle.
func CropNormalized(img image.Image, r NormalizedRect) (*image.NRGBA, error) {
	return Crop(img, PixelRect(img, r))
}
