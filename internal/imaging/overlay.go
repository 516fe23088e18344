package imaging

import (
	"image"
	"image/color"
	"image/draw"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// defaultOverlayColor is used when the requested colour cannot be parsed.
var defaultOverlayColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// OverlayRects draws the outlines of rects on a copy of img.
//
// It is used to visualise detected text regions in diagnostic dumps.
// colorHex is a "#RRGGBB" string; invalid values fall back to red.
// Outlines are clipped to the image and drawn thickness pixels wide.
func OverlayRects(img image.Image, rects []image.Rectangle, colorHex string, thickness int) *image.NRGBA {
	bounds := img.Bounds()
	result := image.NewNRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	lineColor := parseOverlayColor(colorHex)
	if thickness < 1 {
		thickness = 1
	}

	for _, r := range rects {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		for t := 0; t < thickness; t++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				result.Set(x, r.Min.Y+t, lineColor)
				result.Set(x, r.Max.Y-1-t, lineColor)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				result.Set(r.Min.X+t, y, lineColor)
				result.Set(r.Max.X-1-t, y, lineColor)
			}
		}
	}

	return result
}

func parseOverlayColor(hex string) color.NRGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		return defaultOverlayColor
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
