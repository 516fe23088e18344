package imaging

import (
	"image"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// AverageColor returns the mean colour of img as a colorful.Color.
//
// Transparent pixels are composited over black, matching how a capture
// backend renders them. An empty image averages to black.
func AverageColor(img image.Image) colorful.Color {
	src := imaging.Clone(img)
	n := len(src.Pix) / 4
	if n == 0 {
		return colorful.Color{}
	}

	var sumR, sumG, sumB uint64
	for i := 0; i < len(src.Pix); i += 4 {
		a := uint64(src.Pix[i+3])
		sumR += uint64(src.Pix[i]) * a / 255
		sumG += uint64(src.Pix[i+1]) * a / 255
		sumB += uint64(src.Pix[i+2]) * a / 255
	}

	d := float64(n) * 255
	return colorful.Color{
		R: float64(sumR) / d,
		G: float64(sumG) / d,
		B: float64(sumB) / d,
	}
}

// AverageLuminance returns the Rec. 709 luma (0-1) of the image's mean colour.
func AverageLuminance(img image.Image) float64 {
	return Luminance(AverageColor(img))
}

// Luminance computes Rec. 709 luma from gamma-encoded sRGB components.
func Luminance(c colorful.Color) float64 {
	c = c.Clamped()
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}
