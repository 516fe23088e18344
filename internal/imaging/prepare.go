package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxWorkingDimension bounds the larger side of a capture before OCR.
	DefaultMaxWorkingDimension = 2600

	// DefaultMinEnhanceArea is the pixel area from which the baseline
	// contrast/sharpen pass is applied. Smaller captures are left untouched.
	DefaultMinEnhanceArea = 800 * 800

	// stretchClip is the fraction of pixels ignored at each end of a channel
	// histogram when computing the contrast stretch.
	stretchClip = 0.005
)

// sharpenKernel favours the centre pixel against its four orthogonal neighbours.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// PrepareOptions controls image preparation. Zero values select the defaults.
type PrepareOptions struct {
	MaxWorkingDimension int
	MinEnhanceArea      int
}

func (o PrepareOptions) withDefaults() PrepareOptions {
	if o.MaxWorkingDimension <= 0 {
		o.MaxWorkingDimension = DefaultMaxWorkingDimension
	}
	if o.MinEnhanceArea <= 0 {
		o.MinEnhanceArea = DefaultMinEnhanceArea
	}
	return o
}

// Prepared is the normalized base image every candidate is derived from.
type Prepared struct {
	// Image is the downscaled and enhanced capture.
	Image image.Image

	// Scale is the factor applied by downscaling (1.0 when untouched).
	Scale float64

	// Enhanced reports whether the contrast/sharpen pass ran.
	Enhanced bool
}

// Prepare downscales and lightly enhances a raw capture.
//
// The larger side is brought down to opts.MaxWorkingDimension using Lanczos
// resampling. Captures with an area of at least opts.MinEnhanceArea then get a
// per-channel contrast stretch followed by a 3x3 sharpen with edge extension.
// Any failing step falls back to its input, so Prepare always returns an image.
func Prepare(img image.Image, opts PrepareOptions) Prepared {
	opts = opts.withDefaults()

	out, scale := downscale(img, opts.MaxWorkingDimension)

	b := out.Bounds()
	if b.Dx()*b.Dy() < opts.MinEnhanceArea {
		return Prepared{Image: out, Scale: scale}
	}

	enhanced, err := SafeApply(out, enhance)
	if err != nil {
		return Prepared{Image: out, Scale: scale}
	}
	return Prepared{Image: enhanced, Scale: scale, Enhanced: true}
}

// downscale resizes img so that its larger side equals ceiling.
// On failure the original is returned with a scale of 1.0.
func downscale(img image.Image, ceiling int) (image.Image, float64) {
	b := img.Bounds()
	maxDim := max(b.Dx(), b.Dy())
	if maxDim <= ceiling {
		return img, 1.0
	}

	scale := float64(ceiling) / float64(maxDim)
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))

	resized, err := SafeApply(img, func(src image.Image) image.Image {
		return imaging.Resize(src, w, h, imaging.Lanczos)
	})
	if err != nil {
		return img, 1.0
	}
	return resized, scale
}

// enhance applies the contrast stretch and sharpen convolution.
func enhance(img image.Image) image.Image {
	stretched := StretchContrast(img)
	return imaging.Convolve3x3(stretched, sharpenKernel, nil)
}

// StretchContrast linearly stretches each colour channel so that its
// populated range (ignoring a small clip at both ends) covers 0-255.
func StretchContrast(img image.Image) *image.NRGBA {
	hist := histogram.NewRGBAHistogram(img)
	b := img.Bounds()
	total := b.Dx() * b.Dy()

	lutR := stretchTable(hist.R.Bins, total)
	lutG := stretchTable(hist.G.Bins, total)
	lutB := stretchTable(hist.B.Bins, total)

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lutR[c.R], G: lutG[c.G], B: lutB[c.B], A: c.A}
	})
}

// stretchTable builds a lookup table mapping [lo,hi] onto [0,255].
func stretchTable(bins []int, total int) [256]uint8 {
	var lut [256]uint8
	lo, hi := histogramBounds(bins, total)
	for i := range lut {
		switch {
		case hi <= lo:
			lut[i] = uint8(i)
		case i <= lo:
			lut[i] = 0
		case i >= hi:
			lut[i] = 255
		default:
			lut[i] = uint8(float64(i-lo)*255/float64(hi-lo) + 0.5)
		}
	}
	return lut
}

// histogramBounds finds the lowest and highest bins once stretchClip of the
// pixels have been discarded from each end.
func histogramBounds(bins []int, total int) (int, int) {
	if len(bins) == 0 || total == 0 {
		return 0, 255
	}
	clip := int(float64(total) * stretchClip)

	lo, acc := 0, 0
	for i, n := range bins {
		acc += n
		if acc > clip {
			lo = i
			break
		}
	}
	hi, acc := len(bins)-1, 0
	for i := len(bins) - 1; i >= 0; i-- {
		acc += bins[i]
		if acc > clip {
			hi = i
			break
		}
	}
	return lo, hi
}

// SafeApply runs a single image operation and converts a panic or an empty
// result into an error, leaving the caller free to keep its input instead.
func SafeApply(img image.Image, fn func(image.Image) image.Image) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = img, fmt.Errorf("image operation panicked: %v", r)
		}
	}()

	res := fn(img)
	if res == nil || res.Bounds().Empty() {
		return img, fmt.Errorf("image operation produced no pixels")
	}
	return res, nil
}
