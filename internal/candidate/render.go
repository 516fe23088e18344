package candidate

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	imgutil "github.com/ironsheep/screen-ocr/internal/imaging"
)

const (
	// Channel clamp bounds keep candidates away from pure black and white.
	clampLow  = 13  // 0.05 * 255
	clampHigh = 242 // 0.95 * 255
)

type stage struct {
	name string
	fn   func(image.Image) image.Image
}

// stages returns the render pipeline for a variant and polarity.
// Optional stages are left out when their parameter is zero.
func stages(v Variant, inverted bool, maxDim int) []stage {
	p := ParamsFor(v)
	var out []stage

	if f := p.UpscaleFactor(maxDim); f > 1 {
		out = append(out, stage{"upscale", func(img image.Image) image.Image {
			b := img.Bounds()
			w := int(math.Round(float64(b.Dx()) * f))
			h := int(math.Round(float64(b.Dy()) * f))
			return imaging.Resize(img, w, h, imaging.Lanczos)
		}})
	}

	out = append(out,
		stage{"desaturate", func(img image.Image) image.Image { return imaging.Grayscale(img) }},
		stage{"contrast", func(img image.Image) image.Image {
			res := image.Image(adjust.Contrast(img, p.Contrast-1))
			if p.Brightness != 0 {
				res = imaging.AdjustBrightness(res, p.Brightness*100)
			}
			return res
		}},
		stage{"exposure", func(img image.Image) image.Image { return exposure(img, p.ExposureEV) }},
		stage{"gamma", func(img image.Image) image.Image { return imaging.AdjustGamma(img, 1/p.GammaPower) }},
	)

	if p.NoiseRadius > 0 {
		out = append(out, stage{"noise", func(img image.Image) image.Image { return effect.Median(img, p.NoiseRadius) }})
	}
	if p.DilateRadius > 0 {
		out = append(out, stage{"dilate", func(img image.Image) image.Image { return effect.Dilate(img, p.DilateRadius) }})
	}

	out = append(out, stage{"unsharp", func(img image.Image) image.Image {
		return effect.UnsharpMask(img, p.UnsharpRadius, p.UnsharpAmount)
	}})

	if p.Shadows != 0 || p.Highlights != 0 {
		out = append(out, stage{"tone", func(img image.Image) image.Image { return tone(img, p.Shadows, p.Highlights) }})
	}
	if p.LumaSharpen > 0 {
		out = append(out, stage{"luma_sharpen", func(img image.Image) image.Image { return imaging.Sharpen(img, p.LumaSharpen) }})
	}

	out = append(out, stage{"clamp", clampChannels})
	if inverted {
		out = append(out, stage{"invert", func(img image.Image) image.Image { return imaging.Invert(img) }})
	}
	return out
}

// Render runs the pipeline of v over base.
//
// Returns the rendered image and the names of stages that failed and were
// skipped. The image is nil when every stage failed.
func Render(base image.Image, v Variant, inverted bool) (image.Image, []string) {
	b := base.Bounds()
	pipeline := stages(v, inverted, max(b.Dx(), b.Dy()))

	img := base
	var skipped []string
	for _, s := range pipeline {
		res, err := imgutil.SafeApply(img, s.fn)
		if err != nil {
			skipped = append(skipped, s.name)
			continue
		}
		img = res
	}

	if len(skipped) == len(pipeline) {
		return nil, skipped
	}
	return img, skipped
}

// exposure scales each channel by 2^ev.
func exposure(img image.Image, ev float64) *image.NRGBA {
	gain := math.Pow(2, ev)
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Min(255, float64(i)*gain+0.5))
	}
	return applyLUT(img, &lut)
}

// tone lifts shadows and pulls down highlights. A highlights value of 1
// leaves bright tones alone; smaller values compress them.
func tone(img image.Image, shadows, highlights float64) *image.NRGBA {
	var lut [256]uint8
	for i := range lut {
		v := float64(i) / 255
		lift := shadows * v * (1 - v) * (1 - v)
		cut := (1 - highlights) * v * v * (1 - v)
		lut[i] = uint8(math.Max(0, math.Min(1, v+lift-cut))*255 + 0.5)
	}
	return applyLUT(img, &lut)
}

func clampChannels(img image.Image) image.Image {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(min(max(i, clampLow), clampHigh))
	}
	return applyLUT(img, &lut)
}

func applyLUT(img image.Image, lut *[256]uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}
