package candidate

// Mode selects which variants Generate produces.
type Mode int

const (
	// ModeStandard renders only the Standard variant in both polarities.
	ModeStandard Mode = iota

	// ModeHigh additionally renders the Micro and High variants.
	ModeHigh
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	if m == ModeHigh {
		return "high"
	}
	return "standard"
}

// Variant is an enhancement tier.
type Variant int

const (
	Standard Variant = iota
	High
	Micro
)

// String returns the label prefix of the variant.
func (v Variant) String() string {
	switch v {
	case High:
		return "high"
	case Micro:
		return "micro"
	default:
		return "standard"
	}
}

// Label builds the candidate label for a variant and polarity,
// e.g. "high_inv".
func Label(v Variant, inverted bool) string {
	if inverted {
		return v.String() + "_inv"
	}
	return v.String()
}

// OriginalLabel tags the unmodified prepared image.
const OriginalLabel = "original"

// upscaleCeiling is the largest side below which non-Standard variants are
// upscaled before enhancement.
const upscaleCeiling = 1400

// UpscaleTier applies Factor to images whose larger side is below Below.
// A zero Below matches every size.
type UpscaleTier struct {
	Below  int
	Factor float64
}

// Params holds the numeric recipe of a variant. Zero values disable the
// corresponding optional stage.
type Params struct {
	// Upscale tiers, checked in order. Empty for Standard.
	Upscale []UpscaleTier

	// Contrast is a multiplier around mid-gray (1.0 = unchanged).
	Contrast float64

	// Brightness is an offset in [−1,1] of the full range.
	Brightness float64

	// ExposureEV multiplies channel values by 2^EV.
	ExposureEV float64

	// GammaPower maps each channel v to v^GammaPower.
	GammaPower float64

	// NoiseRadius is the median filter radius.
	NoiseRadius float64

	// DilateRadius is the morphology-max radius.
	DilateRadius float64

	UnsharpRadius float64
	UnsharpAmount float64

	// Shadows lifts dark tones, Highlights keeps bright tones (1.0 = unchanged).
	Shadows    float64
	Highlights float64

	// LumaSharpen is the sigma of an extra sharpen pass.
	LumaSharpen float64
}

var variantParams = map[Variant]Params{
	Standard: {
		Contrast:      1.2,
		ExposureEV:    0.1,
		GammaPower:    0.95,
		UnsharpRadius: 1.5,
		UnsharpAmount: 0.4,
	},
	High: {
		Upscale:       []UpscaleTier{{Below: 700, Factor: 2.5}, {Below: 1000, Factor: 2.0}, {Factor: 1.5}},
		Contrast:      1.5,
		Brightness:    0.05,
		ExposureEV:    0.2,
		GammaPower:    0.88,
		NoiseRadius:   1,
		DilateRadius:  1.0,
		UnsharpRadius: 2.5,
		UnsharpAmount: 0.6,
		Shadows:       0.6,
		Highlights:    0.2,
	},
	Micro: {
		Upscale:       []UpscaleTier{{Below: 600, Factor: 3.2}, {Below: 900, Factor: 2.6}, {Factor: 2.0}},
		Contrast:      2.0,
		Brightness:    0.06,
		ExposureEV:    0.25,
		GammaPower:    0.85,
		NoiseRadius:   1,
		DilateRadius:  0.8,
		UnsharpRadius: 2.0,
		UnsharpAmount: 0.75,
		Shadows:       0.55,
		Highlights:    0.15,
		LumaSharpen:   0.7,
	},
}

// ParamsFor returns the recipe of v.
func ParamsFor(v Variant) Params {
	return variantParams[v]
}

// UpscaleFactor returns the factor applied to an image whose larger side is
// maxDim, or 1 when no upscale applies.
func (p Params) UpscaleFactor(maxDim int) float64 {
	if len(p.Upscale) == 0 || maxDim >= upscaleCeiling {
		return 1
	}
	for _, t := range p.Upscale {
		if t.Below == 0 || maxDim < t.Below {
			return t.Factor
		}
	}
	return 1
}
