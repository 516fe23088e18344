package candidate

import (
	"image"

	imgutil "github.com/ironsheep/screen-ocr/internal/imaging"
)

// darkThreshold is the average luminance below which inverted candidates
// are preferred.
const darkThreshold = 0.45

// Candidate is one rendering of the prepared image offered to the
// recognition engine.
type Candidate struct {
	Image image.Image
	Label string

	// Skipped lists render stages that failed for this candidate.
	Skipped []string
}

// Set is the output of Generate.
type Set struct {
	// Candidates in the order they should be tried. Never empty.
	Candidates []Candidate

	// DetectionImage is the image text regions are detected on.
	DetectionImage image.Image

	// PreferInverted reports whether the capture was judged dark.
	PreferInverted bool

	// Luminance is the average luminance of the prepared image.
	Luminance float64
}

// Labels returns the candidate labels in order.
func (s Set) Labels() []string {
	out := make([]string, len(s.Candidates))
	for i, c := range s.Candidates {
		out[i] = c.Label
	}
	return out
}

type plan struct {
	variant  Variant
	inverted bool
}

// order lists the variants to render for a mode, preferred polarity first.
func order(mode Mode, preferInverted bool) []plan {
	var out []plan
	if mode == ModeHigh {
		if preferInverted {
			out = append(out, plan{Micro, true}, plan{High, true})
		}
		out = append(out, plan{Micro, false}, plan{High, false})
		if !preferInverted {
			out = append(out, plan{Micro, true}, plan{High, true})
		}
	}
	return append(out, plan{Standard, preferInverted}, plan{Standard, !preferInverted})
}

// Generate renders the candidate list for base.
//
// base must be a valid, non-empty image (the output of imaging.Prepare).
// The Standard candidate of the preferred polarity doubles as the detection
// image; when it could not be rendered base is used instead.
func Generate(base image.Image, mode Mode) Set {
	lum := imgutil.AverageLuminance(base)
	preferInverted := lum < darkThreshold

	set := Set{PreferInverted: preferInverted, Luminance: lum}
	for _, s := range order(mode, preferInverted) {
		img, skipped := Render(base, s.variant, s.inverted)
		if img == nil {
			continue
		}
		c := Candidate{Image: img, Label: Label(s.variant, s.inverted), Skipped: skipped}
		set.Candidates = append(set.Candidates, c)
		if s.variant == Standard && s.inverted == preferInverted {
			set.DetectionImage = img
		}
	}

	set.Candidates = append(set.Candidates, Candidate{Image: base, Label: OriginalLabel})
	if set.DetectionImage == nil {
		set.DetectionImage = base
	}
	return set
}
