// Package candidate derives the ordered set of enhanced image variants that
// the recognition strategy tries one after another.
//
// # Variants
//
// Three enhancement tiers exist, in increasing aggressiveness:
//
//   - Standard: desaturate, mild contrast, gamma and unsharp mask
//   - High: upscaled small captures, stronger contrast, median noise
//     reduction, dilation and a shadow/highlight tone curve
//   - Micro: the High recipe tuned for very small text, with a larger
//     upscale and an extra luminance sharpen
//
// Each variant may be rendered in either polarity. Dark captures (average
// luminance below 0.45) prefer the inverted polarity, so those candidates are
// tried first.
//
// # Failure Handling
//
// Every render stage runs through imaging.SafeApply. A failing stage is
// skipped and recorded in Candidate.Skipped; the remaining stages still run.
// The unmodified "original" candidate is always appended, so Generate never
// returns an empty list.
//
// # Thread Safety
//
// Generate and Render are pure functions of their inputs and may be called
// from multiple goroutines.
package candidate
