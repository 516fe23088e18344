// Package ocr orchestrates text recognition over a captured screen region.
//
// A Service prepares the capture, renders the candidate images, detects text
// regions once, and then runs every candidate through a three-stage strategy
// against a Recognizer:
//
//  1. Quick pass: fast recognition on the whole image with a higher minimum
//     text height. A strong result ends the candidate.
//  2. Region pass: each detected region is recognized with the ranked
//     configs until one returns text; region texts are newline-joined.
//     A strong result ends the candidate.
//  3. Full pass: the ranked configs, each tried with every language mode,
//     on the whole image until one returns text.
//
// Candidates run in fixed-size batches. All candidates of a batch run
// concurrently; once a batch yields a strong result no further batch is
// started.
//
// # Scoring
//
// Text quality is measured by the number of alphanumeric characters (any
// script) and their share of all non-whitespace characters. "Strong" text
// stops the search; "good" text is eligible as a best result. The default
// thresholds are 8 letters with a 0.6 ratio for strong and a 0.2 ratio for
// good; both are configurable through Thresholds.
//
// # Error Handling
//
// Unusable input is reported to the caller as an *Error with CodeInput, and
// a cancelled context ends the run with ctx's error. Engine and detection
// failures are logged and degrade to empty text or no regions. No text found is not an error: PerformOCR returns an
// empty string.
//
// # Thread Safety
//
// A Service is meant to be created once and shared. All methods are safe for
// concurrent use as long as the Recognizer and BlockDetector are.
package ocr
