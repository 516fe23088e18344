// Package detection finds coarse text blocks in an image and turns them into
// a compact, ordered list of regions that scope recognition.
//
// # Detectors
//
// Block detection is a capability behind the BlockDetector interface. The
// tesseract package provides an engine-backed implementation; this package
// ships EdgeDensityDetector, a pure-Go heuristic that slides windows over a
// Canny edge map and keeps windows whose edge density and horizontal
// structure look like text.
//
// # Region Pipeline
//
// DetectRegions post-processes detector output:
//
//  1. Boxes are converted from normalized bottom-left coordinates to pixels
//  2. Boxes 6 px or smaller on either side are dropped
//  3. Each box is padded by max(6, 8% of its smaller side)
//  4. Boxes that intersect or lie within 12 px of each other are merged,
//     largest first
//  5. Regions are sorted into reading order and capped at MaxRegions
//  6. Regions are normalized back to [0,1] with a top-left origin
//
// # Coordinate System
//
// Box uses the bottom-left origin reported by platform text detectors.
// Region uses the image convention: origin at the top-left corner, Y
// increasing downward. All Region values lie within [0,1].
//
// # Failure Handling
//
// A failing or panicking detector yields no regions. Recognition then falls
// back to whole-image passes.
package detection
