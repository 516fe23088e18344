// Package imaging provides the image handling that sits in front of text recognition.
//
// This package decodes and caches captured images, normalizes them for OCR
// (downscaling oversized captures and applying a light contrast/sharpen pass),
// and offers the small pixel utilities the rest of the pipeline shares:
// average luminance, normalized crops, edge maps and debug overlays.
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// Pixel coordinates are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Normalized coordinates (used for recognition regions) are fractions of the
// image width and height in [0,1], also with a top-left origin.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and never mutate their input, so the same image may be shared
// between goroutines as long as nobody writes to it.
//
// # Failure Handling
//
// Preparation never fails: a stage that panics or yields an empty image is
// skipped and its input is passed through. Only decoding reports errors,
// because an unreadable input is the one condition the caller must see.
//
// # Performance Considerations
//
// Captures larger than the working dimension (2600 px by default) are
// downscaled before anything else runs, which bounds the cost of every later
// stage. Use Evict() or Clear() on the cache in long-running processes.
package imaging
