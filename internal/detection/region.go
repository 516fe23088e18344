package detection

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	imgutil "github.com/ironsheep/screen-ocr/internal/imaging"
)

const (
	// MaxRegions caps the number of regions DetectRegions returns.
	MaxRegions = 24

	minBoxSide      = 6.0
	minPadding      = 6.0
	paddingFraction = 0.08
	mergeDistance   = 12.0
)

// Box is a normalized bounding box with a bottom-left origin.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxFromPixels converts a pixel rectangle inside bounds into a Box.
func BoxFromPixels(r, bounds image.Rectangle) Box {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w == 0 || h == 0 {
		return Box{}
	}
	return Box{
		X:      float64(r.Min.X-bounds.Min.X) / w,
		Y:      float64(bounds.Max.Y-r.Max.Y) / h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}
}

// Region is a normalized rectangle believed to contain a block of text.
// The origin is the top-left corner of the image.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the region as an imaging.NormalizedRect for cropping.
func (r Region) Rect() imgutil.NormalizedRect {
	return imgutil.NormalizedRect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Pixels returns the region in pixel coordinates of img.
func (r Region) Pixels(img image.Image) image.Rectangle {
	return imgutil.PixelRect(img, r.Rect())
}

// BlockDetector finds coarse text blocks. Character-level boxes are not
// required.
type BlockDetector interface {
	DetectTextBlocks(ctx context.Context, img image.Image) ([]Box, error)
}

// DetectRegions runs det on img and returns at most MaxRegions merged
// regions in reading order.
//
// When the detector fails the error is returned along with no regions;
// callers are expected to log it and continue without regions.
func DetectRegions(ctx context.Context, det BlockDetector, img image.Image) ([]Region, error) {
	if det == nil {
		return nil, nil
	}
	if err := imgutil.Validate(img); err != nil {
		return nil, fmt.Errorf("detection image: %w", err)
	}

	boxes, err := detectSafely(ctx, det, img)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	bounds := rect{0, 0, w, h}

	rects := make([]rect, 0, len(boxes))
	for _, box := range boxes {
		r := rect{
			minX: box.X * w,
			minY: (1 - box.Y - box.Height) * h,
			maxX: (box.X + box.Width) * w,
			maxY: (1 - box.Y) * h,
		}
		if r.width() <= minBoxSide || r.height() <= minBoxSide {
			continue
		}
		r = r.pad(bounds)
		if r.width() <= 0 || r.height() <= 0 {
			continue
		}
		rects = append(rects, r)
	}

	merged := mergeRects(rects, bounds)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].minY != merged[j].minY {
			return merged[i].minY < merged[j].minY
		}
		return merged[i].minX < merged[j].minX
	})
	// Past the cap, regions later in reading order are dropped.
	if len(merged) > MaxRegions {
		merged = merged[:MaxRegions]
	}

	regions := make([]Region, 0, len(merged))
	for _, r := range merged {
		regions = append(regions, Region{
			X:      r.minX / w,
			Y:      r.minY / h,
			Width:  r.width() / w,
			Height: r.height() / h,
		})
	}
	return regions, nil
}

// detectSafely converts a detector panic into an error.
func detectSafely(ctx context.Context, det BlockDetector, img image.Image) (boxes []Box, err error) {
	defer func() {
		if r := recover(); r != nil {
			boxes, err = nil, fmt.Errorf("text block detector panicked: %v", r)
		}
	}()
	return det.DetectTextBlocks(ctx, img)
}

// rect is a pixel-space rectangle with fractional coordinates.
type rect struct {
	minX, minY, maxX, maxY float64
}

func (r rect) width() float64  { return r.maxX - r.minX }
func (r rect) height() float64 { return r.maxY - r.minY }
func (r rect) area() float64   { return r.width() * r.height() }

func (r rect) pad(bounds rect) rect {
	p := math.Max(minPadding, math.Min(r.width(), r.height())*paddingFraction)
	return rect{r.minX - p, r.minY - p, r.maxX + p, r.maxY + p}.intersect(bounds)
}

func (r rect) intersect(o rect) rect {
	out := rect{
		minX: math.Max(r.minX, o.minX),
		minY: math.Max(r.minY, o.minY),
		maxX: math.Min(r.maxX, o.maxX),
		maxY: math.Min(r.maxY, o.maxY),
	}
	if out.maxX < out.minX {
		out.maxX = out.minX
	}
	if out.maxY < out.minY {
		out.maxY = out.minY
	}
	return out
}

func (r rect) union(o rect) rect {
	return rect{
		minX: math.Min(r.minX, o.minX),
		minY: math.Min(r.minY, o.minY),
		maxX: math.Max(r.maxX, o.maxX),
		maxY: math.Max(r.maxY, o.maxY),
	}
}

// distance is the gap between the nearest edges of r and o; zero when they
// overlap or touch.
func (r rect) distance(o rect) float64 {
	dx := math.Max(0, math.Max(o.minX-r.maxX, r.minX-o.maxX))
	dy := math.Max(0, math.Max(o.minY-r.maxY, r.minY-o.maxY))
	return math.Hypot(dx, dy)
}

// less orders rects by area descending, then position and size, so that
// merging does not depend on input order.
func (r rect) less(o rect) bool {
	if a, b := r.area(), o.area(); a != b {
		return a > b
	}
	if r.minY != o.minY {
		return r.minY < o.minY
	}
	if r.minX != o.minX {
		return r.minX < o.minX
	}
	if r.maxX != o.maxX {
		return r.maxX < o.maxX
	}
	return r.maxY < o.maxY
}

// mergeRects greedily agglomerates rects, largest first. Each seed absorbs
// every remaining rect within mergeDistance until nothing changes.
func mergeRects(rects []rect, bounds rect) []rect {
	remaining := append([]rect(nil), rects...)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].less(remaining[j]) })

	var merged []rect
	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]

		for changed := true; changed; {
			changed = false
			kept := make([]rect, 0, len(remaining))
			for _, r := range remaining {
				if current.distance(r) < mergeDistance {
					current = current.union(r).intersect(bounds)
					changed = true
					continue
				}
				kept = append(kept, r)
			}
			remaining = kept
		}
		merged = append(merged, current)
	}
	return merged
}
