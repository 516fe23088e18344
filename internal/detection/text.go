package detection

import (
	"context"
	"image"
	"math"

	imgutil "github.com/ironsheep/screen-ocr/internal/imaging"
)

// Default thresholds of EdgeDensityDetector.
const (
	DefaultMinConfidence = 0.3
	defaultEdgeLow       = 50
	defaultEdgeHigh      = 150
)

// windowSizes are the sliding windows tried, from very small to large text.
var windowSizes = []struct{ w, h int }{
	{80, 25},
	{100, 30},
	{150, 40},
	{200, 50},
}

// EdgeDensityDetector is a BlockDetector based on edge-density heuristics.
//
// Text has a characteristic medium edge density (between 5% and 40% of
// pixels) and more horizontal than vertical edge runs. Windows that match
// are merged into blocks.
type EdgeDensityDetector struct {
	// MinConfidence is the window score below which a window is ignored.
	// Zero selects DefaultMinConfidence.
	MinConfidence float64
}

// DetectTextBlocks implements BlockDetector.
func (d EdgeDensityDetector) DetectTextBlocks(ctx context.Context, img image.Image) ([]Box, error) {
	if err := imgutil.Validate(img); err != nil {
		return nil, err
	}
	minConfidence := d.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	edges := imgutil.DetectEdges(img, defaultEdgeLow, defaultEdgeHigh)
	sums := integral(edges)

	var windows []image.Rectangle
	for _, ws := range windowSizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stepX, stepY := ws.w/2, ws.h/2

		for y := 0; y <= height-ws.h; y += stepY {
			for x := 0; x <= width-ws.w; x += stepX {
				count := sums[y+ws.h][x+ws.w] - sums[y][x+ws.w] - sums[y+ws.h][x] + sums[y][x]
				density := float64(count) / float64(ws.w*ws.h)
				if density < 0.05 || density > 0.4 {
					continue
				}

				confidence := horizontalScore(edges, x, y, ws.w, ws.h) * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence >= minConfidence {
					windows = append(windows, image.Rect(x, y, x+ws.w, y+ws.h))
				}
			}
		}
	}

	blocks := mergeOverlapping(windows)
	origin := image.Rect(0, 0, width, height)
	boxes := make([]Box, 0, len(blocks))
	for _, r := range blocks {
		boxes = append(boxes, BoxFromPixels(r, origin))
	}
	return boxes, nil
}

// integral builds a summed-area table of edge pixels, one larger than the map
// in each direction.
func integral(edges imgutil.EdgeMap) [][]int {
	w, h := edges.Width(), edges.Height()
	sums := make([][]int, h+1)
	sums[0] = make([]int, w+1)
	for y := 0; y < h; y++ {
		sums[y+1] = make([]int, w+1)
		row := 0
		for x := 0; x < w; x++ {
			if edges[y][x] {
				row++
			}
			sums[y+1][x+1] = sums[y][x+1] + row
		}
	}
	return sums
}

// horizontalScore is the share of horizontal edge runs among all runs in
// the window.
func horizontalScore(edges imgutil.EdgeMap, x, y, w, h int) float64 {
	horizontalRuns := 0
	verticalRuns := 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlapping unions overlapping windows until no two results overlap.
func mergeOverlapping(windows []image.Rectangle) []image.Rectangle {
	merged := make([]image.Rectangle, 0, len(windows))
	for _, w := range windows {
		merged = append(merged, w)
		for changed := true; changed; {
			changed = false
			last := merged[len(merged)-1]
			for i := 0; i < len(merged)-1; i++ {
				if merged[i].Overlaps(last) {
					merged[i] = merged[i].Union(last)
					merged[len(merged)-1] = merged[i]
					merged = append(merged[:i], merged[i+1:]...)
					changed = true
					break
				}
			}
		}
	}
	return merged
}
