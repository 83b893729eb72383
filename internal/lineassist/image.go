package lineassist

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/zumenkit/schedscan/internal/geometry"
)

const (
	adaptiveWindow = 31
	adaptiveOffset = 9

	imageMinRunDivisor = 18
	imageMinRunFloor   = 12

	// Minimum dark pixels in a column before it can vote as a line,
	// after short runs are removed.
	imageColumnVotes = 30

	imageClusterTol = 10.0
)

// ImageResult carries detected lines plus whether the scan hit its
// latency budget before finishing.
type ImageResult struct {
	Lines    []VerticalLine
	TimedOut bool
}

// ImageLineDetector scans a rendered page image for vertical rules.
// It is injected so scanned-only documents can run with the real
// detector while tests and vector-rich documents use the noop.
type ImageLineDetector interface {
	DetectVerticalLines(ctx context.Context, img image.Image, section geometry.Rect, budget time.Duration) (ImageResult, error)
}

// NoopDetector always reports no lines. Used when line assist is off
// or as the degraded fallback when image scanning is unavailable.
type NoopDetector struct{}

func (NoopDetector) DetectVerticalLines(context.Context, image.Image, geometry.Rect, time.Duration) (ImageResult, error) {
	return ImageResult{}, nil
}

// GrayscaleDetector finds vertical rules by adaptive thresholding the
// section crop, suppressing runs shorter than a vertical kernel, and
// clustering the surviving columns.
type GrayscaleDetector struct{}

func (GrayscaleDetector) DetectVerticalLines(ctx context.Context, img image.Image, section geometry.Rect, budget time.Duration) (ImageResult, error) {
	start := time.Now()

	bounds := img.Bounds()
	x0 := geometry.ClampInt(int(section.X0), bounds.Min.X, bounds.Max.X)
	y0 := geometry.ClampInt(int(section.Y0), bounds.Min.Y, bounds.Max.Y)
	x1 := geometry.ClampInt(int(math.Ceil(section.X1)), bounds.Min.X, bounds.Max.X)
	y1 := geometry.ClampInt(int(math.Ceil(section.Y1)), bounds.Min.Y, bounds.Max.Y)
	w := x1 - x0
	h := y1 - y0
	if w < 2 || h < 2 {
		return ImageResult{}, nil
	}

	gray := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray[y*w+x] = toGray(img.At(x0+x, y0+y))
		}
	}

	dark := adaptiveThreshold(gray, w, h)

	minRun := h / imageMinRunDivisor
	if minRun < imageMinRunFloor {
		minRun = imageMinRunFloor
	}
	minLineHeight := float64(h) * minLineHeightRatio

	type columnHit struct {
		x      int
		top    int
		bottom int
	}
	var hits []columnHit
	timedOut := false

	for x := 0; x < w; x++ {
		if x%64 == 0 {
			if err := ctx.Err(); err != nil {
				return ImageResult{Lines: nil, TimedOut: true}, nil
			}
			if budget > 0 && time.Since(start) > budget {
				timedOut = true
				break
			}
		}

		votes := 0
		top, bottom := -1, -1
		runStart := -1
		for y := 0; y <= h; y++ {
			isDark := y < h && dark[y*w+x]
			if isDark {
				if runStart < 0 {
					runStart = y
				}
				continue
			}
			if runStart >= 0 {
				runLen := y - runStart
				// Vertical opening: short runs are glyph strokes,
				// not table rules.
				if runLen >= minRun {
					votes += runLen
					if top < 0 || runStart < top {
						top = runStart
					}
					if y-1 > bottom {
						bottom = y - 1
					}
				}
				runStart = -1
			}
		}

		if votes < imageColumnVotes || top < 0 {
			continue
		}
		if float64(bottom-top) < minLineHeight {
			continue
		}
		hits = append(hits, columnHit{x: x, top: top, bottom: bottom})
	}

	var raw []VerticalLine
	for _, hit := range hits {
		raw = append(raw, VerticalLine{
			X:      float64(x0 + hit.x),
			Y0:     float64(y0 + hit.top),
			Y1:     float64(y0 + hit.bottom),
			Source: "image",
		})
	}

	return ImageResult{
		Lines:    clusterLines(raw, imageClusterTol),
		TimedOut: timedOut,
	}, nil
}

func toGray(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	// BT.601 luma, same weighting the png grayscale conversion uses.
	return uint8((299*r + 587*g + 114*b) / 1000 >> 8)
}

// adaptiveThreshold marks a pixel dark when it is adaptiveOffset below
// the mean of its adaptiveWindow neighborhood, computed over a summed
// area table.
func adaptiveThreshold(gray []uint8, w, h int) []bool {
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(gray[y*w+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := adaptiveWindow / 2
	dark := make([]bool, w*h)
	for y := 0; y < h; y++ {
		yLo := geometry.ClampInt(y-half, 0, h-1)
		yHi := geometry.ClampInt(y+half, 0, h-1)
		for x := 0; x < w; x++ {
			xLo := geometry.ClampInt(x-half, 0, w-1)
			xHi := geometry.ClampInt(x+half, 0, w-1)
			count := int64((yHi - yLo + 1) * (xHi - xLo + 1))
			sum := integral[(yHi+1)*(w+1)+xHi+1] -
				integral[yLo*(w+1)+xHi+1] -
				integral[(yHi+1)*(w+1)+xLo] +
				integral[yLo*(w+1)+xLo]
			mean := sum / count
			dark[y*w+x] = int64(gray[y*w+x]) < mean-adaptiveOffset
		}
	}
	return dark
}
