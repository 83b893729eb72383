package lineassist

import (
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/zumenkit/schedscan/internal/geometry"
)

const (
	// Thin stroked rectangles in the content stream are the usual way
	// CAD exports draw table rules.
	vectorMaxWidthPx = 3.0

	vectorSectionSlackX = 8.0
	vectorSectionSlackY = 40.0

	vectorClusterTol = 8.0
)

// CollectVectorLines reads the page content stream and returns the
// near-vertical strokes inside section, converted to page pixels.
// pageHeightPt flips the PDF bottom-left origin to the raster's
// top-left one; dpi fixes the scale.
func CollectVectorLines(pdfPath string, page int, section geometry.Rect, pageHeightPt float64, dpi int) ([]VerticalLine, error) {
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer f.Close()

	if page < 1 || page > reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range", page)
	}

	scale := float64(dpi) / 72.0
	content := reader.Page(page).Content()

	var raw []VerticalLine
	for _, r := range content.Rect {
		x0 := r.Min.X * scale
		x1 := r.Max.X * scale
		// PDF y grows upward; flip to raster coordinates.
		yTop := (pageHeightPt - r.Max.Y) * scale
		yBottom := (pageHeightPt - r.Min.Y) * scale
		if x1-x0 > vectorMaxWidthPx {
			continue
		}
		if yBottom-yTop < section.Height()*minLineHeightRatio {
			continue
		}
		x := (x0 + x1) / 2
		if x < section.X0-vectorSectionSlackX || x > section.X1+vectorSectionSlackX {
			continue
		}
		if yBottom < section.Y0-vectorSectionSlackY || yTop > section.Y1+vectorSectionSlackY {
			continue
		}
		raw = append(raw, VerticalLine{X: x, Y0: yTop, Y1: yBottom, Source: "vector"})
	}

	return clusterLines(raw, vectorClusterTol), nil
}

// clusterLines folds lines whose x positions sit within tol into one,
// keeping the union of their vertical extents.
func clusterLines(lines []VerticalLine, tol float64) []VerticalLine {
	if len(lines) == 0 {
		return nil
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].X < lines[j].X })

	var out []VerticalLine
	for _, l := range lines {
		if len(out) > 0 && l.X-out[len(out)-1].X <= tol {
			last := &out[len(out)-1]
			last.Y0 = geometry.Min(last.Y0, l.Y0)
			last.Y1 = geometry.Max(last.Y1, l.Y1)
			continue
		}
		out = append(out, l)
	}
	return out
}
