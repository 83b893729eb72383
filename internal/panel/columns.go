package panel

import (
	"sort"
	"strings"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/ocr"
)

// Column center ratios used when no header keywords can anchor the
// bounds. Tuned on the schedule sheets this pipeline targets.
var defaultCenterRatios = []float64{0.24, 0.35, 0.40, 0.44}

// ColumnBounds are the vertical cut positions of the four-column grid.
type ColumnBounds struct {
	XMin    float64
	B12     float64
	B23     float64
	B34     float64
	XMax    float64
	HeaderY float64
}

func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

type xPick int

const (
	pickMedian xPick = iota
	pickMin
	pickMax
)

// InferColumnBounds locates the column cuts from the header keywords.
// Each keyword's word centers vote for its column; monotonic clamps
// repair overlapping picks, and the piping/size column caps the right
// edge when present.
func InferColumnBounds(words []ocr.WordBox, sideWidth float64) ColumnBounds {
	rows := cluster.ByY(words, headerYCluster)
	if len(rows) == 0 {
		return boundsFromRatios(sideWidth)
	}

	best := -1
	bestScore := -1
	for i, row := range rows {
		s := headerScore(row)
		// Prefer the highest score; ties go to the upper row.
		if s > bestScore {
			best = i
			bestScore = s
		}
	}
	if best < 0 || bestScore < 2 {
		return boundsFromRatios(sideWidth)
	}
	header := rows[best]

	headerXMax := sideWidth * 0.55

	findX := func(predicate func(string) bool, xMin, xMax float64, pick xPick) (float64, bool) {
		var values []float64
		for _, w := range header.Words {
			t := strings.ToLower(ocr.NormalizeText(w.Text))
			if xMin > 0 && w.CenterX() <= xMin {
				continue
			}
			if xMax > 0 && w.CenterX() >= xMax {
				continue
			}
			if predicate(t) {
				values = append(values, w.CenterX())
			}
		}
		if len(values) == 0 {
			return 0, false
		}
		switch pick {
		case pickMin:
			min := values[0]
			for _, v := range values[1:] {
				if v < min {
					min = v
				}
			}
			return min, true
		case pickMax:
			max := values[0]
			for _, v := range values[1:] {
				if v > max {
					max = v
				}
			}
			return max, true
		default:
			m, _ := median(values)
			return m, true
		}
	}

	c1, ok1 := findX(func(t string) bool { return strings.Contains(t, "記号") }, 0, headerXMax, pickMax)
	if !ok1 {
		c1, ok1 = findX(func(t string) bool { return strings.Contains(t, "機器") }, 0, headerXMax, pickMax)
	}

	c2, ok2 := findX(func(t string) bool { return strings.Contains(t, "名称") }, c1+60, headerXMax, pickMax)
	if !ok2 {
		c2, ok2 = findX(func(t string) bool {
			return strings.Contains(t, "名") || strings.Contains(t, "称")
		}, c1+60, headerXMax, pickMedian)
	}

	c3, ok3 := findX(func(t string) bool {
		return strings.Contains(t, "v") || strings.Contains(t, "電圧") || t == "電"
	}, c2+20, headerXMax, pickMin)

	c4, ok4 := findX(func(t string) bool { return strings.Contains(t, "kw") }, c3+20, headerXMax, pickMin)
	if !ok4 {
		c4, ok4 = findX(func(t string) bool { return strings.Contains(t, "容量") }, c3+20, headerXMax, pickMin)
	}

	c5, ok5 := findX(func(t string) bool {
		return strings.Contains(t, "配管") || strings.Contains(t, "配線") ||
			strings.Contains(t, "サイズ") || strings.Contains(t, "size") ||
			t == "配" || t == "線" || t == "サ" || t == "ズ"
	}, c4+30, 0, pickMin)

	centers := []float64{c1, c2, c3, c4}
	found := []bool{ok1, ok2, ok3, ok4}
	for i := range centers {
		if !found[i] {
			centers[i] = sideWidth * defaultCenterRatios[i]
		}
	}

	c1f, c2f, c3f, c4f := centers[0], centers[1], centers[2], centers[3]
	if c2f <= c1f+40 {
		c2f = c1f + 120
	}
	if c3f <= c2f+30 {
		c3f = c2f + 90
	}
	if c4f <= c3f+20 {
		c4f = c3f + 80
	}

	bounds := BuildBoundsFromCenters([]float64{c1f, c2f, c3f, c4f}, header.Y, sideWidth)
	if ok5 && c5 > c4f+35 {
		rightGuard := (c4f + c5) / 2
		if rightGuard > bounds.B34+15 && rightGuard < bounds.XMax {
			bounds.XMax = rightGuard
		}
	}
	return bounds
}

func boundsFromRatios(sideWidth float64) ColumnBounds {
	centers := make([]float64, len(defaultCenterRatios))
	for i, r := range defaultCenterRatios {
		centers[i] = sideWidth * r
	}
	return BuildBoundsFromCenters(centers, 0, sideWidth)
}

// BuildBoundsFromCenters derives cut positions from four column
// centers.
func BuildBoundsFromCenters(centers []float64, headerY, sideWidth float64) ColumnBounds {
	c1, c2, c3, c4 := centers[0], centers[1], centers[2], centers[3]
	b12 := (c1 + c2) / 2
	b23 := (c2 + c3) / 2
	b34 := (c3 + c4) / 2

	xMin := c1 - 90
	if xMin < 0 {
		xMin = 0
	}
	xMax := c4 + 90
	if xMax > sideWidth {
		xMax = sideWidth
	}
	if xMax <= b34 {
		xMax = b34 + 60
		if xMax > sideWidth {
			xMax = sideWidth
		}
	}

	return ColumnBounds{
		XMin:    xMin,
		B12:     b12,
		B23:     b23,
		B34:     b34,
		XMax:    xMax,
		HeaderY: headerY,
	}
}

// AssignColumn maps an x center to its column name, or "" when the
// position is outside the table.
func AssignColumn(x float64, bounds ColumnBounds) string {
	if x < bounds.XMin || x > bounds.XMax {
		return ""
	}
	switch {
	case x < bounds.B12:
		return coreColumns[0]
	case x < bounds.B23:
		return coreColumns[1]
	case x < bounds.B34:
		return coreColumns[2]
	default:
		return coreColumns[3]
	}
}
