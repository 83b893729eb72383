// Package cluster holds the positional grouping primitives shared by
// every schedule extractor: y-row clustering, x-gap splitting and
// 1-D center clustering.
package cluster

import (
	"sort"

	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/ocr"
)

// Row is a horizontal band of words. Y is the running mean of the
// member word centers, updated as words join.
type Row struct {
	Y     float64
	Words []ocr.WordBox
}

func (r *Row) add(w ocr.WordBox) {
	r.Words = append(r.Words, w)
	n := float64(len(r.Words))
	r.Y = (r.Y*(n-1) + w.CenterY()) / n
}

// Text joins the row's word texts left to right.
func (r Row) Text() string { return ocr.JoinRowText(r.Words) }

// CompactText joins the row's word texts with whitespace removed.
func (r Row) CompactText() string { return ocr.CompactText(r.Text()) }

// ByY groups words into rows with a single greedy pass. Words are
// visited in y order; each joins the first row whose running mean is
// within tol of its center, otherwise a new row starts. A tall word
// can drag a row's mean toward itself; the original pipeline behaves
// the same way and downstream code tolerates it.
func ByY(words []ocr.WordBox, tol float64) []Row {
	sorted := make([]ocr.WordBox, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CenterY() < sorted[j].CenterY()
	})

	var rows []*Row
	for _, w := range sorted {
		placed := false
		for _, row := range rows {
			if geometry.Abs(w.CenterY()-row.Y) <= tol {
				row.add(w)
				placed = true
				break
			}
		}
		if !placed {
			row := &Row{}
			row.add(w)
			rows = append(rows, row)
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row.Words, func(i, j int) bool {
			return row.Words[i].X0 < row.Words[j].X0
		})
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}

// SplitByXGap breaks a row wherever the horizontal gap between
// consecutive words exceeds maxGap. Words must already be x-sorted.
func SplitByXGap(row Row, maxGap float64) []Row {
	if len(row.Words) == 0 {
		return nil
	}
	var parts []Row
	current := Row{}
	current.add(row.Words[0])
	prevRight := row.Words[0].X1
	for _, w := range row.Words[1:] {
		if w.X0-prevRight > maxGap {
			parts = append(parts, current)
			current = Row{}
		}
		current.add(w)
		prevRight = w.X1
	}
	parts = append(parts, current)
	return parts
}

// Centers clusters 1-D positions greedily into running-mean centers
// and returns them sorted ascending.
func Centers(values []float64, tol float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	type group struct {
		center float64
		count  int
	}
	var groups []*group
	for _, v := range sorted {
		placed := false
		for _, g := range groups {
			if geometry.Abs(v-g.center) <= tol {
				g.count++
				g.center += (v - g.center) / float64(g.count)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &group{center: v, count: 1})
		}
	}

	centers := make([]float64, 0, len(groups))
	for _, g := range groups {
		centers = append(centers, g.center)
	}
	sort.Float64s(centers)
	return centers
}

// NearestCenter returns the index of the center closest to x, or -1
// when centers is empty.
func NearestCenter(centers []float64, x float64) int {
	best := -1
	bestDist := 0.0
	for i, c := range centers {
		d := geometry.Abs(x - c)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
