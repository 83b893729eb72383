package luminaire

import (
	"sort"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/ocr"
)

const (
	blockClusterTolerance = 220.0

	sectionMarginX = 20.0
	sectionMarginY = 14.0

	// A continuation group only inherits from a source row group this
	// close above it.
	propagationMaxRowGap = 120.0
)

// AssignBlockIndexes sets each candidate's column block to the nearest
// center. Mutates the slice in place; centers come either from word
// clustering or from adopted ruled lines.
func AssignBlockIndexes(candidates []Candidate, centers []float64) {
	for i := range candidates {
		if len(centers) == 0 {
			candidates[i].Block = 0
			continue
		}
		candidates[i].Block = cluster.NearestCenter(centers, candidates[i].RowX)
	}
}

// BlockCenters clusters candidate x positions into column centers.
// Rows that carry a symbol anchor the clustering; symbol-less rows
// only participate when no anchored row exists.
func BlockCenters(candidates []Candidate) []float64 {
	var xs []float64
	for _, c := range candidates {
		if c.Equipment != "" {
			xs = append(xs, c.RowX)
		}
	}
	if len(xs) == 0 {
		for _, c := range candidates {
			xs = append(xs, c.RowX)
		}
	}
	return cluster.Centers(xs, blockClusterTolerance)
}

// SectionBounds computes the pixel envelope of a section's rows with
// a small margin, clamped to the page. Degenerate sections fall back
// to the full page.
func SectionBounds(rows []cluster.Row, pageW, pageH float64) geometry.Rect {
	var words []ocr.WordBox
	for _, row := range rows {
		words = append(words, row.Words...)
	}
	if len(words) == 0 {
		return geometry.Rect{X0: 0, Y0: 0, X1: pageW, Y1: pageH}
	}

	bounds := words[0].Rect()
	for _, w := range words[1:] {
		bounds = bounds.Union(w.Rect())
	}
	out := geometry.Rect{
		X0: geometry.Max(0, bounds.X0-sectionMarginX),
		X1: geometry.Min(pageW, bounds.X1+sectionMarginX),
		Y0: geometry.Max(0, bounds.Y0-sectionMarginY),
		Y1: geometry.Min(pageH, bounds.Y1+sectionMarginY),
	}
	if out.X1 <= out.X0 {
		out.X0, out.X1 = 0, pageW
	}
	if out.Y1 <= out.Y0 {
		out.Y0, out.Y1 = 0, pageH
	}
	return out
}

// CountUnresolved counts rows that have a model but no symbol, the
// rows propagation failed to resolve.
func CountUnresolved(candidates []Candidate) int {
	unresolved := 0
	for _, c := range candidates {
		if c.Model != "" && c.Equipment == "" {
			unresolved++
		}
	}
	return unresolved
}

// AverageModelBlockAlignment is the mean distance between each row's
// model position and its block's mean model position. Lower means the
// block assignment agrees with where the models actually sit.
func AverageModelBlockAlignment(candidates []Candidate) float64 {
	byBlock := map[int][]float64{}
	for _, c := range candidates {
		byBlock[c.Block] = append(byBlock[c.Block], c.ModelX)
	}
	if len(byBlock) == 0 {
		return 0
	}

	blockCenters := map[int]float64{}
	for block, xs := range byBlock {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		blockCenters[block] = sum / float64(len(xs))
	}

	total := 0.0
	count := 0
	for _, c := range candidates {
		center, ok := blockCenters[c.Block]
		if !ok {
			continue
		}
		total += geometry.Abs(c.ModelX - center)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Propagate resolves continuation rows: a row group with models but no
// symbols inherits from the nearest resolved group above it, then each
// block forward-fills its last seen symbol. Pure: the input slice is
// not modified.
func Propagate(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	rowsByY := map[float64][]*Candidate{}
	for i := range out {
		rowsByY[out[i].RowY] = append(rowsByY[out[i].RowY], &out[i])
	}
	ys := make([]float64, 0, len(rowsByY))
	for y := range rowsByY {
		ys = append(ys, y)
	}
	sort.Float64s(ys)

	byX := func(rows []*Candidate) {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].RowX < rows[j].RowX })
	}

	for idx, y := range ys {
		current := rowsByY[y]
		byX(current)
		resolved := false
		for _, row := range current {
			if row.Equipment != "" {
				resolved = true
				break
			}
		}
		if resolved {
			continue
		}

		var sourceRows []*Candidate
		sourceY := 0.0
		found := false
		for prev := idx - 1; prev >= 0; prev-- {
			prevRows := rowsByY[ys[prev]]
			byX(prevRows)
			var withEquipment []*Candidate
			for _, row := range prevRows {
				if row.Equipment != "" {
					withEquipment = append(withEquipment, row)
				}
			}
			if len(withEquipment) > 0 {
				sourceRows = withEquipment
				sourceY = ys[prev]
				found = true
				break
			}
		}
		if !found {
			continue
		}
		if geometry.Abs(y-sourceY) > propagationMaxRowGap {
			continue
		}

		if len(current) == len(sourceRows) {
			// Same column count: positional mapping.
			for i, row := range current {
				source := sourceRows[i]
				row.Equipment = source.Equipment
				row.Block = source.Block
				row.ModelX = source.ModelX
			}
		} else {
			// Mismatched counts: nearest model position wins, each
			// source consumed once until the pool runs dry.
			available := make([]*Candidate, len(sourceRows))
			copy(available, sourceRows)
			for _, row := range current {
				pool := available
				if len(pool) == 0 {
					pool = sourceRows
				}
				best := pool[0]
				bestDist := geometry.Abs(best.ModelX - row.ModelX)
				bestIdx := 0
				for i, source := range pool[1:] {
					d := geometry.Abs(source.ModelX - row.ModelX)
					if d < bestDist {
						best = source
						bestDist = d
						bestIdx = i + 1
					}
				}
				row.Equipment = best.Equipment
				row.Block = best.Block
				row.ModelX = best.ModelX
				if len(available) > 0 {
					available = append(available[:bestIdx], available[bestIdx+1:]...)
				}
			}
		}
	}

	byBlock := map[int][]*Candidate{}
	for i := range out {
		byBlock[out[i].Block] = append(byBlock[out[i].Block], &out[i])
	}
	for _, rows := range byBlock {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].RowY != rows[j].RowY {
				return rows[i].RowY < rows[j].RowY
			}
			return rows[i].RowX < rows[j].RowX
		})
		lastEquipment := ""
		for _, row := range rows {
			if row.Equipment != "" {
				lastEquipment = row.Equipment
				continue
			}
			if lastEquipment != "" {
				row.Equipment = lastEquipment
			}
		}
	}

	return out
}
