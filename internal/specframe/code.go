package specframe

import (
	"math"
	"sort"
	"strings"
)

// findCodeInSegment extracts the order code carried by a segment:
// a model code, a 商品コード reference or a special-order marker.
func findCodeInSegment(segment Segment) string {
	if m := codePattern.FindString(segment.TextCompact); m != "" {
		return m
	}
	if m := parenProductCodePattern.FindString(segment.TextCompact); m != "" {
		return m
	}
	if m := productCodePattern.FindStringSubmatch(segment.TextCompact); m != nil {
		return "商品コード:" + m[1]
	}
	for _, token := range specialIdentifierTokens {
		if strings.Contains(segment.TextCompact, token) {
			return token
		}
	}
	return ""
}

// isCodeCandidateSegment accepts segments that are essentially just a
// code, not a sentence mentioning one.
func isCodeCandidateSegment(segment Segment) bool {
	code := findCodeInSegment(segment)
	if code == "" {
		return false
	}
	compact := segment.TextCompact
	for _, keyword := range labelKeywords {
		if strings.Contains(compact, keyword) {
			return false
		}
	}
	return len([]rune(compact)) <= len([]rune(code))+14
}

func clusterYValues(values []float64, tolerance float64) []struct {
	Center float64
	Count  int
} {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	type group struct {
		sum  float64
		last float64
		n    int
	}
	groups := []group{{sum: sorted[0], last: sorted[0], n: 1}}
	for _, v := range sorted[1:] {
		g := &groups[len(groups)-1]
		if math.Abs(v-g.last) <= tolerance {
			g.sum += v
			g.last = v
			g.n++
			continue
		}
		groups = append(groups, group{sum: v, last: v, n: 1})
	}

	out := make([]struct {
		Center float64
		Count  int
	}, 0, len(groups))
	for _, g := range groups {
		out = append(out, struct {
			Center float64
			Count  int
		}{g.sum / float64(g.n), g.n})
	}
	return out
}

// headerRowCentersFromCodes finds rows that hold three or more bare
// codes; these mark the header band of a frame grid.
func headerRowCentersFromCodes(codeSegments []Segment) []float64 {
	var values []float64
	for _, segment := range codeSegments {
		if isCodeCandidateSegment(segment) {
			values = append(values, segment.RowY)
		}
	}
	var centers []float64
	for _, c := range clusterYValues(values, 24.0) {
		if c.Count >= 3 {
			centers = append(centers, c.Center)
		}
	}
	return centers
}

// filterTitleCandidatesByHeaderRows keeps titles that sit just above a
// code row; off-grid text falls away unless nothing survives.
func filterTitleCandidatesByHeaderRows(titleCandidates []Segment, codeRowCenters []float64) []Segment {
	if len(codeRowCenters) == 0 {
		return titleCandidates
	}
	var filtered []Segment
	for _, segment := range titleCandidates {
		for _, rowY := range codeRowCenters {
			diff := rowY - segment.RowY
			if diff >= titleCodeRowMinDiff && diff <= titleCodeRowMaxDiff {
				filtered = append(filtered, segment)
				break
			}
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return titleCandidates
}

func estimateHeaderYForBlock(block *TableBlock, codeRowCenters []float64) float64 {
	if len(codeRowCenters) == 0 {
		return math.Max(0, block.Top-420.0)
	}
	nearest := math.Inf(-1)
	for _, rowY := range codeRowCenters {
		if rowY < block.Top+40.0 && rowY > nearest {
			nearest = rowY
		}
	}
	if math.IsInf(nearest, -1) {
		return math.Max(0, block.Top-420.0)
	}
	return nearest - 47.0
}

// pickTitleForBlock chooses the closest title candidate above the
// block, weighting vertical distance over horizontal offset.
func pickTitleForBlock(block *TableBlock, titleCandidates []Segment, minOverlap float64) (Segment, bool) {
	var best Segment
	bestScore := math.Inf(1)
	found := false
	for _, segment := range titleCandidates {
		if segment.Page != block.Page {
			continue
		}
		if segment.RowY >= block.Top {
			continue
		}
		if block.Top-segment.RowY > titleMaxDistanceToTable {
			continue
		}
		overlap := xOverlapRatio(segment.X0, segment.X1, block.X0-140.0, block.X1+140.0)
		if overlap < minOverlap {
			continue
		}
		blockCenter := (block.X0 + block.X1) / 2
		segCenter := (segment.X0 + segment.X1) / 2
		score := (block.Top - segment.RowY) + math.Abs(segCenter-blockCenter)*0.2
		if score < bestScore {
			bestScore = score
			best = segment
			found = true
		}
	}
	return best, found
}

// pickCodeForAnchor finds the code printed below an anchor segment,
// scored by distance and horizontal overlap.
func pickCodeForAnchor(page int, anchorX0, anchorX1, anchorY, maxY float64, codeSegments []Segment, xPadLeft, xPadRight, minOverlap float64) string {
	anchorCenter := (anchorX0 + anchorX1) / 2
	rangeX0 := anchorX0 - xPadLeft
	rangeX1 := anchorX1 + xPadRight

	best := ""
	bestScore := math.Inf(1)
	for _, segment := range codeSegments {
		if segment.Page != page {
			continue
		}
		if segment.RowY < anchorY || segment.RowY > maxY {
			continue
		}
		code := findCodeInSegment(segment)
		if code == "" {
			continue
		}
		overlap := xOverlapRatio(segment.X0, segment.X1, rangeX0, rangeX1)
		if overlap < minOverlap {
			continue
		}
		segCenter := (segment.X0 + segment.X1) / 2
		score := math.Abs(segment.RowY-anchorY)*1.2 + math.Abs(segCenter-anchorCenter) + (1.0-overlap)*120.0
		if score < bestScore {
			bestScore = score
			best = code
		}
	}
	return best
}

// pickCodeForTitle finds the code row belonging to a titled block,
// with penalties for prose-like segments and far placements. A best
// candidate over the score ceiling is still accepted when its overlap
// is strong and the overshoot is small.
func pickCodeForTitle(block *TableBlock, headerY float64, codeSegments []Segment) string {
	lowerY := headerY + 18.0
	upperY := headerY + 190.0
	blockCenter := (block.X0 + block.X1) / 2
	targetX0 := block.X0 - codeTargetLeftMargin
	targetX1 := block.X1 + codeTargetRightMargin

	bestCode := ""
	bestScore := math.Inf(1)
	bestOverlap := 0.0
	for _, segment := range codeSegments {
		if segment.Page != block.Page {
			continue
		}
		if segment.RowY < lowerY || segment.RowY > upperY {
			continue
		}
		code := findCodeInSegment(segment)
		if code == "" {
			continue
		}
		isProductCode := strings.Contains(code, "商品コード:")
		isSpecial := false
		for _, token := range specialIdentifierTokens {
			if code == token {
				isSpecial = true
				break
			}
		}
		text := segment.TextCompact
		skip := false
		for _, keyword := range labelKeywords {
			if strings.Contains(text, keyword) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		overlap := xOverlapRatio(segment.X0, segment.X1, targetX0, targetX1)
		if overlap <= 0 {
			continue
		}

		penalty := 0.0
		if len([]rune(text)) > len([]rune(code))+12 {
			penalty += 120.0
		}
		if proseMarkPattern.MatchString(text) && !isProductCode && !isSpecial {
			penalty += 80.0
		}
		if segment.RowY > 3000.0 {
			penalty += 200.0
		}
		penalty += (1.0 - overlap) * codeOverlapPenaltyWeight

		segCenter := (segment.X0 + segment.X1) / 2
		score := math.Abs(segCenter-blockCenter) + math.Abs(segment.RowY-lowerY)*2.0 + penalty
		if score < bestScore {
			bestScore = score
			bestCode = code
			bestOverlap = overlap
		}
	}

	if bestCode == "" {
		return ""
	}
	threshold := codeAssignMaxScore
	if strings.Contains(bestCode, "商品コード:") {
		threshold = productCodeAssignMaxScore
	}
	if bestScore > threshold {
		if !strings.Contains(bestCode, "商品コード:") &&
			bestOverlap >= codeAssignSoftMinOverlap &&
			bestScore <= threshold+codeAssignSoftMargin {
			return bestCode
		}
		return ""
	}
	return bestCode
}
