package specframe

import (
	"sort"
	"strings"
)

// Pair is one attribute label with its value text.
type Pair struct {
	Label string
	Value string
}

// TableBlock is a cluster of attribute segments forming one frame's
// spec table.
type TableBlock struct {
	Page        int
	X0, X1      float64
	Top, Bottom float64
	Segments    []Segment
}

type parsedTableBlock struct {
	Block      *TableBlock
	Pairs      []Pair
	LabelCount int
}

// ExtractLabelValuePairs pulls label/value pairs out of one compact
// text run. Labels may repeat; overlapping keyword hits keep the
// earliest, longest match.
func ExtractLabelValuePairs(text string) []Pair {
	normalized := normalizeForLabelDetection(text)
	runes := []rune(normalized)

	type hit struct{ start, end int }
	var hits []hit
	labels := map[hit]string{}
	for _, label := range labelKeywords {
		labelRunes := []rune(label)
		for start := 0; start+len(labelRunes) <= len(runes); {
			idx := indexRunes(runes[start:], labelRunes)
			if idx < 0 {
				break
			}
			h := hit{start + idx, start + idx + len(labelRunes)}
			hits = append(hits, h)
			labels[h] = label
			start = h.end
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end-hits[i].start > hits[j].end-hits[j].start
	})
	var selected []hit
	for _, h := range hits {
		if len(selected) > 0 && h.start < selected[len(selected)-1].end {
			continue
		}
		selected = append(selected, h)
	}

	// A label repeated at the very end with nothing after it is a
	// truncated echo of the previous one.
	if len(selected) >= 2 {
		last, prev := selected[len(selected)-1], selected[len(selected)-2]
		if last.end >= len(runes) && labels[last] == labels[prev] && last.start < len(runes) {
			selected = selected[:len(selected)-1]
		}
	}

	var pairs []Pair
	for i, h := range selected {
		valueEnd := len(runes)
		if i+1 < len(selected) {
			valueEnd = selected[i+1].start
		}
		pairs = append(pairs, Pair{
			Label: labels[h],
			Value: cleanValue(string(runes[h.end:valueEnd])),
		})
	}

	var merged []Pair
	for _, p := range pairs {
		if len(merged) > 0 && merged[len(merged)-1].Label == p.Label {
			prev := &merged[len(merged)-1]
			if p.Value == "" {
				prev.Value = cleanValue(prev.Value)
				continue
			}
			if prev.Value == "" {
				prev.Value = p.Value
				continue
			}
		}
		merged = append(merged, p)
	}
	return merged
}

func indexRunes(haystack, needle []rune) int {
	byteIdx := strings.Index(string(haystack), string(needle))
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(string(haystack)[:byteIdx]))
}

// isContinuationText accepts short value text that belongs to the
// previous label but landed in its own segment.
func isContinuationText(text string) bool {
	compact := normalizeForLabelDetection(text)
	if compact == "" {
		return false
	}
	if codePattern.MatchString(compact) {
		return false
	}
	if len(ExtractLabelValuePairs(compact)) > 0 {
		return false
	}
	if len([]rune(compact)) > 80 {
		return false
	}
	return japanesePattern.MatchString(compact) || digitPattern.MatchString(compact)
}

// clusterTableSegments groups attribute segments into blocks: a
// segment joins the first block on the same page it vertically
// continues and horizontally overlaps.
func clusterTableSegments(segments []Segment) []*TableBlock {
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		if sorted[i].RowY != sorted[j].RowY {
			return sorted[i].RowY < sorted[j].RowY
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var blocks []*TableBlock
	for _, segment := range sorted {
		var matched *TableBlock
		for _, block := range blocks {
			if block.Page != segment.Page {
				continue
			}
			if segment.RowY > block.Bottom+140.0 {
				continue
			}
			if xOverlapRatio(segment.X0, segment.X1, block.X0, block.X1) < 0.18 {
				continue
			}
			matched = block
			break
		}
		if matched == nil {
			blocks = append(blocks, &TableBlock{
				Page:     segment.Page,
				X0:       segment.X0,
				X1:       segment.X1,
				Top:      segment.Top,
				Bottom:   segment.Bottom,
				Segments: []Segment{segment},
			})
			continue
		}
		if segment.X0 < matched.X0 {
			matched.X0 = segment.X0
		}
		if segment.X1 > matched.X1 {
			matched.X1 = segment.X1
		}
		if segment.Top < matched.Top {
			matched.Top = segment.Top
		}
		if segment.Bottom > matched.Bottom {
			matched.Bottom = segment.Bottom
		}
		matched.Segments = append(matched.Segments, segment)
	}
	return blocks
}

// extractPairsFromBlock collects pairs over a block's segments in
// reading order; labelless continuation segments extend the previous
// value.
func extractPairsFromBlock(block *TableBlock) ([]Pair, int) {
	segments := make([]Segment, len(block.Segments))
	copy(segments, block.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].RowY != segments[j].RowY {
			return segments[i].RowY < segments[j].RowY
		}
		return segments[i].X0 < segments[j].X0
	})

	var pairs []Pair
	for _, segment := range segments {
		detected := ExtractLabelValuePairs(segment.TextCompact)
		if len(detected) > 0 {
			pairs = append(pairs, detected...)
			continue
		}
		if len(pairs) > 0 && isContinuationText(segment.TextCompact) {
			last := &pairs[len(pairs)-1]
			last.Value = cleanValue(last.Value + segment.TextCompact)
		}
	}

	var filtered []Pair
	labels := map[string]bool{}
	for _, p := range pairs {
		if p.Label == "" {
			continue
		}
		filtered = append(filtered, p)
		labels[p.Label] = true
	}
	return filtered, len(labels)
}

// attachContinuationSegments pulls value fragments that sit just
// outside a block's bbox back into the block.
func attachContinuationSegments(blocks []*TableBlock, segments []Segment) {
	if len(blocks) == 0 {
		return
	}
	for _, block := range blocks {
		known := map[Segment]bool{}
		for _, s := range block.Segments {
			known[s] = true
		}
		for _, segment := range segments {
			if known[segment] {
				continue
			}
			if segment.Page != block.Page {
				continue
			}
			if segment.RowY < block.Top-8.0 || segment.RowY > block.Bottom+40.0 {
				continue
			}
			if xOverlapRatio(segment.X0, segment.X1, block.X0, block.X1) < 0.35 {
				continue
			}
			if headerMarkerPattern.MatchString(segment.TextCompact) {
				continue
			}
			if isTitleCandidate(segment) {
				continue
			}
			if findCodeInSegment(segment) != "" {
				continue
			}
			if !isContinuationText(segment.TextCompact) {
				continue
			}
			block.Segments = append(block.Segments, segment)
			known[segment] = true
			if segment.X0 < block.X0 {
				block.X0 = segment.X0
			}
			if segment.X1 > block.X1 {
				block.X1 = segment.X1
			}
			if segment.Top < block.Top {
				block.Top = segment.Top
			}
			if segment.Bottom > block.Bottom {
				block.Bottom = segment.Bottom
			}
		}
	}
}

// filterExtremeWideBlocks drops merged blocks that span several frames
// at once.
func filterExtremeWideBlocks(blocks []parsedTableBlock) []parsedTableBlock {
	if len(blocks) < 2 {
		return blocks
	}
	widths := make([]float64, len(blocks))
	sortedWidths := make([]float64, len(blocks))
	for i, b := range blocks {
		w := b.Block.X1 - b.Block.X0
		if w < 1 {
			w = 1
		}
		widths[i] = w
		sortedWidths[i] = w
	}
	sort.Float64s(sortedWidths)
	median := sortedWidths[len(sortedWidths)/2]
	maxWidth := median * tableMaxWidthRatio

	var kept []parsedTableBlock
	for i, b := range blocks {
		if widths[i] <= maxWidth {
			kept = append(kept, b)
		}
	}
	return kept
}
