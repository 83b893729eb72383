package panel

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/ocr"
)

// DetectHeaderAnchors finds row segments that read like schedule
// headers. Segments on the same row at the same x are deduplicated,
// keeping the one with more categories, then the longer text.
func DetectHeaderAnchors(words []ocr.WordBox, yCluster float64) []HeaderAnchor {
	var anchors []HeaderAnchor
	for _, row := range cluster.ByY(words, yCluster) {
		for _, segment := range cluster.SplitByXGap(row, headerClusterXGap) {
			text := joinedRowText(segment)
			categories := headerCategories(text)
			if len(categories) < headerMinCategories {
				continue
			}
			anchors = append(anchors, HeaderAnchor{
				RowY:       segment.Y,
				BBox:       rowBBox(segment),
				Categories: categories,
				Text:       text,
			})
		}
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		if anchors[i].RowY != anchors[j].RowY {
			return anchors[i].RowY < anchors[j].RowY
		}
		return anchors[i].BBox.X0 < anchors[j].BBox.X0
	})

	var deduped []HeaderAnchor
	for _, anchor := range anchors {
		if len(deduped) == 0 {
			deduped = append(deduped, anchor)
			continue
		}
		prev := &deduped[len(deduped)-1]
		sameRow := math.Abs(anchor.RowY-prev.RowY) <= tableNearbyHeaderY
		sameX := math.Abs(anchor.BBox.X0-prev.BBox.X0) <= tableNearbyHeaderX
		if sameRow && sameX {
			if len(anchor.Categories) > len(prev.Categories) ||
				(len(anchor.Categories) == len(prev.Categories) && len(anchor.Text) > len(prev.Text)) {
				*prev = anchor
			}
			continue
		}
		deduped = append(deduped, anchor)
	}
	return deduped
}

// inferCandidateBBox grows a header anchor into a table region by
// scanning for body words below it.
func inferCandidateBBox(anchor HeaderAnchor, idx *wordIndex, frameW, frameH float64) geometry.Rect {
	left := math.Max(0, anchor.BBox.X0-headerXMargin)
	right := math.Min(frameW, anchor.BBox.X1+headerRightMargin)
	top := math.Max(0, anchor.BBox.Y0-headerTopMargin)
	maxBottom := math.Min(frameH, anchor.BBox.Y1+tableMaxScanHeight)
	scanBottom := math.Min(frameH, maxBottom+tableScanBottomTolerance)

	var nearby []ocr.WordBox
	for _, w := range idx.search(geometry.Rect{X0: left - 20, Y0: anchor.BBox.Y0 - 10, X1: right + 20, Y1: scanBottom}) {
		cx, cy := w.CenterX(), w.CenterY()
		if cx < left-20 || cx > right+20 {
			continue
		}
		if cy < anchor.BBox.Y0-10 {
			continue
		}
		if cy > scanBottom && !(w.Y0 <= scanBottom && scanBottom <= w.Y1) {
			continue
		}
		nearby = append(nearby, w)
	}

	var bottom float64
	if len(nearby) > 0 {
		minX0, maxX1, maxY1 := nearby[0].X0, nearby[0].X1, nearby[0].Y1
		for _, w := range nearby[1:] {
			minX0 = math.Min(minX0, w.X0)
			maxX1 = math.Max(maxX1, w.X1)
			maxY1 = math.Max(maxY1, w.Y1)
		}
		left = math.Max(0, math.Min(left, minX0-12))
		right = math.Min(frameW, math.Max(right, maxX1+12))
		bottom = math.Min(frameH, math.Max(maxY1+20, anchor.BBox.Y1+80))
	} else {
		bottom = math.Min(frameH, anchor.BBox.Y1+220)
	}
	bottom = math.Max(bottom, anchor.BBox.Y1+tableMinHeight)
	return geometry.Rect{X0: left, Y0: top, X1: right, Y1: bottom}
}

func mergeCloseCandidates(candidates []TableCandidate) []TableCandidate {
	sorted := make([]TableCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].HeaderY != sorted[j].HeaderY {
			return sorted[i].HeaderY < sorted[j].HeaderY
		}
		return sorted[i].BBox.X0 < sorted[j].BBox.X0
	})

	var merged []TableCandidate
	for _, candidate := range sorted {
		if len(merged) == 0 {
			merged = append(merged, candidate)
			continue
		}
		last := &merged[len(merged)-1]
		nearHeader := math.Abs(candidate.HeaderY-last.HeaderY) <= tableNearbyHeaderY &&
			math.Abs(candidate.BBox.X0-last.BBox.X0) <= tableNearbyHeaderX
		overlap := candidate.BBox.IoU(last.BBox) >= tableMergeIoU
		if !nearHeader && !overlap {
			merged = append(merged, candidate)
			continue
		}
		text := last.HeaderText
		if len(candidate.HeaderText) > len(text) {
			text = candidate.HeaderText
		}
		set := map[string]bool{}
		for _, c := range last.Categories {
			set[c] = true
		}
		for _, c := range candidate.Categories {
			set[c] = true
		}
		categories := make([]string, 0, len(set))
		for c := range set {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		*last = TableCandidate{
			BBox:       last.BBox.Union(candidate.BBox),
			HeaderY:    math.Min(candidate.HeaderY, last.HeaderY),
			HeaderText: text,
			Categories: categories,
		}
	}
	return merged
}

// DetectTableCandidates finds table regions on a full page: header
// anchors grown downward, merged, then clipped where a lower table in
// the same column starts.
func DetectTableCandidates(words []ocr.WordBox, frameW, frameH float64) []TableCandidate {
	anchors := DetectHeaderAnchors(words, headerYCluster)
	if len(anchors) == 0 {
		return nil
	}

	idx := newWordIndex(words)
	var candidates []TableCandidate
	for _, anchor := range anchors {
		bbox := inferCandidateBBox(anchor, idx, frameW, frameH)
		if bbox.Width() < tableMinWidth || bbox.Height() < tableMinHeight {
			continue
		}
		candidates = append(candidates, TableCandidate{
			BBox:       bbox,
			HeaderY:    anchor.RowY,
			HeaderText: anchor.Text,
			Categories: anchor.Categories,
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	candidates = mergeCloseCandidates(candidates)
	for i := range candidates {
		base := candidates[i]
		nextTop := base.BBox.Y1
		for _, later := range candidates[i+1:] {
			if later.HeaderY <= base.HeaderY {
				continue
			}
			if base.BBox.XOverlapRatio(later.BBox) < 0.2 {
				continue
			}
			if later.BBox.Y0 < nextTop {
				nextTop = later.BBox.Y0
			}
		}
		if nextTop < base.BBox.Y1 {
			candidates[i].BBox.Y1 = math.Max(base.BBox.Y0+tableMinHeight, nextTop-6)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].HeaderY != candidates[j].HeaderY {
			return candidates[i].HeaderY < candidates[j].HeaderY
		}
		return candidates[i].BBox.X0 < candidates[j].BBox.X0
	})
	return candidates
}

// tableParseResult is the outcome of parsing one table candidate. Row
// ys are in page coordinates.
type tableParseResult struct {
	TableIndex      int
	Candidate       TableCandidate
	Rows            []Row
	ExpandAttempts  int
	FinalCropBottom float64
}

// ocrCrop recognizes a page crop, returning words in crop-local
// coordinates.
func ocrCrop(ctx context.Context, src ocr.WordSource, pageImage image.Image, region geometry.Rect) ([]ocr.WordBox, error) {
	data, scale, err := ocr.PrepareCrop(pageImage, region)
	if err != nil {
		return nil, err
	}
	words, err := src.Words(ctx, data)
	if err != nil {
		return nil, err
	}
	// Origin zero keeps the words in crop space; only the upscale is
	// undone here.
	return ocr.MapCropWords(words, geometry.Rect{}, scale), nil
}

// parseTableCandidate OCRs the candidate crop and extends its bottom
// edge step by step while data rows keep appearing near the edge.
func parseTableCandidate(ctx context.Context, src ocr.WordSource, pageImage image.Image, candidate TableCandidate, tableIndex int, yCluster float64) (tableParseResult, error) {
	pageW := float64(pageImage.Bounds().Dx())
	pageH := float64(pageImage.Bounds().Dy())
	left := math.Floor(math.Max(0, candidate.BBox.X0))
	top := math.Floor(math.Max(0, candidate.BBox.Y0))
	right := math.Floor(math.Min(pageW, candidate.BBox.X1))
	initialHeight := math.Max(1, candidate.BBox.Height())
	maxBottom := math.Min(pageH, candidate.BBox.Y1+initialHeight*tableBottomExpandMaxRatio)

	currentBottom := math.Min(pageH, candidate.BBox.Y1)
	expandAttempts := 0
	noGrowthStreak := 0
	prevRowCount := -1

	finalBottom := math.Floor(currentBottom)
	var result rowsResult

	for attempt := 0; attempt <= tableBottomExpandMaxTries; attempt++ {
		cropBottom := math.Floor(math.Min(pageH, currentBottom))
		if right <= left || cropBottom <= top {
			break
		}
		region := geometry.Rect{X0: left, Y0: top, X1: right, Y1: cropBottom}
		words, err := ocrCrop(ctx, src, pageImage, region)
		if err != nil {
			return tableParseResult{}, err
		}

		if len(words) > 0 {
			bounds := InferColumnBounds(words, region.Width())
			startY := InferDynamicDataStartY(words, bounds.HeaderY)
			result = rowsFromWords(words, bounds, yCluster, startY, tableTrailingNonDataGap)
		} else {
			result = rowsResult{}
		}
		finalBottom = cropBottom

		if result.StoppedByFooter {
			break
		}
		if attempt >= tableBottomExpandMaxTries {
			break
		}
		if cropBottom >= pageH {
			break
		}

		nearEdgeThreshold := math.Max(tableBottomNearEdgePX, yCluster*3)
		nearBottomEdge := false
		if result.HasLastDataBottom {
			lastDataBottomOnPage := top + result.LastDataClusterBottom
			nearBottomEdge = cropBottom-lastDataBottomOnPage <= nearEdgeThreshold
		}
		unstableTail := result.TrailingNonDataCount >= tableTrailingNonDataGap
		if !result.SawData || !(nearBottomEdge || unstableTail) {
			break
		}

		rowCount := len(result.Rows)
		if prevRowCount >= 0 && rowCount <= prevRowCount {
			noGrowthStreak++
		} else {
			noGrowthStreak = 0
		}
		prevRowCount = rowCount
		// A last row still touching the crop edge may grow a tail
		// only after several extra steps.
		if noGrowthStreak >= tableBottomExpandNoGrowth && !nearBottomEdge {
			break
		}

		nextBottom := math.Min(maxBottom, cropBottom+tableBottomExpandStepPX)
		if nextBottom <= cropBottom {
			break
		}
		currentBottom = nextBottom
		expandAttempts++
	}

	rows := make([]Row, len(result.Rows))
	copy(rows, result.Rows)
	for i := range rows {
		rows[i].RowY = math.Round((rows[i].RowY+top)*100) / 100
	}
	return tableParseResult{
		TableIndex:      tableIndex,
		Candidate:       candidate,
		Rows:            rows,
		ExpandAttempts:  expandAttempts,
		FinalCropBottom: finalBottom,
	}, nil
}
