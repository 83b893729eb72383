package specframe

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// FrameRow is one reconstructed specification frame.
type FrameRow struct {
	Page  int
	Top   float64
	X0    float64
	Title string
	Code  string
	Pairs []Pair
}

// Values flattens the frame into its CSV cells: title, code, then
// each label and value.
func (r FrameRow) Values() []string {
	var values []string
	if r.Title != "" {
		values = append(values, r.Title)
	}
	if r.Code != "" {
		values = append(values, r.Code)
	}
	for _, pair := range r.Pairs {
		if pair.Label != "" {
			values = append(values, pair.Label)
		}
		if pair.Value != "" {
			values = append(values, pair.Value)
		}
	}
	return values
}

type titleKey struct {
	Page int
	RowY float64
	X0   float64
	Text string
}

func keyForTitle(segment Segment) titleKey {
	return titleKey{Page: segment.Page, RowY: segment.RowY, X0: segment.X0, Text: segment.TextCompact}
}

// BuildFrameRows reconstructs all frames from a page's segments. The
// title segments come from a narrower gap segmentation so side-by-side
// titles stay separate.
func BuildFrameRows(segments, titleSegments []Segment) []FrameRow {
	var tableSegments []Segment
	for _, segment := range segments {
		if isTableSegment(segment) {
			tableSegments = append(tableSegments, segment)
		}
	}
	blocks := clusterTableSegments(tableSegments)
	attachContinuationSegments(blocks, segments)

	titleSource := titleSegments
	if titleSource == nil {
		titleSource = segments
	}
	var allTitleCandidates []Segment
	for _, segment := range titleSource {
		if isTitleCandidate(segment) {
			allTitleCandidates = append(allTitleCandidates, segment)
		}
	}
	var codeSegments []Segment
	for _, segment := range segments {
		if findCodeInSegment(segment) != "" {
			codeSegments = append(codeSegments, segment)
		}
	}
	codeRowCenters := headerRowCentersFromCodes(codeSegments)
	titleCandidates := filterTitleCandidatesByHeaderRows(allTitleCandidates, codeRowCenters)

	var parsedBlocks []parsedTableBlock
	for _, block := range blocks {
		pairs, labelCount := extractPairsFromBlock(block)
		if labelCount >= tableMinLabelCount {
			parsedBlocks = append(parsedBlocks, parsedTableBlock{Block: block, Pairs: pairs, LabelCount: labelCount})
		}
	}
	parsedBlocks = filterExtremeWideBlocks(parsedBlocks)
	sort.SliceStable(parsedBlocks, func(i, j int) bool {
		a, b := parsedBlocks[i].Block, parsedBlocks[j].Block
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Top != b.Top {
			return a.Top < b.Top
		}
		return a.X0 < b.X0
	})

	usedTitles := map[titleKey]bool{}
	titleSegmentByBlock := map[blockKey]Segment{}
	haveTitleForBlock := map[blockKey]bool{}
	splitTitleByBlock := map[blockKey]string{}

	type assignment struct {
		segment Segment
		blocks  []*TableBlock
	}
	var assignments []assignment
	assignmentIndex := map[Segment]int{}
	for _, parsed := range parsedBlocks {
		block := parsed.Block
		titleSegment, ok := pickTitleForBlock(block, titleCandidates, 0.15)
		if !ok {
			titleSegment, ok = pickTitleForBlock(block, allTitleCandidates, 0.05)
		}
		if !ok {
			continue
		}
		key := keyForBlock(block)
		titleSegmentByBlock[key] = titleSegment
		haveTitleForBlock[key] = true
		if idx, seen := assignmentIndex[titleSegment]; seen {
			assignments[idx].blocks = append(assignments[idx].blocks, block)
		} else {
			assignmentIndex[titleSegment] = len(assignments)
			assignments = append(assignments, assignment{segment: titleSegment, blocks: []*TableBlock{block}})
		}
	}

	for _, a := range assignments {
		if len(a.blocks) == 1 {
			splitTitleByBlock[keyForBlock(a.blocks[0])] = resolveTitleTextForBlock(a.segment, a.blocks[0])
			continue
		}
		for key, title := range splitTitleTextByBlocks(a.segment, a.blocks) {
			splitTitleByBlock[key] = title
		}
	}

	var frameRows []FrameRow
	for _, parsed := range parsedBlocks {
		block := parsed.Block
		key := keyForBlock(block)
		titleSegment, hasTitleSegment := titleSegmentByBlock[key], haveTitleForBlock[key]
		title := splitTitleByBlock[key]
		if hasTitleSegment {
			usedTitles[keyForTitle(titleSegment)] = true
		}

		if title == "" {
			headerYEstimate := estimateHeaderYForBlock(block, codeRowCenters)
			var nearbyHeaderTitles []Segment
			for _, segment := range allTitleCandidates {
				if segment.Page == block.Page &&
					segment.RowY < block.Top &&
					math.Abs(segment.RowY-headerYEstimate) <= 150.0 {
					nearbyHeaderTitles = append(nearbyHeaderTitles, segment)
				}
			}
			fallbackPool := nearbyHeaderTitles
			if len(fallbackPool) == 0 {
				fallbackPool = allTitleCandidates
			}
			if fallbackSegment, ok := pickTitleForBlock(block, fallbackPool, 0.02); ok {
				title = resolveTitleTextForBlock(fallbackSegment, block)
				titleSegment = fallbackSegment
				hasTitleSegment = true
				usedTitles[keyForTitle(fallbackSegment)] = true
			}
		}

		code := ""
		if hasTitleSegment {
			code = pickCodeForTitle(block, titleSegment.RowY, codeSegments)
			if code == "" {
				code = pickCodeForAnchor(block.Page, block.X0, block.X1,
					titleSegment.RowY, titleSegment.RowY+220.0,
					codeSegments, 80.0, 120.0, 0.35)
			}
		}

		if title == "" {
			continue
		}
		frameRows = append(frameRows, FrameRow{
			Page:  block.Page,
			Top:   block.Top,
			X0:    block.X0,
			Title: title,
			Code:  code,
			Pairs: parsed.Pairs,
		})
	}

	// With no table-based frames at all, fall back to bare titles with
	// a code printed underneath.
	if len(frameRows) == 0 {
		for _, segment := range titleCandidates {
			if usedTitles[keyForTitle(segment)] {
				continue
			}
			code := pickCodeForAnchor(segment.Page, segment.X0, segment.X1,
				segment.RowY, segment.RowY+260.0,
				codeSegments, 200.0, 300.0, 0.01)
			if code == "" {
				loneTitle := len(titleCandidates) == 1 && len(blocks) == 0 && len(codeSegments) == 0
				if !loneTitle {
					continue
				}
			}
			frameRows = append(frameRows, FrameRow{
				Page:  segment.Page,
				Top:   segment.Top,
				X0:    segment.X0,
				Title: normalizeTitle(segment.TextCompact),
				Code:  code,
			})
		}
	}

	var normalizedRows []FrameRow
	for _, row := range frameRows {
		if strings.HasPrefix(row.Title, "[") && strings.HasSuffix(row.Title, "]") {
			row.Title = strings.Trim(row.Title, "[]")
		}
		if len(row.Values()) == 0 {
			continue
		}
		normalizedRows = append(normalizedRows, row)
	}

	refineReferenceExampleTitles(normalizedRows)

	var deduped []FrameRow
	seen := map[string]bool{}
	for _, row := range SortReadingOrder(normalizedRows) {
		signature := strings.Join(append([]string{strconv.Itoa(row.Page)}, row.Values()...), "\x00")
		if seen[signature] {
			continue
		}
		seen[signature] = true
		deduped = append(deduped, row)
	}
	return deduped
}

// refineReferenceExampleTitles rewrites 取付参考例 frames: the mounting
// diagram borrows its sibling sensor's title and drops codes and
// pairs.
func refineReferenceExampleTitles(rows []FrameRow) {
	for i := range rows {
		rows[i].Title = normalizeTitle(rows[i].Title)
	}

	for i := range rows {
		row := &rows[i]
		var noteText strings.Builder
		for _, pair := range row.Pairs {
			noteText.WriteString(pair.Value)
		}
		if strings.Contains(row.Title, "取付参考例") {
			row.Code = ""
			row.Pairs = nil
			continue
		}
		if !strings.Contains(noteText.String(), "取付") {
			continue
		}

		var siblings []FrameRow
		for _, candidate := range rows {
			if candidate.Page == row.Page &&
				strings.HasPrefix(candidate.Title, "マグネットセンサー") &&
				math.Abs(candidate.Top-row.Top) <= 220.0 &&
				candidate.X0 < row.X0 {
				siblings = append(siblings, candidate)
			}
		}
		shouldPromote := row.Title == "マグネットセンサー" ||
			strings.Contains(row.Title, "通線孔") ||
			strings.HasSuffix(row.Title, "ボックス")
		if shouldPromote && len(siblings) > 0 {
			best := siblings[0]
			bestDiff := math.Abs(best.X0 - row.X0)
			for _, s := range siblings[1:] {
				if diff := math.Abs(s.X0 - row.X0); diff < bestDiff {
					best = s
					bestDiff = diff
				}
			}
			row.Title = best.Title + "取付参考例"
		} else if shouldPromote && row.Title == "マグネットセンサー" {
			row.Title = "マグネットセンサー取付参考例"
		}
		if strings.Contains(row.Title, "取付参考例") {
			row.Code = ""
			row.Pairs = nil
		}
	}
}

// SortReadingOrder orders frames the way a reader scans the sheet:
// horizontal bands top to bottom, left to right inside a band.
func SortReadingOrder(rows []FrameRow) []FrameRow {
	ordered := make([]FrameRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Page != ordered[j].Page {
			return ordered[i].Page < ordered[j].Page
		}
		if ordered[i].Top != ordered[j].Top {
			return ordered[i].Top < ordered[j].Top
		}
		return ordered[i].X0 < ordered[j].X0
	})
	if len(ordered) == 0 {
		return nil
	}

	grouped := map[int][]FrameRow{}
	var pages []int
	for _, row := range ordered {
		if _, ok := grouped[row.Page]; !ok {
			pages = append(pages, row.Page)
		}
		grouped[row.Page] = append(grouped[row.Page], row)
	}
	sort.Ints(pages)

	var result []FrameRow
	for _, page := range pages {
		pageRows := grouped[page]
		type band struct {
			y     float64
			count float64
		}
		var bands []band
		type sortKey struct {
			band int
			x0   float64
			top  float64
		}
		keys := make([]sortKey, len(pageRows))
		for i, row := range pageRows {
			bandIndex := -1
			for bi := range bands {
				if math.Abs(row.Top-bands[bi].y) <= readingOrderYBand {
					bandIndex = bi
					bands[bi].y = (bands[bi].y*bands[bi].count + row.Top) / (bands[bi].count + 1)
					bands[bi].count++
					break
				}
			}
			if bandIndex == -1 {
				bands = append(bands, band{y: row.Top, count: 1})
				bandIndex = len(bands) - 1
			}
			keys[i] = sortKey{band: bandIndex, x0: row.X0, top: row.Top}
		}

		indexes := make([]int, len(pageRows))
		for i := range indexes {
			indexes[i] = i
		}
		sort.SliceStable(indexes, func(a, b int) bool {
			ka, kb := keys[indexes[a]], keys[indexes[b]]
			if ka.band != kb.band {
				return ka.band < kb.band
			}
			if ka.x0 != kb.x0 {
				return ka.x0 < kb.x0
			}
			return ka.top < kb.top
		})
		for _, idx := range indexes {
			result = append(result, pageRows[idx])
		}
	}
	return result
}
