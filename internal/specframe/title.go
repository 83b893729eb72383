package specframe

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/zumenkit/schedscan/internal/geometry"
)

var (
	leadingRowNumberPattern = regexp.MustCompile(`^\d+\|`)
	leadingMarkerPattern    = regexp.MustCompile(`^[A-Za-z]{1,4}\d{0,3}([ぁ-んァ-ン一-龥（(])`)
	leadingSymbolPattern    = regexp.MustCompile(`^[◎○●◯◇◆□■△▲▽▼⊙⊗◉]+`)
	speakerVariantPattern   = regexp.MustCompile(`スピーカ([^ー]|$)`)
)

// normalizeTitle strips grid markers, bullets and OCR artifacts off a
// device title.
func normalizeTitle(title string) string {
	normalized := strings.Trim(title, "[]|")
	normalized = leadingRowNumberPattern.ReplaceAllString(normalized, "")
	normalized = leadingMarkerPattern.ReplaceAllString(normalized, "$1")
	normalized = leadingSymbolPattern.ReplaceAllString(normalized, "")
	normalized = strings.TrimLeft(normalized, "|・")
	normalized = strings.TrimLeft(normalized, "@")
	normalized = speakerVariantPattern.ReplaceAllString(normalized, "スピーカー$1")
	normalized = strings.NewReplacer("(", "（", ")", "）", "+", "＋").Replace(normalized)
	return strings.TrimSpace(normalized)
}

// titleChunksFromCompact splits a multi-frame title run at its grid
// markers (A1, B12). Fewer than two markers means no split.
func titleChunksFromCompact(compact string) []string {
	markers := headerMarkerPattern.FindAllStringIndex(compact, -1)
	if len(markers) < 2 {
		return nil
	}
	var chunks []string
	for i, marker := range markers {
		start := marker[0]
		end := len(compact)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		raw := compact[start:end]
		cleaned := strings.Trim(replaceFirstMarker(raw), " |・")
		if cleaned != "" {
			chunks = append(chunks, cleaned)
		}
	}
	return chunks
}

func replaceFirstMarker(text string) string {
	loc := headerMarkerPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + text[loc[1]:]
}

// snapSplitBoundary moves a proposed split point onto a nearby word
// start so a title does not get cut mid-word. Index is in runes.
func snapSplitBoundary(runes []rune, index int) int {
	if index <= 0 || index >= len(runes) {
		return index
	}
	keywords := []string{
		"セキュリティ", "ロビーインターホン", "住戸",
		"マグネット", "カメラ", "電源",
	}
	text := string(runes)
	best := index
	bestDistance := 999
	for _, keyword := range keywords {
		from := 0
		for {
			byteIdx := strings.Index(text[from:], keyword)
			if byteIdx < 0 {
				break
			}
			runeStart := len([]rune(text[:from+byteIdx]))
			distance := runeStart - index
			if distance < 0 {
				distance = -distance
			}
			if distance < bestDistance && distance <= 10 {
				best = runeStart
				bestDistance = distance
			}
			from += byteIdx + len(keyword)
		}
	}
	return best
}

type blockKey struct {
	Page        int
	Top, X0, X1 int
}

func keyForBlock(block *TableBlock) blockKey {
	return blockKey{
		Page: block.Page,
		Top:  int(math.Round(block.Top)),
		X0:   int(math.Round(block.X0)),
		X1:   int(math.Round(block.X1)),
	}
}

// splitTitleTextByBlocks divides one wide title run between the blocks
// it spans, proportionally to the block gaps, snapping boundaries to
// word starts. A split that produces fragments is discarded and the
// whole text goes to the leftmost block.
func splitTitleTextByBlocks(titleSegment Segment, blocks []*TableBlock) map[blockKey]string {
	if len(blocks) == 0 {
		return nil
	}
	ordered := make([]*TableBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].X0 < ordered[j].X0 })

	sourceText := normalizeTitle(titleSegment.TextCompact)
	if len(ordered) == 1 || sourceText == "" {
		return map[blockKey]string{keyForBlock(ordered[0]): sourceText}
	}
	runes := []rune(sourceText)

	segWidth := math.Max(1, titleSegment.X1-titleSegment.X0)
	boundaries := []int{0}
	for i := 0; i < len(ordered)-1; i++ {
		splitX := (ordered[i].X1 + ordered[i+1].X0) / 2
		ratio := geometry.Clamp((splitX-titleSegment.X0)/segWidth, 0, 1)
		boundaries = append(boundaries, int(math.Round(ratio*float64(len(runes)))))
	}
	boundaries = append(boundaries, len(runes))
	for i := 1; i < len(boundaries)-1; i++ {
		boundaries[i] = snapSplitBoundary(runes, boundaries[i])
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			boundaries[i] = boundaries[i-1] + 1
		}
	}
	boundaries[len(boundaries)-1] = len(runes)

	splitMap := map[blockKey]string{}
	for i, block := range ordered {
		start := boundaries[i]
		end := boundaries[i+1]
		if i == len(ordered)-1 {
			end = len(runes)
		}
		if start > len(runes) {
			start = len(runes)
		}
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		splitMap[keyForBlock(block)] = normalizeTitle(chunk)
	}

	for _, value := range splitMap {
		if len([]rune(value)) < 4 {
			fallback := map[blockKey]string{keyForBlock(ordered[0]): sourceText}
			for _, block := range ordered[1:] {
				fallback[keyForBlock(block)] = ""
			}
			return fallback
		}
	}
	return splitMap
}

// resolveTitleTextForBlock picks the chunk of a marker-segmented title
// that sits over the block's horizontal center.
func resolveTitleTextForBlock(titleSegment Segment, block *TableBlock) string {
	compact := titleSegment.TextCompact
	chunks := titleChunksFromCompact(compact)
	if len(chunks) == 0 {
		return normalizeTitle(compact)
	}
	segWidth := math.Max(1, titleSegment.X1-titleSegment.X0)
	blockCenter := (block.X0 + block.X1) / 2
	ratio := geometry.Clamp((blockCenter-titleSegment.X0)/segWidth, 0, 0.999999)
	index := int(ratio * float64(len(chunks)))
	if index >= len(chunks) {
		index = len(chunks) - 1
	}
	return normalizeTitle(chunks[index])
}
