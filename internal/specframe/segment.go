// Package specframe reconstructs specification frames from intercom
// and security device sheets: boxed panels with a device title, an
// order code and label/value attribute pairs (電源電圧, 消費電流,
// 質量). Frames are found bottom-up from the attribute tables and
// matched with titles and codes printed near them.
package specframe

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/logger"
	"github.com/zumenkit/schedscan/internal/ocr"
)

var log = logger.GetLogger("specframe")

const (
	segmentYCluster = 12.0
	segmentXGap     = 70.0
	titleSegmentXGap = 40.0

	tableMinLabelCount = 1
	tableMaxWidthRatio = 2.1

	readingOrderYBand = 140.0

	titleMaxDistanceToTable = 900.0
	titleCodeRowMinDiff     = 25.0
	titleCodeRowMaxDiff     = 70.0

	codeAssignMaxScore        = 420.0
	productCodeAssignMaxScore = 520.0
	codeAssignSoftMargin      = 40.0
	codeAssignSoftMinOverlap  = 0.70
	codeTargetLeftMargin      = 140.0
	codeTargetRightMargin     = 220.0
	codeOverlapPenaltyWeight  = 220.0
)

// Attribute labels the frames carry, in compact form.
var labelKeywords = []string{
	"電源電圧", "入力電圧", "出力電圧",
	"消費電流", "消費電力",
	"質量", "材質", "形状", "色調",
	"塗色", "塗装", "備考",
}

var titleExcludeTerms = append(append([]string{}, labelKeywords...),
	"寸法", "注記", "取付参考例", "図面", "縮尺")

var (
	codePattern             = regexp.MustCompile(`[A-Z]{1,4}-[A-Z0-9]+(?:\+[A-Z0-9-]+)?(?:トク)?`)
	productCodePattern      = regexp.MustCompile(`商品コード[:：]?\s*([0-9A-Za-z-]{4,})`)
	parenProductCodePattern = regexp.MustCompile(`\(商品コード[:：]?[0-9A-Za-z-]{4,}\)`)
	japanesePattern         = regexp.MustCompile(`[ぁ-んァ-ン一-龥]`)
	headerMarkerPattern     = regexp.MustCompile(`[A-Z]{1,3}\d{1,3}`)
	unitValuePattern        = regexp.MustCompile(`\d+(?:\.\d+)?(?:kg|g|v|a|w|hz|φ)`)
	symbolsOnlyPattern      = regexp.MustCompile(`^[^ぁ-んァ-ン一-龥A-Za-z0-9]+$`)
	digitPattern            = regexp.MustCompile(`\d`)
	proseMarkPattern        = regexp.MustCompile(`[ぁ-んァ-ン一-龥:：]`)
)

var specialIdentifierTokens = []string{"特注品"}

// Segment is one horizontally contiguous run of words on a row.
type Segment struct {
	Page        int
	RowY        float64
	X0, X1      float64
	Top, Bottom float64
	Text        string
	TextCompact string
}

// BuildSegments groups page words into row segments: y-cluster first,
// then split each row at wide horizontal gaps.
func BuildSegments(words []ocr.WordBox, page int, yCluster, xGap float64) []Segment {
	var segments []Segment
	for _, row := range cluster.ByY(words, yCluster) {
		for _, group := range cluster.SplitByXGap(row, xGap) {
			var tokens []string
			for _, w := range group.Words {
				token := strings.TrimSpace(ocr.NormalizeText(w.Text))
				if token != "" {
					tokens = append(tokens, token)
				}
			}
			if len(tokens) == 0 {
				continue
			}
			text := strings.Join(tokens, " ")
			compact := strings.Trim(ocr.CompactText(text), "|")
			if compact == "" {
				continue
			}
			x0, x1 := group.Words[0].X0, group.Words[0].X1
			top, bottom := group.Words[0].Y0, group.Words[0].Y1
			for _, w := range group.Words[1:] {
				if w.X0 < x0 {
					x0 = w.X0
				}
				if w.X1 > x1 {
					x1 = w.X1
				}
				if w.Y0 < top {
					top = w.Y0
				}
				if w.Y1 > bottom {
					bottom = w.Y1
				}
			}
			segments = append(segments, Segment{
				Page:        page,
				RowY:        row.Y,
				X0:          x0,
				X1:          x1,
				Top:         top,
				Bottom:      bottom,
				Text:        text,
				TextCompact: compact,
			})
		}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].RowY != segments[j].RowY {
			return segments[i].RowY < segments[j].RowY
		}
		return segments[i].X0 < segments[j].X0
	})
	return segments
}

// xOverlapRatio measures horizontal overlap relative to the narrower
// of the two ranges.
func xOverlapRatio(a0, a1, b0, b1 float64) float64 {
	left := a0
	if b0 > left {
		left = b0
	}
	right := a1
	if b1 < right {
		right = b1
	}
	overlap := right - left
	if overlap < 0 {
		overlap = 0
	}
	widthA := a1 - a0
	if widthA < 1 {
		widthA = 1
	}
	widthB := b1 - b0
	if widthB < 1 {
		widthB = 1
	}
	if widthB < widthA {
		return overlap / widthB
	}
	return overlap / widthA
}

// normalizeForLabelDetection repairs the recurring OCR misreads of the
// attribute labels before keyword matching.
func normalizeForLabelDetection(value string) string {
	compact := strings.Trim(ocr.CompactText(value), "|")
	compact = strings.ReplaceAll(compact, "電電源電圧", "電源電圧")
	compact = strings.ReplaceAll(compact, "消消費電流", "消費電流")
	compact = strings.ReplaceAll(compact, "消消費電力", "消費電力")
	compact = strings.ReplaceAll(compact, "質本体", "質量本体")
	compact = strings.ReplaceAll(compact, "材貝質", "材質")
	compact = strings.ReplaceAll(compact, "形備状", "形状")
	compact = strings.ReplaceAll(compact, "形備", "形状")
	if strings.HasPrefix(compact, "考") {
		compact = "備" + compact
	}
	return compact
}

func cleanValue(value string) string {
	cleaned := strings.Trim(value, "|:：- ")
	cleaned = strings.ReplaceAll(cleaned, "　", "")
	cleaned = strings.ReplaceAll(cleaned, "黑", "黒")
	return cleaned
}

func isTableSegment(segment Segment) bool {
	compact := normalizeForLabelDetection(segment.TextCompact)
	for _, keyword := range labelKeywords {
		if strings.Contains(compact, keyword) {
			return true
		}
	}
	return false
}

// isTitleCandidate screens a segment for device-title shape: Japanese
// text of plausible length with no codes, labels or measurements.
func isTitleCandidate(segment Segment) bool {
	compact := segment.TextCompact
	length := len([]rune(compact))
	if length < 3 || length > 48 {
		return false
	}
	if codePattern.MatchString(compact) {
		return false
	}
	if strings.Contains(compact, "商品コード") {
		return false
	}
	for _, token := range specialIdentifierTokens {
		if strings.Contains(compact, token) {
			return false
		}
	}
	if !japanesePattern.MatchString(compact) {
		return false
	}
	for _, term := range titleExcludeTerms {
		if strings.Contains(compact, term) {
			return false
		}
	}
	if strings.Contains(compact, "約") && digitPattern.MatchString(compact) {
		return false
	}
	if unitValuePattern.MatchString(strings.ToLower(compact)) {
		return false
	}
	if symbolsOnlyPattern.MatchString(compact) {
		return false
	}
	for _, prefix := range []string{"(", "（", "<", "＜", "["} {
		if strings.HasPrefix(compact, prefix) {
			return false
		}
	}
	return true
}
