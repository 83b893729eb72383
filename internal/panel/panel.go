// Package panel reconstructs mechanical equipment tables (機器表) from
// scanned drawing pages: gridded schedules of equipment code, name,
// voltage and capacity. Tables are located by keyword-scored header
// rows, parsed column by column and grown downward until the data
// runs out.
package panel

import (
	"sort"
	"strings"

	"github.com/tidwall/rtree"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/logger"
	"github.com/zumenkit/schedscan/internal/ocr"
)

var log = logger.GetLogger("panel")

const (
	headerYCluster = 22.0

	dataStartOffset = 140.0

	headerMinCategories = 3
	headerXMargin       = 60.0
	headerRightMargin   = 360.0
	headerTopMargin     = 24.0

	tableMaxScanHeight       = 360.0
	tableScanBottomTolerance = 24.0
	tableMinWidth            = 140.0
	tableMinHeight           = 45.0
	tableMergeIoU            = 0.55
	tableNearbyHeaderY       = 14.0
	tableNearbyHeaderX       = 45.0

	tableMinStartOffset     = 10.0
	tableMaxStartOffset     = 36.0
	tableDefaultStartOffset = 24.0

	tableTrailingNonDataGap  = 1
	legacyTrailingNonDataGap = 2

	tableBottomNearEdgePX        = 28.0
	tableBottomExpandStepPX      = 36.0
	tableBottomExpandMaxTries    = 6
	tableBottomExpandMaxRatio    = 0.45
	tableBottomExpandNoGrowth    = 2

	headerClusterXGap = 180.0
)

// Columns of the reconstructed table, in order.
var coreColumns = []string{"機器番号", "機器名称", "電圧(V)", "容量(kW)"}

const drawingNumberColumn = "図面番号"

var outputColumns = append(append([]string{}, coreColumns...), drawingNumberColumn)

var headerKeywords = []string{
	"機器", "記号", "名称", "電圧", "容量",
	"備考", "起動", "回路", "whm", "インター",
}

var footerKeywords = []string{
	"図面", "縮尺", "建築", "設計", "コード",
	"三菱", "主管", "日付", "登録",
}

var rowFilterNameKeywords = []string{
	"ポンプ", "排風", "送風", "送気", "排気", "装置", "電源",
	"フロート", "シャッター", "弁", "ファン", "雨水", "排水",
	"清水", "汚泥",
}

// HeaderAnchor is a row segment that scored as a table header.
type HeaderAnchor struct {
	RowY       float64
	BBox       geometry.Rect
	Categories []string
	Text       string
}

// TableCandidate is an inferred table region.
type TableCandidate struct {
	BBox       geometry.Rect
	HeaderY    float64
	HeaderText string
	Categories []string
}

// Row is one parsed data row.
type Row struct {
	Page     int
	Side     string
	RowIndex int
	RowY     float64

	Code          string
	Name          string
	Voltage       string
	Power         string
	DrawingNumber string
}

// compactLower is the keyword-matching form of OCR text.
func compactLower(text string) string {
	return strings.ToLower(ocr.CompactText(text))
}

// headerScore counts how many header keywords a row carries. Used to
// pick the header row inside an already-cropped table.
func headerScore(row cluster.Row) int {
	text := strings.ToLower(ocr.NormalizeText(joinedRowText(row)))
	score := 0
	if strings.Contains(text, "機器") {
		score++
	}
	if strings.Contains(text, "記号") {
		score++
	}
	if strings.Contains(text, "名称") {
		score++
	}
	if strings.Contains(text, "電圧") || strings.Contains(text, "(v") || strings.Contains(text, "v)") {
		score++
	}
	if strings.Contains(text, "kw") || strings.Contains(text, "容量") {
		score++
	}
	return score
}

// joinedRowText concatenates row words with no separator; grid headers
// are matched on the glued form.
func joinedRowText(row cluster.Row) string {
	var b strings.Builder
	for _, w := range row.Words {
		b.WriteString(w.Text)
	}
	return b.String()
}

// headerCategories classifies a header segment. Single characters are
// accepted alongside the full keywords because OCR shreds vertical
// header cells.
func headerCategories(text string) []string {
	normalized := compactLower(text)
	set := map[string]bool{}

	if strings.Contains(normalized, "機器番号") {
		set["code"] = true
	}
	if strings.Contains(normalized, "機器") &&
		(strings.Contains(normalized, "番号") || strings.Contains(normalized, "記号")) {
		set["code"] = true
	}
	if strings.Contains(normalized, "機") && strings.Contains(normalized, "器") &&
		strings.Contains(normalized, "番") && strings.Contains(normalized, "号") {
		set["code"] = true
	}

	if strings.Contains(normalized, "名称") ||
		(strings.Contains(normalized, "名") && strings.Contains(normalized, "称")) {
		set["name"] = true
	}

	if strings.Contains(normalized, "電圧") ||
		(strings.Contains(normalized, "電") && strings.Contains(normalized, "圧")) {
		set["voltage"] = true
	}
	if strings.Contains(normalized, "(v") || strings.Contains(normalized, "v)") {
		set["voltage"] = true
	}

	if strings.Contains(normalized, "容量") ||
		(strings.Contains(normalized, "容") && strings.Contains(normalized, "量")) {
		set["power"] = true
	}
	if strings.Contains(normalized, "kw") {
		set["power"] = true
	}

	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

func rowBBox(row cluster.Row) geometry.Rect {
	bbox := row.Words[0].Rect()
	for _, w := range row.Words[1:] {
		bbox = bbox.Union(w.Rect())
	}
	return bbox
}

// wordIndex is a spatial index over page words for region queries.
type wordIndex struct {
	tree rtree.RTreeG[ocr.WordBox]
}

func newWordIndex(words []ocr.WordBox) *wordIndex {
	idx := &wordIndex{}
	for _, w := range words {
		idx.tree.Insert([2]float64{w.X0, w.Y0}, [2]float64{w.X1, w.Y1}, w)
	}
	return idx
}

// search returns the words whose boxes intersect the region.
func (idx *wordIndex) search(region geometry.Rect) []ocr.WordBox {
	var out []ocr.WordBox
	idx.tree.Search(
		[2]float64{region.X0, region.Y0},
		[2]float64{region.X1, region.Y1},
		func(_, _ [2]float64, w ocr.WordBox) bool {
			out = append(out, w)
			return true
		})
	return out
}
