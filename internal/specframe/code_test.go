package specframe

import (
	"math"
	"testing"
)

func TestFindCodeInSegment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"WL-1A", "WL-1A"},
		{"NDG-4750+EXA-10", "NDG-4750+EXA-10"},
		{"WHB-55Aトク", "WHB-55Aトク"},
		{"(商品コード:12345678)", "(商品コード:12345678)"},
		{"商品コード:12345678", "商品コード:12345678"},
		{"特注品", "特注品"},
		{"ロビーインターホン", ""},
		{"", ""},
	}
	for _, tc := range tests {
		got := findCodeInSegment(Segment{TextCompact: tc.text})
		if got != tc.want {
			t.Errorf("findCodeInSegment(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestIsCodeCandidateSegment(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"WL-1A", true},
		{"WL-1A(カバー付)", true},
		{"電源電圧WL-1A", false}, // label text disqualifies
		{"本機はWL-1Aという型番であり詳細は別紙を参照のこと", false}, // prose
		{"ロビーインターホン", false},
	}
	for _, tc := range tests {
		got := isCodeCandidateSegment(Segment{TextCompact: tc.text})
		if got != tc.want {
			t.Errorf("isCodeCandidateSegment(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClusterYValues(t *testing.T) {
	groups := clusterYValues([]float64{100, 110, 105, 500, 505}, 24)
	if len(groups) != 2 {
		t.Fatalf("clusterYValues produced %d groups, want 2", len(groups))
	}
	if math.Abs(groups[0].Center-105) > 1e-9 || groups[0].Count != 3 {
		t.Errorf("first group = %+v, want center 105 count 3", groups[0])
	}
	if math.Abs(groups[1].Center-502.5) > 1e-9 || groups[1].Count != 2 {
		t.Errorf("second group = %+v, want center 502.5 count 2", groups[1])
	}
	if got := clusterYValues(nil, 24); got != nil {
		t.Errorf("clusterYValues(nil) = %v, want nil", got)
	}
}

func TestHeaderRowCentersFromCodes(t *testing.T) {
	code := func(rowY float64, text string) Segment {
		return Segment{Page: 1, RowY: rowY, TextCompact: text}
	}
	segments := []Segment{
		code(300, "WL-1A"),
		code(305, "WM-2B"),
		code(310, "WR-3C"),
		// a lone code row does not make a header band
		code(900, "WX-9Z"),
	}
	centers := headerRowCentersFromCodes(segments)
	if len(centers) != 1 {
		t.Fatalf("headerRowCentersFromCodes = %v, want 1 center", centers)
	}
	if math.Abs(centers[0]-305) > 1e-9 {
		t.Errorf("center = %v, want 305", centers[0])
	}
}

func TestFilterTitleCandidatesByHeaderRows(t *testing.T) {
	title := func(rowY float64, text string) Segment {
		return Segment{Page: 1, RowY: rowY, TextCompact: text}
	}
	candidates := []Segment{
		title(260, "ロビーインターホン"), // 45 below is a code row
		title(500, "機械室"),         // off grid
	}
	filtered := filterTitleCandidatesByHeaderRows(candidates, []float64{305})
	if len(filtered) != 1 || filtered[0].RowY != 260 {
		t.Errorf("filtered = %+v, want only the on-grid title", filtered)
	}

	// nothing survives: keep everything
	filtered = filterTitleCandidatesByHeaderRows(candidates, []float64{2000})
	if len(filtered) != 2 {
		t.Errorf("empty filter result should fall back to all candidates, got %d", len(filtered))
	}

	// no code rows at all: keep everything
	filtered = filterTitleCandidatesByHeaderRows(candidates, nil)
	if len(filtered) != 2 {
		t.Errorf("no header rows should keep all candidates, got %d", len(filtered))
	}
}

func TestPickTitleForBlock(t *testing.T) {
	block := &TableBlock{Page: 1, Top: 600, X0: 100, X1: 500}
	candidates := []Segment{
		{Page: 1, RowY: 400, X0: 120, X1: 480, TextCompact: "ロビーインターホン"},
		{Page: 1, RowY: 200, X0: 120, X1: 480, TextCompact: "住戸情報盤"},
		{Page: 2, RowY: 400, X0: 120, X1: 480, TextCompact: "別ページ"},
		{Page: 1, RowY: 700, X0: 120, X1: 480, TextCompact: "下の段"},
	}
	got, ok := pickTitleForBlock(block, candidates, 0.15)
	if !ok {
		t.Fatal("pickTitleForBlock found nothing")
	}
	if got.TextCompact != "ロビーインターホン" {
		t.Errorf("picked %q, want the closest title above", got.TextCompact)
	}

	if _, ok := pickTitleForBlock(block, nil, 0.15); ok {
		t.Error("pickTitleForBlock with no candidates reported a match")
	}
}

func TestPickCodeForTitle(t *testing.T) {
	block := &TableBlock{Page: 1, Top: 600, X0: 100, X1: 500}
	headerY := 400.0
	codes := []Segment{
		{Page: 1, RowY: 450, X0: 150, X1: 450, TextCompact: "WL-1A"},
		// prose mention of a code scores worse
		{Page: 1, RowY: 450, X0: 150, X1: 450, TextCompact: "本体はWM-2Bを使用すること"},
	}
	if got := pickCodeForTitle(block, headerY, codes); got != "WL-1A" {
		t.Errorf("pickCodeForTitle = %q, want WL-1A", got)
	}

	// outside the vertical band
	farCodes := []Segment{{Page: 1, RowY: 1200, X0: 150, X1: 450, TextCompact: "WL-1A"}}
	if got := pickCodeForTitle(block, headerY, farCodes); got != "" {
		t.Errorf("pickCodeForTitle out of band = %q, want empty", got)
	}

	// label-bearing segments never win
	labelCodes := []Segment{{Page: 1, RowY: 450, X0: 150, X1: 450, TextCompact: "電源電圧WL-1A"}}
	if got := pickCodeForTitle(block, headerY, labelCodes); got != "" {
		t.Errorf("pickCodeForTitle with label text = %q, want empty", got)
	}
}

func TestPickCodeForAnchor(t *testing.T) {
	codes := []Segment{
		{Page: 1, RowY: 500, X0: 150, X1: 450, TextCompact: "WL-1A"},
		{Page: 1, RowY: 460, X0: 150, X1: 450, TextCompact: "WM-2B"},
	}
	got := pickCodeForAnchor(1, 100, 500, 450, 700, codes, 80, 120, 0.35)
	if got != "WM-2B" {
		t.Errorf("pickCodeForAnchor = %q, want the closer WM-2B", got)
	}

	if got := pickCodeForAnchor(2, 100, 500, 450, 700, codes, 80, 120, 0.35); got != "" {
		t.Errorf("pickCodeForAnchor wrong page = %q, want empty", got)
	}
}

func TestEstimateHeaderYForBlock(t *testing.T) {
	block := &TableBlock{Page: 1, Top: 600}
	if got := estimateHeaderYForBlock(block, []float64{450, 900}); got != 403 {
		t.Errorf("estimateHeaderYForBlock = %v, want 403", got)
	}
	if got := estimateHeaderYForBlock(block, nil); got != 180 {
		t.Errorf("estimateHeaderYForBlock without code rows = %v, want 180", got)
	}
	if got := estimateHeaderYForBlock(block, []float64{900}); got != 180 {
		t.Errorf("estimateHeaderYForBlock with only lower rows = %v, want 180", got)
	}
}
