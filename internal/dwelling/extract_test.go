package dwelling

import (
	"testing"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/ocr"
)

func word(text string, x0, y0, x1, y1 float64) ocr.WordBox {
	return ocr.WordBox{Text: text, X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func anchorRow(y float64, words ...ocr.WordBox) cluster.Row {
	return cluster.Row{Y: y, Words: words}
}

func TestDetectAnchorsSplitDigit(t *testing.T) {
	rows := []cluster.Row{
		anchorRow(150,
			word("D", 200, 145, 210, 155),
			word("1", 215, 145, 222, 155), // gap 5, recombines to D1
			word("L", 600, 145, 610, 155),
			word("2", 660, 145, 668, 155), // gap 50, stays split
		),
	}
	anchors := detectAnchors(rows, 100)
	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2", len(anchors))
	}
	if anchors[0].Raw != "D1" || anchors[0].Equipment != "D1" || anchors[0].X != 200 {
		t.Errorf("anchors[0] = %+v", anchors[0])
	}
	// lone letter stays a bare symbol
	if anchors[1].Raw != "L" || anchors[1].Equipment != "" {
		t.Errorf("anchors[1] = %+v", anchors[1])
	}
}

func TestDetectAnchorsBand(t *testing.T) {
	rows := []cluster.Row{
		anchorRow(150, word("D1", 200, 145, 220, 155)),
		anchorRow(400, word("D2", 200, 395, 220, 405)), // below the band
		anchorRow(90, word("D3", 200, 85, 220, 95)),    // above the title
	}
	anchors := detectAnchors(rows, 100)
	if len(anchors) != 1 || anchors[0].Raw != "D1" {
		t.Fatalf("anchors = %+v", anchors)
	}
}

func TestExtractCandidatesFromRowCoded(t *testing.T) {
	row := anchorRow(300,
		word("D1(調光):", 100, 295, 180, 310),
		word("DAIKO", 200, 295, 260, 310),
		word("LZA-93039", 280, 295, 380, 310),
	)
	candidates := extractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Equipment != "D1(調光)" || c.Maker != "DAIKO" || c.Model != "LZA-93039" {
		t.Errorf("candidate = %+v", c)
	}
	if c.RowX != 100 {
		t.Errorf("RowX = %v, want 100", c.RowX)
	}
}

func TestExtractCandidatesFromRowMakerColon(t *testing.T) {
	row := anchorRow(300,
		word("Panasonic:", 100, 295, 190, 310),
		word("NNLK42532", 200, 295, 300, 310),
	)
	candidates := extractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Equipment != "" || c.Maker != "Panasonic" || c.Model != "NNLK42532" {
		t.Errorf("candidate = %+v", c)
	}
}

func TestExtractCandidatesFromRowMakerSpace(t *testing.T) {
	row := anchorRow(300,
		word("DAIKO", 100, 295, 160, 310),
		word("LZA-93039", 200, 295, 300, 310),
	)
	candidates := extractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Maker != "DAIKO" || candidates[0].Model != "LZA-93039" {
		t.Errorf("candidate = %+v", candidates[0])
	}
}

func TestExtractCandidatesFromRowExclusions(t *testing.T) {
	note := anchorRow(300,
		word("注記", 100, 295, 140, 310),
		word("DAIKO", 200, 295, 260, 310),
		word("LZA-93039", 280, 295, 380, 310),
	)
	if got := extractCandidatesFromRow(note); got != nil {
		t.Errorf("note row produced %+v", got)
	}

	equivalent := anchorRow(300,
		word("型番は相当品とする", 100, 295, 260, 310),
		word("DAIKO", 280, 295, 340, 310),
		word("LZA-93039", 360, 295, 460, 310),
	)
	if got := extractCandidatesFromRow(equivalent); got != nil {
		t.Errorf("equivalence note produced %+v", got)
	}

	// wire gauges never read as models
	wires := anchorRow(300,
		word("DAIKO", 100, 295, 160, 310),
		word("VVF1.6-2C", 200, 295, 300, 310),
	)
	if got := extractCandidatesFromRow(wires); got != nil {
		t.Errorf("wire row produced %+v", got)
	}
}

func TestExtractCandidatesFromRowNoDoubleClaim(t *testing.T) {
	// the coded form claims its span; the maker-space pattern must not
	// re-emit the same pair anonymously
	row := anchorRow(300,
		word("D1:", 100, 295, 130, 310),
		word("DAIKO", 200, 295, 260, 310),
		word("LZA-93039", 280, 295, 380, 310),
	)
	candidates := extractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Equipment != "D1" {
		t.Errorf("candidate = %+v", candidates[0])
	}
}

func TestAssignEquipmentFromAnchors(t *testing.T) {
	anchors := []Anchor{
		{X: 100, Raw: "D1", Equipment: "D1"},
		{X: 600, Raw: "L", Equipment: ""},
		{X: 1200, Raw: "D2", Equipment: "D2"},
	}
	candidates := []Candidate{
		{RowX: 120},                    // nearest D1
		{RowX: 1190},                   // nearest D2
		{RowX: 580},                    // nearest is a bare symbol
		{RowX: 4000},                   // too far from everything
		{RowX: 120, Equipment: "d3"},   // already labeled, normalized only
	}
	assignEquipmentFromAnchors(candidates, anchors)
	if candidates[0].Equipment != "D1" {
		t.Errorf("candidates[0] = %+v", candidates[0])
	}
	if candidates[1].Equipment != "D2" {
		t.Errorf("candidates[1] = %+v", candidates[1])
	}
	if candidates[2].Equipment != "" {
		t.Errorf("symbol-anchored candidate = %+v", candidates[2])
	}
	if candidates[3].Equipment != "" {
		t.Errorf("distant candidate = %+v", candidates[3])
	}
	if candidates[4].Equipment != "D3" {
		t.Errorf("labeled candidate = %+v", candidates[4])
	}
}

func TestBuildOutputRows(t *testing.T) {
	candidates := []Candidate{
		{Page: 1, Block: 1, RowY: 100, Equipment: "L1", Maker: "Panasonic", Model: "NNLK42532"},
		{Page: 1, Block: 0, RowY: 100, Equipment: "D1", Maker: "DAIKO", Model: "LZA-93039"},
		{Page: 1, Block: 0, RowY: 200},
	}
	rows := BuildOutputRows(candidates)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Equipment != "D1" || rows[1].Equipment != "L1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestExtractPageCandidates(t *testing.T) {
	words := []ocr.WordBox{
		word("住戸内照明器具姿図", 100, 95, 300, 105),
		word("D", 200, 145, 210, 155),
		word("1", 215, 145, 222, 155),
		word("DAIKO", 190, 295, 250, 310),
		word("LZA-93039", 270, 295, 370, 310),
	}
	candidates := ExtractPageCandidates(words, 3)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Page != 3 || c.Equipment != "D1" || c.Maker != "DAIKO" || c.Model != "LZA-93039" {
		t.Errorf("candidate = %+v", c)
	}
	if c.RowY != 302.5 {
		t.Errorf("RowY = %v, want 302.5", c.RowY)
	}
}

func TestExtractPageCandidatesNoTitle(t *testing.T) {
	words := []ocr.WordBox{
		word("DAIKO", 190, 295, 250, 310),
		word("LZA-93039", 270, 295, 370, 310),
	}
	if got := ExtractPageCandidates(words, 1); got != nil {
		t.Errorf("page without title produced %+v", got)
	}
}
