package luminaire

import (
	"testing"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/ocr"
)

func rowOf(words ...ocr.WordBox) cluster.Row {
	return cluster.Row{Y: 100, Words: words}
}

func word(text string, x0 float64) ocr.WordBox {
	return ocr.WordBox{Text: text, X0: x0, Y0: 95, X1: x0 + 60, Y1: 110}
}

func TestCharPosToTokenIndex(t *testing.T) {
	tokens := []string{"DL1", "DAIKO", "LZA-93039"}
	tests := []struct {
		pos  int
		want int
	}{
		{0, 0},
		{2, 0},
		{4, 1},
		{10, 2},
		{99, 2}, // past the end maps to the tail
	}
	for _, tc := range tests {
		if got := charPosToTokenIndex(tokens, tc.pos); got != tc.want {
			t.Errorf("charPosToTokenIndex(%d) = %d, want %d", tc.pos, got, tc.want)
		}
	}
	if got := charPosToTokenIndex(nil, 5); got != 0 {
		t.Errorf("charPosToTokenIndex(nil, 5) = %d, want 0", got)
	}
}

func TestExtractCandidatesFromRowCoded(t *testing.T) {
	row := rowOf(word("DL1", 100), word("DAIKO:LZA-93039", 200))
	candidates := ExtractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Equipment != "DL1" || c.Model != "DAIKO:LZA-93039" || c.Kind != KindCoded {
		t.Errorf("candidate = %+v", c)
	}
	if c.RowX != 100 || c.ModelX != 200 {
		t.Errorf("RowX = %v, ModelX = %v, want 100, 200", c.RowX, c.ModelX)
	}
}

func TestExtractCandidatesFromRowDitto(t *testing.T) {
	row := rowOf(word("DL2", 100), word("同上", 200))
	candidates := ExtractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Equipment != "DL2" || candidates[0].Model != "同上" || candidates[0].Kind != KindDitto {
		t.Errorf("candidate = %+v", candidates[0])
	}
}

func TestExtractCandidatesFromRowBareModel(t *testing.T) {
	row := rowOf(word("CL1", 100), word("LED照明", 200), word("FHF-32EX-N", 300))
	candidates := ExtractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Equipment != "CL1" || c.Model != "FHF-32EX-N" || c.Kind != KindCoded {
		t.Errorf("candidate = %+v", c)
	}
	if c.ModelX != 300 {
		t.Errorf("ModelX = %v, want 300", c.ModelX)
	}
}

func TestExtractCandidatesFromRowTwoSections(t *testing.T) {
	row := rowOf(
		word("DL1", 100), word("DAIKO:LZA-93039", 200),
		word("CL1", 600), word("同上", 700),
	)
	candidates := ExtractCandidatesFromRow(row)
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Equipment != "DL1" || candidates[1].Equipment != "CL1" {
		t.Errorf("candidates = %+v", candidates)
	}
	if candidates[1].Kind != KindDitto {
		t.Errorf("second kind = %v, want ditto", candidates[1].Kind)
	}
}

func TestExtractCandidatesFromRowColonOnly(t *testing.T) {
	row := rowOf(word("DAIKO:", 100), word("LZA-93039", 200))
	candidates := ExtractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Equipment != "" || c.Model != "DAIKO:LZA-93039" || c.Kind != KindColonOnly {
		t.Errorf("candidate = %+v", c)
	}
	if c.RowX != 100 {
		t.Errorf("RowX = %v, want 100", c.RowX)
	}
}

func TestExtractCandidatesFromRowModelOnlyNeedsWattage(t *testing.T) {
	withWattage := rowOf(word("LED照明", 100), word("40W", 200), word("FHF-32EX-N", 300))
	candidates := ExtractCandidatesFromRow(withWattage)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Equipment != "" || c.Model != "FHF-32EX-N" || c.Kind != KindModelOnly {
		t.Errorf("candidate = %+v", c)
	}
	if c.RowX != 300 {
		t.Errorf("RowX = %v, want 300", c.RowX)
	}

	// dimension rows carry model-shaped text but no wattage
	noWattage := rowOf(word("寸法", 100), word("FHF-32EX-N", 300))
	if got := ExtractCandidatesFromRow(noWattage); got != nil {
		t.Errorf("row without wattage produced %+v", got)
	}
}

func TestExtractCandidatesFromRowMultiplier(t *testing.T) {
	row := rowOf(word("DL3", 100), word("LZA-93039", 200), word("×2", 260))
	candidates := ExtractCandidatesFromRow(row)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Model != "LZA-93039 ×2" {
		t.Errorf("model = %q, want %q", candidates[0].Model, "LZA-93039 ×2")
	}
}

func TestExtractCandidatesFromRowEmpty(t *testing.T) {
	if got := ExtractCandidatesFromRow(cluster.Row{}); got != nil {
		t.Errorf("empty row produced %+v", got)
	}
}
