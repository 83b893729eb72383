package luminaire

import "testing"

func TestBuildOutputRows(t *testing.T) {
	candidates := []Candidate{
		{Page: 1, Section: 0, Block: 1, RowY: 100, Equipment: "CL1", Model: "Panasonic:XLX450AENZ"},
		{Page: 1, Section: 0, Block: 0, RowY: 200, Equipment: "DL2", Model: "LZA-93040"},
		{Page: 1, Section: 0, Block: 0, RowY: 100, Equipment: "DL1", Model: "DAIKO:LZA-93039"},
		{Page: 1, Section: 0, Block: 0, RowY: 300, Equipment: "EDL", Model: "LZA-93041"},
		{Page: 1, Section: 0, Block: 0, RowY: 400, Equipment: "DL3", Model: "LALE-20001"},
		{Page: 1, Section: 0, Block: 0, RowY: 500, Equipment: "DL4", Model: ""},
	}
	rows := BuildOutputRows(candidates)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// block 0 sorts before block 1
	if rows[0].Equipment != "DL1" || rows[0].Manufacturer != "DAIKO" || rows[0].Model != "LZA-93039" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Equipment != "DL2" || rows[1].Manufacturer != "" || rows[1].Model != "LZA-93040" {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if rows[2].Equipment != "CL1" || rows[2].Manufacturer != "Panasonic" {
		t.Errorf("rows[2] = %+v", rows[2])
	}
}

func TestBuildOutputRowsKeepsDuplicates(t *testing.T) {
	candidates := []Candidate{
		{Page: 1, Section: 0, Equipment: "DL1", Model: "LZA-93039"},
		{Page: 2, Section: 0, Equipment: "DL1", Model: "LZA-93039"},
	}
	rows := BuildOutputRows(candidates)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestShouldSkipOutputRow(t *testing.T) {
	tests := []struct {
		equipment, model string
		want             bool
	}{
		{"DL1", "LZA-93039", false},
		{"EDL", "LZA-93039", true},
		{"edl", "LZA-93039", true},
		{"DL1", "LALE-20001", true},
		{"DL1", "", true},
	}
	for _, tc := range tests {
		if got := shouldSkipOutputRow(tc.equipment, tc.model); got != tc.want {
			t.Errorf("shouldSkipOutputRow(%q, %q) = %v, want %v", tc.equipment, tc.model, got, tc.want)
		}
	}
}
