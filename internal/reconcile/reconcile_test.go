package reconcile

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zumenkit/schedscan/internal/config"
)

func TestResolveHeader(t *testing.T) {
	headers := []string{"機器番号", "名称", "動力 (50Hz)_消費電力 (KW)", "台数", "図面番号"}
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"equipment_id", "機器番号", true},
		{"schedule_name", "名称", true},
		{"schedule_power_per_unit_kw", "動力 (50Hz)_消費電力 (KW)", true},
		{"schedule_count", "台数", true},
		{"schedule_drawing_number", "図面番号", true},
		{"panel_voltage", "", false},
	}
	for _, tc := range tests {
		got, ok := resolveHeader(headers, tc.key)
		if got != tc.want || ok != tc.ok {
			t.Errorf("resolveHeader(%q) = (%q, %v), want (%q, %v)", tc.key, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveHeaderAliasSpacing(t *testing.T) {
	// header spelled with no spaces still resolves
	headers := []string{"動力(50Hz)_消費電力(KW)"}
	got, ok := resolveHeader(headers, "schedule_power_per_unit_kw")
	if !ok || got != "動力(50Hz)_消費電力(KW)" {
		t.Errorf("resolveHeader = (%q, %v)", got, ok)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"ef-1", "EF-1"},
		{"ＥＦ－１", "EF-1"},
		{" EF-1 ", "EF-1"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := normalizeKey(tc.input); got != tc.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func writeTestCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("\ufeff"); err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatal(err)
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	writeTestCSV(t, path, [][]string{
		{"機器番号", "名称"},
		{"EF-1", "排風機"},
	})
	header, rows, err := readCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if header[0] != "機器番号" {
		t.Errorf("BOM not stripped from header: %q", header[0])
	}
	if len(rows) != 1 || rows[0]["機器番号"] != "EF-1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.csv")
	panelPath := filepath.Join(dir, "panel.csv")
	outPath := filepath.Join(dir, "judgment.csv")

	writeTestCSV(t, schedulePath, [][]string{
		{"機器番号", "名称", "動力 (50Hz)_消費電力 (KW)", "台数", "図面番号"},
		{"EF-1", "排風機", "0.75", "2", "M-01"},
		{"SF-1", "送風機", "1.5", "1", "M-01"},
	})
	writeTestCSV(t, panelPath, [][]string{
		{"機器番号", "機器名称", "電圧(V)", "容量(kW)", "図面番号"},
		{"EF-1", "排風機", "200", "0.75", "E-101"},
		{"EF-1", "排風機", "200", "0.75", "E-101"},
		{"P-9", "雑排水ポンプ", "200", "1.5", "E-102"}, // not on the schedule
		{"", "名称のみ", "200", "", "E-103"},            // no equipment code
	})

	result, err := Merge(config.Config{CapacityMaxFallback: true}, schedulePath, panelPath, outPath)
	if err != nil {
		t.Fatal(err)
	}
	// 2 schedule rows + 1 unmatched panel code + 1 missing-code group
	if result.RowCount != 4 {
		t.Fatalf("RowCount = %d, want 4", result.RowCount)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "\ufeff") {
		t.Error("output missing BOM")
	}
	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("output has %d records, want header + 4 rows", len(records))
	}
	if len(records[0]) != len(outputColumns) {
		t.Errorf("header has %d columns, want %d", len(records[0]), len(outputColumns))
	}

	// EF-1: two panel rows against schedule count 2, equal capacity and name
	ef1 := records[1]
	if ef1[0] != "◯" {
		t.Errorf("EF-1 verdict = %q, want ◯", ef1[0])
	}
	if ef1[6] != "EF-1" || ef1[10] != "2" {
		t.Errorf("EF-1 row = %v", ef1)
	}

	// SF-1 is absent from the panel schedule
	sf1 := records[2]
	if sf1[0] != "✗" || sf1[5] != "盤表に記載なし" {
		t.Errorf("SF-1 row = %v", sf1)
	}

	// P-9 appears only on the panel schedule
	p9 := records[3]
	if p9[5] != "機器表に記載なし" || p9[6] != "P-9" {
		t.Errorf("P-9 row = %v", p9)
	}

	// the code-less panel row lands in the review bucket
	last := records[4]
	if last[0] != "要確認" || last[5] != "盤表ID未記載" || last[8] != "名称のみ" {
		t.Errorf("missing-code row = %v", last)
	}
}

func TestMergeMissingHeaders(t *testing.T) {
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.csv")
	panelPath := filepath.Join(dir, "panel.csv")
	writeTestCSV(t, schedulePath, [][]string{{"なにか"}, {"x"}})
	writeTestCSV(t, panelPath, [][]string{{"機器番号", "機器名称", "電圧(V)", "容量(kW)"}})

	_, err := Merge(config.Config{}, schedulePath, panelPath, filepath.Join(dir, "out.csv"))
	if err == nil {
		t.Fatal("expected an error for missing headers")
	}
	if !strings.Contains(err.Error(), "headers") {
		t.Errorf("error = %v", err)
	}
}
