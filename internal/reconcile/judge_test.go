package reconcile

import (
	"math"
	"testing"
)

func TestToMark(t *testing.T) {
	tests := []struct {
		code judgment
		want string
	}{
		{judgmentMatch, "◯"},
		{judgmentMismatch, "✗"},
		{judgmentReview, "要確認"},
	}
	for _, tc := range tests {
		if got := toMark(tc.code); got != tc.want {
			t.Errorf("toMark(%s) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestAggregateJudgments(t *testing.T) {
	tests := []struct {
		codes []judgment
		want  judgment
	}{
		{[]judgment{judgmentMatch, judgmentMatch}, judgmentMatch},
		{[]judgment{judgmentMatch, judgmentMismatch}, judgmentMismatch},
		{[]judgment{judgmentMismatch, judgmentReview}, judgmentReview},
		{[]judgment{judgmentReview, judgmentMatch}, judgmentReview},
		{nil, judgmentMatch},
	}
	for _, tc := range tests {
		if got := aggregateJudgments(tc.codes...); got != tc.want {
			t.Errorf("aggregateJudgments(%v) = %s, want %s", tc.codes, got, tc.want)
		}
	}
}

func TestEvaluateName(t *testing.T) {
	tests := []struct {
		name       string
		equipName  string
		panelNames []string
		exists     judgment
		want       judgment
	}{
		{"match", "排風機", []string{"排風機"}, judgmentMatch, judgmentMatch},
		{"match ignoring width", "排風機 ", []string{"排風機"}, judgmentMatch, judgmentMatch},
		{"mismatch", "排風機", []string{"送風機"}, judgmentMatch, judgmentMismatch},
		{"several panel names", "排風機", []string{"排風機", "送風機"}, judgmentMatch, judgmentMismatch},
		{"no panel entry", "排風機", []string{"排風機"}, judgmentMismatch, judgmentMismatch},
		{"unknown", "", []string{"排風機"}, judgmentMatch, judgmentReview},
	}
	for _, tc := range tests {
		got, _ := evaluateName(normalizeCell(tc.equipName), tc.panelNames, tc.exists)
		if got != tc.want {
			t.Errorf("%s: evaluateName = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestEvaluateQuantity(t *testing.T) {
	code, diff, hasDiff, _ := evaluateQuantity(2, true, 2, judgmentMatch)
	if code != judgmentMatch || diff != 0 || !hasDiff {
		t.Errorf("equal counts: (%s, %v, %v)", code, diff, hasDiff)
	}

	code, diff, _, reason := evaluateQuantity(2, true, 3, judgmentMatch)
	if code != judgmentMismatch || diff != 1 || reason != "台数差分=1" {
		t.Errorf("extra panel row: (%s, %v, %q)", code, diff, reason)
	}

	code, _, hasDiff, _ = evaluateQuantity(0, false, 1, judgmentMatch)
	if code != judgmentReview || hasDiff {
		t.Errorf("missing schedule count: (%s, %v)", code, hasDiff)
	}

	code, _, _, reason = evaluateQuantity(2, true, 0, judgmentMismatch)
	if code != judgmentMismatch || reason != "盤表に記載なし" {
		t.Errorf("missing panel entry: (%s, %q)", code, reason)
	}
}

func TestEvaluateCapacity(t *testing.T) {
	numeric := func(v float64) capacityVariant {
		return capacityVariant{Display: formatNumber(v), Value: v, HasVal: true, Kind: capacityNumeric}
	}

	code, diff, hasDiff, _ := evaluateCapacity(numeric(0.75), []capacityVariant{numeric(0.75)}, judgmentMatch)
	if code != judgmentMatch || !hasDiff || math.Abs(diff) > 1e-9 {
		t.Errorf("equal capacity: (%s, %v, %v)", code, diff, hasDiff)
	}

	// within tolerance
	code, _, _, _ = evaluateCapacity(numeric(0.75), []capacityVariant{numeric(0.8)}, judgmentMatch)
	if code != judgmentMatch {
		t.Errorf("capacity inside tolerance = %s, want match", code)
	}

	code, diff, _, reason := evaluateCapacity(numeric(0.75), []capacityVariant{numeric(1.5)}, judgmentMatch)
	if code != judgmentMismatch || math.Abs(diff-0.75) > 1e-9 || reason != "容量差分=0.75" {
		t.Errorf("capacity mismatch: (%s, %v, %q)", code, diff, reason)
	}

	code, _, _, reason = evaluateCapacity(capacityVariant{Kind: capacityBlank}, []capacityVariant{numeric(1.5)}, judgmentMatch)
	if code != judgmentReview || reason != "容量欠損" {
		t.Errorf("blank schedule capacity: (%s, %q)", code, reason)
	}

	code, _, _, reason = evaluateCapacity(numeric(0.75), []capacityVariant{numeric(0.75), numeric(1.5)}, judgmentMatch)
	if code != judgmentReview || reason != "容量が複数候補" {
		t.Errorf("several panel capacities: (%s, %q)", code, reason)
	}

	code, _, _, _ = evaluateCapacity(numeric(0.75), []capacityVariant{{Display: "別途", Kind: capacityNonNumeric}}, judgmentMatch)
	if code != judgmentReview {
		t.Errorf("non numeric panel capacity = %s, want review", code)
	}

	code, _, _, reason = evaluateCapacity(numeric(0.75), nil, judgmentMismatch)
	if code != judgmentMismatch || reason != "盤表に記載なし" {
		t.Errorf("missing panel entry: (%s, %q)", code, reason)
	}
}

func TestBuildLegacyReasonPriority(t *testing.T) {
	// overall review: review reasons outrank mismatch reasons
	got := buildLegacyReason(judgmentReview,
		judgmentMatch,
		judgmentMismatch, "台数差分=1", 1, true,
		judgmentReview, "容量欠損",
		judgmentMatch, "")
	if got != "容量欠損" {
		t.Errorf("review priority = %q, want 容量欠損", got)
	}

	// overall mismatch: mismatch reason first
	got = buildLegacyReason(judgmentMismatch,
		judgmentMatch,
		judgmentMismatch, "台数差分=1", 1, true,
		judgmentMatch, "",
		judgmentMatch, "")
	if got != "台数差分=1" {
		t.Errorf("mismatch priority = %q, want 台数差分=1", got)
	}

	// missing panel entry headline
	got = buildLegacyReason(judgmentMismatch,
		judgmentMismatch,
		judgmentMismatch, "盤表に記載なし", 0, false,
		judgmentMismatch, "盤表に記載なし",
		judgmentMismatch, "盤表に記載なし")
	if got != "盤表に記載なし" {
		t.Errorf("missing entry headline = %q", got)
	}
}

func TestPickReason(t *testing.T) {
	if got := pickReason(judgmentMatch, "whatever", nil); got != "" {
		t.Errorf("match verdict should have no reason, got %q", got)
	}
	if got := pickReason(judgmentMismatch, "容量差分=0.75", nil); got != "容量差分=0.75" {
		t.Errorf("legacy reason not used: %q", got)
	}
	if got := pickReason(judgmentReview, "", []string{"", "名称が不明"}); got != "名称が不明" {
		t.Errorf("fallback reason = %q", got)
	}
	if got := pickReason(judgmentReview, "", nil); got != "判定要確認" {
		t.Errorf("default review reason = %q", got)
	}
	if got := pickReason(judgmentMismatch, "", nil); got != "不一致" {
		t.Errorf("default mismatch reason = %q", got)
	}
}

func TestFormatTraceRows(t *testing.T) {
	rows := []traceRow{
		{Drawing: "E-101", Name: "排風機", Capacity: "0.75"},
		{Drawing: "E-102", Name: "排風機", Capacity: "0.75"},
		{Drawing: "E-101", Name: "排風機", Capacity: "0.75"},
	}
	got := formatTraceRows(rows)
	want := "図面:E-101 名称:排風機 容量:0.75 x2 || 図面:E-102 名称:排風機 容量:0.75"
	if got != want {
		t.Errorf("formatTraceRows = %q, want %q", got, want)
	}

	// one distinct reading: no trace
	single := []traceRow{
		{Drawing: "E-101", Name: "排風機", Capacity: "0.75"},
		{Drawing: "E-101", Name: "排風機", Capacity: "0.75"},
	}
	if got := formatTraceRows(single); got != "" {
		t.Errorf("single reading trace = %q, want empty", got)
	}

	// blanks render as question marks
	blanks := []traceRow{
		{Drawing: "", Name: "排風機", Capacity: ""},
		{Drawing: "E-101", Name: "排風機", Capacity: "0.75"},
	}
	got = formatTraceRows(blanks)
	want = "図面:? 名称:排風機 容量:? || 図面:E-101 名称:排風機 容量:0.75"
	if got != want {
		t.Errorf("blank trace = %q, want %q", got, want)
	}
}

func TestCollectUniqueNonBlank(t *testing.T) {
	got := collectUniqueNonBlank([]string{"排風機", "排 風 機", "", "送風機"})
	if len(got) != 2 || got[0] != "排風機" || got[1] != "送風機" {
		t.Errorf("collectUniqueNonBlank = %v", got)
	}
}

func TestPickFirstNonBlank(t *testing.T) {
	if got := pickFirstNonBlank([]string{"", " ", "E-101"}); got != "E-101" {
		t.Errorf("pickFirstNonBlank = %q, want E-101", got)
	}
	if got := pickFirstNonBlank(nil); got != "" {
		t.Errorf("pickFirstNonBlank(nil) = %q, want empty", got)
	}
}
