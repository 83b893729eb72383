package panel

import (
	"testing"

	"github.com/zumenkit/schedscan/internal/ocr"
)

func TestNormalizeDrawingNumberCandidate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"E-101", "E-101", true},
		{"e−101", "E-101", true},
		{"DK-3-2", "DK-3-2", true},
		{"[E-101]", "E-101", true},
		{"Ｅ－１０１", "E-101", true},
		{"EF1", "", false},
		{"図面番号", "", false},
		{"E-", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := normalizeDrawingNumberCandidate(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Errorf("normalizeDrawingNumberCandidate(%q) = (%q, %v), want (%q, %v)",
				tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsDrawingNumberLabel(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"図面番号", true},
		{"図 面 番 号", true},
		{"図面 E-101 番号", true},
		{"番号", false},
		{"図面", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isDrawingNumberLabel(tc.input); got != tc.want {
			t.Errorf("isDrawingNumberLabel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractDrawingNumberFromWords(t *testing.T) {
	words := []ocr.WordBox{
		{Text: "図面番号", X0: 1400, Y0: 900, X1: 1520, Y1: 930},
		{Text: "E-101", X0: 1420, Y0: 960, X1: 1500, Y1: 990},
	}
	if got := extractDrawingNumberFromWords(words, 2000, 1200); got != "E-101" {
		t.Errorf("extractDrawingNumberFromWords = %q, want %q", got, "E-101")
	}
}

func TestExtractDrawingNumberBottomRightFallback(t *testing.T) {
	words := []ocr.WordBox{
		// top-left candidate must not win
		{Text: "M-99", X0: 100, Y0: 100, X1: 180, Y1: 130},
		{Text: "M-20", X0: 1700, Y0: 1000, X1: 1780, Y1: 1030},
	}
	if got := extractDrawingNumberFromWords(words, 2000, 1200); got != "M-20" {
		t.Errorf("extractDrawingNumberFromWords = %q, want %q", got, "M-20")
	}
}

func TestExtractDrawingNumberNone(t *testing.T) {
	words := []ocr.WordBox{
		{Text: "機械室", X0: 1700, Y0: 1000, X1: 1780, Y1: 1030},
	}
	if got := extractDrawingNumberFromWords(words, 2000, 1200); got != "" {
		t.Errorf("extractDrawingNumberFromWords = %q, want empty", got)
	}
	if got := extractDrawingNumberFromWords(nil, 2000, 1200); got != "" {
		t.Errorf("extractDrawingNumberFromWords(nil) = %q, want empty", got)
	}
}
