package ocr

import (
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"ＡＢＣ１２３", "ABC123"},
		{"  消費電力 ", "消費電力"},
		{"３φ２００Ｖ", "3φ200V"},
		{"", ""},
		{"ＥＦ－１", "EF-1"},
	}
	for _, tc := range tests {
		got := NormalizeText(tc.input)
		if got != tc.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCompactText(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"機器 番号", "機器番号"},
		{"電 源　電 圧", "電源電圧"},
		{"a\tb c", "abc"},
		{"", ""},
	}
	for _, tc := range tests {
		got := CompactText(tc.input)
		if got != tc.want {
			t.Errorf("CompactText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestJoinRowText(t *testing.T) {
	words := []WordBox{
		{Text: "EF-1", X0: 0, X1: 40},
		{Text: "", X0: 45, X1: 50},
		{Text: "排風機", X0: 60, X1: 120},
	}
	if got, want := JoinRowText(words), "EF-1 排風機"; got != want {
		t.Errorf("JoinRowText = %q, want %q", got, want)
	}
	if got := JoinRowText(nil); got != "" {
		t.Errorf("JoinRowText(nil) = %q, want empty", got)
	}
}

func TestWordBoxGeometry(t *testing.T) {
	w := WordBox{Text: "x", X0: 10, Y0: 20, X1: 30, Y1: 60}
	if got := w.CenterX(); got != 20 {
		t.Errorf("CenterX = %v, want 20", got)
	}
	if got := w.CenterY(); got != 40 {
		t.Errorf("CenterY = %v, want 40", got)
	}
	if got := w.Width(); got != 20 {
		t.Errorf("Width = %v, want 20", got)
	}
	if got := w.Height(); got != 40 {
		t.Errorf("Height = %v, want 40", got)
	}
}
