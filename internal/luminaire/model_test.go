package luminaire

import "testing"

func TestCleanupModelText(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"LZA ー 93039", "LZA-93039"},
		{"ＬＺＡ－９３０３９", "LZA-93039"},
		{"XLX450AENZ 1. 注記を参照", "XLX450AENZ"},
		{"XLX450AENZ。詳細は別紙", "XLX450AENZ"},
		{"[ LZA-93039 ]", "LZA-93039"},
		{"NNLK  42532", "NNLK 42532"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := cleanupModelText(tc.input); got != tc.want {
			t.Errorf("cleanupModelText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSplitEquivalentModel(t *testing.T) {
	tests := []struct {
		input     string
		wantMaker string
		wantModel string
	}{
		{"DAIKO:LZA-93039", "DAIKO", "LZA-93039"},
		{"Panasonic：XLX450AENZ LE9", "Panasonic", "XLX450AENZ LE9"},
		{"LZA-93039", "", "LZA-93039"},
		{"LZA-93039,LZA-93040", "", "LZA-93039 , LZA-93040"},
		{"", "", ""},
	}
	for _, tc := range tests {
		maker, model := SplitEquivalentModel(tc.input)
		if maker != tc.wantMaker || model != tc.wantModel {
			t.Errorf("SplitEquivalentModel(%q) = (%q, %q), want (%q, %q)",
				tc.input, maker, model, tc.wantMaker, tc.wantModel)
		}
	}
}

func TestNormalizeDittoModel(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"同上", "同上"},
		{"同 上", "同上"},
		{"同上ガード付", "同上ガード付"},
		{"同上 カード付", "同上ガード付"},
		{"同上 力ー付", "同上ガード付"},
		{"LZA-93039", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := normalizeDittoModel(tc.input); got != tc.want {
			t.Errorf("normalizeDittoModel(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsEmergencyCertificationModel(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"LALE-20001", true},
		{"lale 20001", true},
		{"LALE", false},
		{"DAIKO:LZA-93039", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isEmergencyCertificationModel(tc.input); got != tc.want {
			t.Errorf("isEmergencyCertificationModel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractMakerAndModel(t *testing.T) {
	maker, model, start := extractMakerAndModel("DL1 DAIKO : LZA-93039")
	if maker != "DAIKO" || model != "LZA-93039" {
		t.Errorf("extractMakerAndModel = (%q, %q)", maker, model)
	}
	if start != 4 {
		t.Errorf("maker start = %d, want 4", start)
	}

	if _, _, start := extractMakerAndModel("同上"); start != -1 {
		t.Errorf("no-colon text: start = %d, want -1", start)
	}
}

func TestIsEquipmentCodeToken(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"DL1", true},
		{"dl1", true},
		{"[DL1]", true},
		{"WL1A", true},
		{"LL2", true},
		{"DL10G", true},
		{"EDL", true}, // emergency symbol, recognized but filtered later
		{"DL", false},
		{"L", false},
		{"ABC", false},
		{"DAIKO", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isEquipmentCodeToken(tc.input); got != tc.want {
			t.Errorf("isEquipmentCodeToken(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestIsHeaderRow(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"器具記号 メーカー 相当型番", true},
		{"器具記 号 相当型番", true},
		{"相当型番", false},
		{"器具記号", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsHeaderRow(tc.input); got != tc.want {
			t.Errorf("IsHeaderRow(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
