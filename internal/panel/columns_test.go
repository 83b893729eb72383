package panel

import (
	"math"
	"testing"

	"github.com/zumenkit/schedscan/internal/ocr"
)

func TestAssignColumn(t *testing.T) {
	bounds := ColumnBounds{XMin: 10, B12: 200, B23: 400, B34: 600, XMax: 790}
	tests := []struct {
		x    float64
		want string
	}{
		{150, "機器番号"},
		{250, "機器名称"},
		{450, "電圧(V)"},
		{650, "容量(kW)"},
		{5, ""},
		{900, ""},
	}
	for _, tc := range tests {
		if got := AssignColumn(tc.x, bounds); got != tc.want {
			t.Errorf("AssignColumn(%v) = %q, want %q", tc.x, got, tc.want)
		}
	}
}

func TestBuildBoundsFromCenters(t *testing.T) {
	bounds := BuildBoundsFromCenters([]float64{100, 300, 500, 700}, 50, 1000)
	if bounds.B12 != 200 || bounds.B23 != 400 || bounds.B34 != 600 {
		t.Errorf("cuts = %v/%v/%v, want 200/400/600", bounds.B12, bounds.B23, bounds.B34)
	}
	if bounds.XMin != 10 || bounds.XMax != 790 {
		t.Errorf("edges = %v/%v, want 10/790", bounds.XMin, bounds.XMax)
	}
	if bounds.HeaderY != 50 {
		t.Errorf("HeaderY = %v, want 50", bounds.HeaderY)
	}

	// edges clamp to the side
	clamped := BuildBoundsFromCenters([]float64{40, 300, 500, 980}, 0, 1000)
	if clamped.XMin != 0 {
		t.Errorf("XMin = %v, want 0", clamped.XMin)
	}
	if clamped.XMax != 1000 {
		t.Errorf("XMax = %v, want 1000", clamped.XMax)
	}
}

func TestInferColumnBoundsFromHeader(t *testing.T) {
	words := []ocr.WordBox{
		{Text: "記号", X0: 100, Y0: 40, X1: 140, Y1: 60},
		{Text: "名称", X0: 280, Y0: 40, X1: 320, Y1: 60},
		{Text: "電圧", X0: 480, Y0: 40, X1: 520, Y1: 60},
		{Text: "(kW)", X0: 680, Y0: 40, X1: 720, Y1: 60},
	}
	bounds := InferColumnBounds(words, 1600)
	if math.Abs(bounds.B12-210) > 1e-9 {
		t.Errorf("B12 = %v, want 210", bounds.B12)
	}
	if math.Abs(bounds.B23-400) > 1e-9 {
		t.Errorf("B23 = %v, want 400", bounds.B23)
	}
	if math.Abs(bounds.B34-600) > 1e-9 {
		t.Errorf("B34 = %v, want 600", bounds.B34)
	}
	if math.Abs(bounds.HeaderY-50) > 1e-9 {
		t.Errorf("HeaderY = %v, want 50", bounds.HeaderY)
	}
}

func TestInferColumnBoundsFallback(t *testing.T) {
	// no header keywords: ratio defaults apply
	bounds := InferColumnBounds(nil, 1000)
	wantCenters := []float64{240, 350, 400, 440}
	if got := bounds.B12; math.Abs(got-(wantCenters[0]+wantCenters[1])/2) > 1e-9 {
		t.Errorf("B12 = %v", got)
	}
	if bounds.HeaderY != 0 {
		t.Errorf("HeaderY = %v, want 0", bounds.HeaderY)
	}
	if bounds.B12 >= bounds.B23 || bounds.B23 >= bounds.B34 || bounds.B34 >= bounds.XMax {
		t.Errorf("bounds not monotonic: %+v", bounds)
	}
}

func TestInferColumnBoundsMonotonicClamp(t *testing.T) {
	// overlapping picks get pushed apart
	words := []ocr.WordBox{
		{Text: "記号", X0: 300, Y0: 40, X1: 340, Y1: 60},
		{Text: "名称", X0: 310, Y0: 40, X1: 350, Y1: 60},
		{Text: "電圧", X0: 480, Y0: 40, X1: 520, Y1: 60},
	}
	bounds := InferColumnBounds(words, 1600)
	if bounds.B12 >= bounds.B23 || bounds.B23 >= bounds.B34 {
		t.Errorf("bounds not monotonic: %+v", bounds)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		values []float64
		want   float64
		ok     bool
	}{
		{[]float64{3, 1, 2}, 2, true},
		{[]float64{4, 1, 3, 2}, 2.5, true},
		{nil, 0, false},
	}
	for _, tc := range tests {
		got, ok := median(tc.values)
		if got != tc.want || ok != tc.ok {
			t.Errorf("median(%v) = (%v, %v), want (%v, %v)", tc.values, got, ok, tc.want, tc.ok)
		}
	}
}
