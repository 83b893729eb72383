package geometry

import (
	"math"
	"testing"
)

func TestRectUnion(t *testing.T) {
	tests := []struct {
		a, b, want Rect
	}{
		{Rect{0, 0, 10, 10}, Rect{5, 5, 20, 20}, Rect{0, 0, 20, 20}},
		{Rect{0, 0, 10, 10}, Empty, Rect{0, 0, 10, 10}},
		{Empty, Rect{3, 3, 6, 6}, Rect{3, 3, 6, 6}},
		{Rect{0, 0, 2, 2}, Rect{10, 10, 12, 12}, Rect{0, 0, 12, 12}},
	}
	for _, tc := range tests {
		got := tc.a.Union(tc.b)
		if got != tc.want {
			t.Errorf("Union(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		a, b, want Rect
	}{
		{Rect{0, 0, 10, 10}, Rect{5, 5, 20, 20}, Rect{5, 5, 10, 10}},
		{Rect{0, 0, 10, 10}, Rect{20, 20, 30, 30}, Empty},
		{Rect{0, 0, 10, 10}, Rect{10, 0, 20, 10}, Empty},
	}
	for _, tc := range tests {
		got := tc.a.Intersect(tc.b)
		if got != tc.want {
			t.Errorf("Intersect(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		a, b Rect
		want float64
	}{
		{Rect{0, 0, 10, 10}, Rect{0, 0, 10, 10}, 1},
		{Rect{0, 0, 10, 10}, Rect{20, 0, 30, 10}, 0},
		{Rect{0, 0, 10, 10}, Rect{5, 0, 15, 10}, 50.0 / 150.0},
		{Empty, Rect{0, 0, 10, 10}, 0},
	}
	for _, tc := range tests {
		got := tc.a.IoU(tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("IoU(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestXOverlapRatio(t *testing.T) {
	tests := []struct {
		a, b Rect
		want float64
	}{
		{Rect{0, 0, 10, 10}, Rect{0, 50, 10, 60}, 1},
		{Rect{0, 0, 10, 10}, Rect{5, 0, 25, 10}, 0.5},
		{Rect{0, 0, 10, 10}, Rect{10, 0, 20, 10}, 0},
	}
	for _, tc := range tests {
		got := tc.a.XOverlapRatio(tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("XOverlapRatio(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		x, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
	}
	for _, tc := range tests {
		if got := Clamp(tc.x, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tc.x, tc.lo, tc.hi, got, tc.want)
		}
	}
}
