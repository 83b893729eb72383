package geometry

// Coordinates are page pixels at the rendering DPI, origin top-left,
// y increasing downward.

type Point struct{ X, Y float64 }

type Rect struct{ X0, Y0, X1, Y1 float64 }

var Empty = Rect{}

func (r Rect) IsEmpty() bool   { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }
func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }
func (r Rect) CenterX() float64 { return (r.X0 + r.X1) / 2 }
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }

func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{Min(r.X0, other.X0), Min(r.Y0, other.Y0), Max(r.X1, other.X1), Max(r.Y1, other.Y1)}
}

func (r Rect) Intersect(other Rect) Rect {
	result := Rect{Max(r.X0, other.X0), Max(r.Y0, other.Y0), Min(r.X1, other.X1), Min(r.Y1, other.Y1)}
	if result.IsEmpty() {
		return Empty
	}
	return result
}

func (r Rect) IntersectArea(other Rect) float64 { return r.Intersect(other).Area() }

// IoU is intersection area over union area, 0 when either rect is empty.
func (r Rect) IoU(other Rect) float64 {
	inter := r.IntersectArea(other)
	if inter <= 0 {
		return 0
	}
	union := r.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// XOverlapRatio is the horizontal overlap divided by the narrower width.
func (r Rect) XOverlapRatio(other Rect) float64 {
	overlap := Min(r.X1, other.X1) - Max(r.X0, other.X0)
	if overlap <= 0 {
		return 0
	}
	narrow := Min(r.Width(), other.Width())
	if narrow <= 0 {
		return 0
	}
	return overlap / narrow
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func Abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
