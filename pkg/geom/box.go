package geom

import "math"

// Box is an axis-aligned rectangle on the dbu grid. The zero value is not
// empty; use EmptyBox to start an accumulation.
type Box struct {
	Min Point // Lower-left corner
	Max Point // Upper-right corner
}

// EmptyBox returns a box that contains nothing and absorbs the first point
// passed to Expand.
func EmptyBox() Box {
	return Box{
		Min: Point{X: math.MaxInt, Y: math.MaxInt},
		Max: Point{X: math.MinInt, Y: math.MinInt},
	}
}

// NewBox returns the box spanned by two corners in any order.
func NewBox(a, b Point) Box {
	return Box{
		Min: Point{min(a.X, b.X), min(a.Y, b.Y)},
		Max: Point{max(a.X, b.X), max(a.Y, b.Y)},
	}
}

// IsEmpty reports whether the box contains no point.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y
}

// Expand grows the box to include p.
func (b *Box) Expand(p Point) {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
}

// ExpandBox grows the box to include other.
func (b *Box) ExpandBox(other Box) {
	if !other.IsEmpty() {
		b.Expand(other.Min)
		b.Expand(other.Max)
	}
}

// Width returns the horizontal extent.
func (b Box) Width() int { return b.Max.X - b.Min.X }

// Height returns the vertical extent.
func (b Box) Height() int { return b.Max.Y - b.Min.Y }

// Center returns the centre point, rounded towards the lower-left.
func (b Box) Center() Point {
	return Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// OnBoundary reports whether p lies on one of the four edges of the box.
func (b Box) OnBoundary(p Point) bool {
	if !b.Contains(p) {
		return false
	}
	return p.X == b.Min.X || p.X == b.Max.X || p.Y == b.Min.Y || p.Y == b.Max.Y
}

// Intersects reports whether two boxes overlap or touch.
func (b Box) Intersects(other Box) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y
}

// Corners returns the four corners counter-clockwise from Min.
func (b Box) Corners() []Point {
	return []Point{
		b.Min,
		{b.Max.X, b.Min.Y},
		b.Max,
		{b.Min.X, b.Max.Y},
	}
}

// Transformed returns the bounding box of b under t.
func (b Box) Transformed(t Transform) Box {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for _, c := range b.Corners() {
		out.Expand(t.Apply(c))
	}
	return out
}

// Enlarged returns b grown by d on every side.
func (b Box) Enlarged(d int) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{
		Min: Point{b.Min.X - d, b.Min.Y - d},
		Max: Point{b.Max.X + d, b.Max.Y + d},
	}
}
