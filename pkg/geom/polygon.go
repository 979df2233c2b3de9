package geom

import "math"

// SignedArea returns the shoelace area of a closed grid polygon in dbu².
// The result is positive for counter-clockwise orientation.
func SignedArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var acc int64
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		acc += int64(p.X)*int64(q.Y) - int64(q.X)*int64(p.Y)
	}
	return float64(acc) / 2
}

// SignedAreaD is the micrometre version of SignedArea.
func SignedAreaD(pts []DPoint) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	acc := 0.0
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		acc += p.X*q.Y - q.X*p.Y
	}
	return acc / 2
}

// IsCCW reports whether a closed polygon winds counter-clockwise.
func IsCCW(pts []Point) bool { return SignedArea(pts) > 0 }

// Reversed returns pts in reverse order as a new slice.
func Reversed[T any](pts []T) []T {
	out := make([]T, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// Dedupe drops consecutive duplicate points. When closed is set, a last
// point equal to the first is dropped as well.
func Dedupe(pts []Point, closed bool) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if closed {
		for len(out) > 1 && out[0] == out[len(out)-1] {
			out = out[:len(out)-1]
		}
	}
	return out
}

// DedupeD drops consecutive micrometre points closer than eps.
func DedupeD(pts []DPoint, eps float64) []DPoint {
	out := make([]DPoint, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Dist(p) <= eps {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DistinctCount returns the number of distinct points in pts.
func DistinctCount(pts []Point) int {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// BoxOf returns the bounding box of a point list.
func BoxOf(pts []Point) Box {
	b := EmptyBox()
	for _, p := range pts {
		b.Expand(p)
	}
	return b
}

// PolylineLength returns the length of an open micrometre polyline.
func PolylineLength(pts []DPoint) float64 {
	l := 0.0
	for i := 1; i < len(pts); i++ {
		l += pts[i].Dist(pts[i-1])
	}
	return l
}

// PolylineLengthDBU returns the length of an open grid polyline in dbu.
func PolylineLengthDBU(pts []Point) float64 {
	l := 0.0
	for i := 1; i < len(pts); i++ {
		l += math.Hypot(float64(pts[i].X-pts[i-1].X), float64(pts[i].Y-pts[i-1].Y))
	}
	return l
}
