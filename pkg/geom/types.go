// Package geom provides the planar primitives of the layout database.
//
// Layout coordinates are integer multiples of the database unit (dbu,
// typically 1 nm). User-facing parameters are micrometres held in DPoint and
// converted at the boundary with ToDBU / FromDBU.
package geom

import (
	"fmt"
	"math"
)

// DefaultDBU is the database unit in micrometres (1 nm).
const DefaultDBU = 0.001

// Point is a position in database units.
type Point struct {
	X int
	Y int
}

// Vector is a displacement in database units.
type Vector struct {
	X int
	Y int
}

// DPoint is a position in micrometres.
type DPoint struct {
	X float64
	Y float64
}

func (p Point) String() string  { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }
func (v Vector) String() string { return fmt.Sprintf("<%d,%d>", v.X, v.Y) }
func (p DPoint) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

// Add returns p displaced by v.
func (p Point) Add(v Vector) Point { return Point{p.X + v.X, p.Y + v.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Vector { return Vector{p.X - q.X, p.Y - q.Y} }

// Add returns the sum of two vectors.
func (v Vector) Add(w Vector) Vector { return Vector{v.X + w.X, v.Y + w.Y} }

// Scale multiplies v by an integer factor.
func (v Vector) Scale(k int) Vector { return Vector{v.X * k, v.Y * k} }

// Neg returns -v.
func (v Vector) Neg() Vector { return Vector{-v.X, -v.Y} }

// Length returns the Euclidean length of v in dbu.
func (v Vector) Length() float64 { return math.Hypot(float64(v.X), float64(v.Y)) }

// Add returns p + q.
func (p DPoint) Add(q DPoint) DPoint { return DPoint{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p DPoint) Sub(q DPoint) DPoint { return DPoint{p.X - q.X, p.Y - q.Y} }

// Scale returns p * k.
func (p DPoint) Scale(k float64) DPoint { return DPoint{p.X * k, p.Y * k} }

// Dot returns the scalar product of p and q taken as vectors.
func (p DPoint) Dot(q DPoint) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of p × q.
func (p DPoint) Cross(q DPoint) float64 { return p.X*q.Y - p.Y*q.X }

// Norm returns the Euclidean length of p taken as a vector.
func (p DPoint) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q.
func (p DPoint) Dist(q DPoint) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Unit returns p scaled to unit length; the zero vector is returned as is.
func (p DPoint) Unit() DPoint {
	n := p.Norm()
	if n == 0 {
		return p
	}
	return DPoint{p.X / n, p.Y / n}
}

// Rotated returns p rotated counter-clockwise by deg degrees about the origin.
func (p DPoint) Rotated(deg float64) DPoint {
	s, c := math.Sincos(deg * math.Pi / 180)
	return DPoint{p.X*c - p.Y*s, p.X*s + p.Y*c}
}

// Dir returns the unit vector pointing at angle deg.
func Dir(deg float64) DPoint {
	s, c := math.Sincos(deg * math.Pi / 180)
	return DPoint{c, s}
}

// Heading returns the angle of vector p in degrees, in (-180, 180].
func Heading(p DPoint) float64 {
	return math.Atan2(p.Y, p.X) * 180 / math.Pi
}

// ToDBU converts a micrometre point to the integer grid, rounding half away
// from zero.
func ToDBU(p DPoint, dbu float64) Point {
	return Point{Round(p.X / dbu), Round(p.Y / dbu)}
}

// FromDBU converts a grid point to micrometres.
func FromDBU(p Point, dbu float64) DPoint {
	return DPoint{float64(p.X) * dbu, float64(p.Y) * dbu}
}

// Round rounds half away from zero to the nearest integer.
func Round(v float64) int {
	return int(math.Round(v))
}

// ToDBUAll converts a micrometre polyline to the grid.
func ToDBUAll(pts []DPoint, dbu float64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = ToDBU(p, dbu)
	}
	return out
}

// FromDBUAll converts a grid polyline to micrometres.
func FromDBUAll(pts []Point, dbu float64) []DPoint {
	out := make([]DPoint, len(pts))
	for i, p := range pts {
		out[i] = FromDBU(p, dbu)
	}
	return out
}
