package geom

import (
	"fmt"
	"math"
)

// Transform is a rigid grid transformation: optional mirror about the x
// axis, then a counter-clockwise rotation by Rot quarter turns, then a
// displacement.
type Transform struct {
	Rot    int    // Quarter turns, normalised to 0..3
	Mirror bool   // Mirror about the x axis before rotating
	Disp   Vector // Displacement applied last
}

// Identity returns the identity transform.
func Identity() Transform { return Transform{} }

// Translation returns a pure displacement.
func Translation(v Vector) Transform { return Transform{Disp: v} }

// NewTransform builds a transform from a rotation angle in degrees, which
// must be a multiple of 90.
func NewTransform(angleDeg int, mirror bool, disp Vector) (Transform, error) {
	q, err := QuarterTurns(angleDeg)
	if err != nil {
		return Transform{}, err
	}
	return Transform{Rot: q, Mirror: mirror, Disp: disp}, nil
}

// QuarterTurns converts a multiple of 90 degrees to 0..3.
func QuarterTurns(angleDeg int) (int, error) {
	if angleDeg%90 != 0 {
		return 0, fmt.Errorf("geom: angle %d is not a multiple of 90", angleDeg)
	}
	return normRot(angleDeg / 90), nil
}

func normRot(q int) int {
	q %= 4
	if q < 0 {
		q += 4
	}
	return q
}

// Angle returns the rotation in degrees.
func (t Transform) Angle() int { return normRot(t.Rot) * 90 }

// ApplyVector transforms a displacement (rotation and mirror only).
func (t Transform) ApplyVector(v Vector) Vector {
	x, y := v.X, v.Y
	if t.Mirror {
		y = -y
	}
	switch normRot(t.Rot) {
	case 1:
		x, y = -y, x
	case 2:
		x, y = -x, -y
	case 3:
		x, y = y, -x
	}
	return Vector{x, y}
}

// Apply transforms a point.
func (t Transform) Apply(p Point) Point {
	v := t.ApplyVector(Vector{p.X, p.Y})
	return Point{v.X + t.Disp.X, v.Y + t.Disp.Y}
}

// ApplyAll transforms a point list into a new slice.
func (t Transform) ApplyAll(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

// ApplyAngle maps a direction angle (multiple of 90 degrees) through t.
func (t Transform) ApplyAngle(angleDeg int) int {
	a := angleDeg
	if t.Mirror {
		a = -a
	}
	return normAngle(a + t.Angle())
}

// Compose returns the transform that applies other first and then t.
func (t Transform) Compose(other Transform) Transform {
	rot := other.Rot
	if t.Mirror {
		rot = -rot
	}
	return Transform{
		Rot:    normRot(t.Rot + rot),
		Mirror: t.Mirror != other.Mirror,
		Disp:   t.ApplyVector(other.Disp).Add(t.Disp),
	}
}

// Invert returns the inverse transform.
func (t Transform) Invert() Transform {
	inv := Transform{Mirror: t.Mirror}
	if t.Mirror {
		inv.Rot = normRot(t.Rot)
	} else {
		inv.Rot = normRot(-t.Rot)
	}
	inv.Disp = inv.ApplyVector(t.Disp).Neg()
	return inv
}

// IsIdentity reports whether t leaves every point unchanged.
func (t Transform) IsIdentity() bool {
	return normRot(t.Rot) == 0 && !t.Mirror && t.Disp == (Vector{})
}

func (t Transform) String() string {
	m := ""
	if t.Mirror {
		m = "m"
	}
	return fmt.Sprintf("r%d%s %d,%d", t.Angle(), m, t.Disp.X, t.Disp.Y)
}

// CardinalVector returns the unit grid vector for a multiple of 90 degrees.
func CardinalVector(angleDeg int) Vector {
	switch normAngle(angleDeg) {
	case 0:
		return Vector{1, 0}
	case 90:
		return Vector{0, 1}
	case 180:
		return Vector{-1, 0}
	default:
		return Vector{0, -1}
	}
}

// AngleOf returns the cardinal angle of an axis-aligned vector, or an error
// for the zero vector and diagonal vectors.
func AngleOf(v Vector) (int, error) {
	switch {
	case v.X > 0 && v.Y == 0:
		return 0, nil
	case v.X == 0 && v.Y > 0:
		return 90, nil
	case v.X < 0 && v.Y == 0:
		return 180, nil
	case v.X == 0 && v.Y < 0:
		return 270, nil
	}
	return 0, fmt.Errorf("geom: vector %v is not axis aligned", v)
}

func normAngle(a int) int {
	a %= 360
	if a < 0 {
		a += 360
	}
	return a
}

// NormAngle normalises an angle in degrees to [0, 360).
func NormAngle(a int) int { return normAngle(a) }

// DTransform is the micrometre counterpart of Transform with an arbitrary
// rotation angle, used by the geometry kernel to place curves.
type DTransform struct {
	Angle  float64 // Counter-clockwise rotation in degrees
	Mirror bool    // Mirror about the x axis before rotating
	Disp   DPoint  // Displacement applied last
}

// Apply transforms a micrometre point.
func (t DTransform) Apply(p DPoint) DPoint {
	if t.Mirror {
		p.Y = -p.Y
	}
	if t.Angle != 0 {
		p = p.Rotated(t.Angle)
	}
	return p.Add(t.Disp)
}

// ApplyAll transforms a micrometre point list into a new slice.
func (t DTransform) ApplyAll(pts []DPoint) []DPoint {
	out := make([]DPoint, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

// AngleDiff returns a-b wrapped to (-180, 180].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}
