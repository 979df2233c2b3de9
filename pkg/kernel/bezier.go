package kernel

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
)

// maxBezierDepth bounds the recursive subdivision (2^16 segments).
const maxBezierDepth = 16

// BezierControl returns the four control points of the cubic between p0 and
// p3 whose end tangents point along headings t0 and t3 (degrees):
//
//	P1 = P0 + a·t̂0·‖P3−P0‖
//	P2 = P3 − b·t̂3·‖P3−P0‖
func BezierControl(p0, p3 geom.DPoint, t0, t3, a, b float64) [4]geom.DPoint {
	d := p3.Dist(p0)
	p1 := p0.Add(geom.Dir(t0).Scale(a * d))
	p2 := p3.Sub(geom.Dir(t3).Scale(b * d))
	return [4]geom.DPoint{p0, p1, p2, p3}
}

// BezierPoint evaluates the cubic at parameter t in [0,1].
func BezierPoint(c [4]geom.DPoint, t float64) geom.DPoint {
	m := 1 - t
	b0 := m * m * m
	b1 := 3 * m * m * t
	b2 := 3 * m * t * t
	b3 := t * t * t
	return geom.DPoint{
		X: b0*c[0].X + b1*c[1].X + b2*c[2].X + b3*c[3].X,
		Y: b0*c[0].Y + b1*c[1].Y + b2*c[2].Y + b3*c[3].Y,
	}
}

// BezierDerivative evaluates the first derivative of the cubic at t.
func BezierDerivative(c [4]geom.DPoint, t float64) geom.DPoint {
	m := 1 - t
	d0 := c[1].Sub(c[0]).Scale(3 * m * m)
	d1 := c[2].Sub(c[1]).Scale(6 * m * t)
	d2 := c[3].Sub(c[2]).Scale(3 * t * t)
	return d0.Add(d1).Add(d2)
}

// BezierCubic samples the cubic defined by BezierControl adaptively so that
// the polyline never deviates from the curve by more than the tolerance's
// BezierAccuracy. The first and last points are exactly p0 and p3.
func BezierCubic(p0, p3 geom.DPoint, t0, t3, a, b float64, tol Tolerance) ([]geom.DPoint, error) {
	if !(a > 0 && a < 1) {
		return nil, domainErr("bezier parameter a=%g outside (0,1)", a)
	}
	if !(b > 0 && b < 1) {
		return nil, domainErr("bezier parameter b=%g outside (0,1)", b)
	}
	if p0 == p3 {
		return nil, domainErr("bezier end points coincide")
	}
	if tol.BezierAccuracy <= 0 {
		return nil, domainErr("bezier accuracy %g must be positive", tol.BezierAccuracy)
	}
	c := BezierControl(p0, p3, t0, t3, a, b)
	pts := []geom.DPoint{p0}
	flattenCubic(c, tol.BezierAccuracy, 0, &pts)
	pts[len(pts)-1] = p3
	return pts, nil
}

// flattenCubic appends the end point of c once the control polygon lies
// within acc of the chord, and subdivides at t=1/2 otherwise. The curve is
// contained in the convex hull of its control points, so the control
// distance bounds the deviation of the chord.
func flattenCubic(c [4]geom.DPoint, acc float64, depth int, out *[]geom.DPoint) {
	if depth >= maxBezierDepth || controlDistance(c) <= acc {
		*out = append(*out, c[3])
		return
	}
	l, r := splitCubic(c)
	flattenCubic(l, acc, depth+1, out)
	flattenCubic(r, acc, depth+1, out)
}

func controlDistance(c [4]geom.DPoint) float64 {
	return math.Max(segmentDistance(c[1], c[0], c[3]), segmentDistance(c[2], c[0], c[3]))
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b geom.DPoint) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}

func splitCubic(c [4]geom.DPoint) ([4]geom.DPoint, [4]geom.DPoint) {
	mid := func(p, q geom.DPoint) geom.DPoint { return p.Add(q).Scale(0.5) }
	p01 := mid(c[0], c[1])
	p12 := mid(c[1], c[2])
	p23 := mid(c[2], c[3])
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	m := mid(p012, p123)
	return [4]geom.DPoint{c[0], p01, p012, m}, [4]geom.DPoint{m, p123, p23, c[3]}
}

// BezierBend returns a symmetric Bezier bend turning by theta degrees
// (positive = left), starting at the origin heading +x, whose tangent length
// matches a circular bend of radius r. The shape parameter bz is used for
// both ends.
func BezierBend(r, theta, bz float64, tol Tolerance) ([]geom.DPoint, error) {
	if r <= 0 {
		return nil, domainErr("bend radius %g must be positive", r)
	}
	if theta == 0 || math.Abs(theta) >= 180 {
		return nil, domainErr("bezier bend angle %g outside (0,180)", theta)
	}
	tl := r * math.Tan(math.Abs(theta)*math.Pi/360)
	end := geom.DPoint{X: tl}.Add(geom.Dir(theta).Scale(tl))
	return BezierCubic(geom.DPoint{}, end, 0, theta, bz, bz, tol)
}

// BoxWithBezierCorners returns a w×h rectangle centred at the origin whose
// corners are quarter Bezier fillets of radius f·min(w,h)/2. The outline is
// counter-clockwise.
func BoxWithBezierCorners(w, h, f float64, tol Tolerance) ([]geom.DPoint, error) {
	if w <= 0 || h <= 0 {
		return nil, domainErr("box size %gx%g must be positive", w, h)
	}
	if f < 0 || f > 1 {
		return nil, domainErr("corner fraction %g outside [0,1]", f)
	}
	hw, hh := w/2, h/2
	rc := f * math.Min(w, h) / 2
	if rc == 0 {
		return []geom.DPoint{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}, nil
	}
	// Handle length 0.5523·rc expressed as a fraction of the chord rc·√2.
	const k = 0.5522847498 / math.Sqrt2
	corners := []struct {
		from, to geom.DPoint
		t0, t3   float64
	}{
		{geom.DPoint{X: hw - rc, Y: -hh}, geom.DPoint{X: hw, Y: -hh + rc}, 0, 90},
		{geom.DPoint{X: hw, Y: hh - rc}, geom.DPoint{X: hw - rc, Y: hh}, 90, 180},
		{geom.DPoint{X: -hw + rc, Y: hh}, geom.DPoint{X: -hw, Y: hh - rc}, 180, 270},
		{geom.DPoint{X: -hw, Y: -hh + rc}, geom.DPoint{X: -hw + rc, Y: -hh}, 270, 360},
	}
	var out []geom.DPoint
	for _, c := range corners {
		seg, err := BezierCubic(c.from, c.to, c.t0, c.t3, k, k, tol)
		if err != nil {
			return nil, err
		}
		out = append(out, seg...)
	}
	out = geom.DedupeD(out, 1e-9)
	if len(out) > 1 && out[0].Dist(out[len(out)-1]) <= 1e-9 {
		out = out[:len(out)-1]
	}
	return out, nil
}
