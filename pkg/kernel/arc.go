package kernel

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
)

// PointsForArc returns the number of segments N used for an arc of radius r
// (µm) sweeping sweepDeg degrees:
//
//	N = max(12, ceil(|sweep|/360 · 2πr / (2·sqrt(2·r·ε − ε²))))
//
// with r and ε in database units. The chord of every segment is then no
// longer than the chord whose sagitta equals ε.
func PointsForArc(r, sweepDeg float64, tol Tolerance) int {
	rd := r / tol.DBU
	eps := tol.MaxError
	if rd <= eps {
		return MinArcPoints
	}
	chord := 2 * math.Sqrt(2*rd*eps-eps*eps)
	n := int(math.Ceil(math.Abs(sweepDeg) / 360 * 2 * math.Pi * rd / chord))
	return max(MinArcPoints, n)
}

// chordStep returns the longest chord (µm) whose sagitta on a circle of
// radius r stays within the tolerance.
func chordStep(r float64, tol Tolerance) float64 {
	eps := tol.MaxErrorMicrons()
	if r <= eps {
		return r
	}
	return 2 * math.Sqrt(2*r*eps-eps*eps)
}

// Arc returns N+1 points on the circle of radius r centred at the origin,
// from angle a1 to a2 (degrees). The direction of travel follows the sign of
// a2-a1.
func Arc(r, a1, a2 float64, tol Tolerance) ([]geom.DPoint, error) {
	if r <= 0 {
		return nil, domainErr("arc radius %g must be positive", r)
	}
	if a1 == a2 {
		return nil, domainErr("arc sweep is empty")
	}
	n := PointsForArc(r, a2-a1, tol)
	return arcPoints(r, a1, a2, n), nil
}

func arcPoints(r, a1, a2 float64, n int) []geom.DPoint {
	pts := make([]geom.DPoint, n+1)
	for i := 0; i <= n; i++ {
		a := (a1 + (a2-a1)*float64(i)/float64(n)) * math.Pi / 180
		s, c := math.Sincos(a)
		pts[i] = geom.DPoint{X: r * c, Y: r * s}
	}
	return pts
}

// ArcWaveguide returns the closed polygon between the concentric arcs of
// radii r-w/2 and r+w/2, swept from a1 to a2 degrees.
func ArcWaveguide(r, w, a1, a2 float64, tol Tolerance) ([]geom.DPoint, error) {
	if w <= 0 {
		return nil, domainErr("arc waveguide width %g must be positive", w)
	}
	if r <= 0 || w >= 2*r {
		return nil, domainErr("arc waveguide needs 0 < width < 2·radius (r=%g, w=%g)", r, w)
	}
	if a1 == a2 {
		return nil, domainErr("arc sweep is empty")
	}
	n := PointsForArc(r+w/2, a2-a1, tol)
	outer := arcPoints(r+w/2, a1, a2, n)
	inner := arcPoints(r-w/2, a1, a2, n)
	poly := make([]geom.DPoint, 0, 2*(n+1))
	poly = append(poly, outer...)
	poly = append(poly, geom.Reversed(inner)...)
	return poly, nil
}

// ArcSection returns the polyline of a circular bend of radius r turning by
// theta degrees (positive = left), starting at the origin heading +x.
func ArcSection(r, theta float64, tol Tolerance) ([]geom.DPoint, error) {
	if r <= 0 {
		return nil, domainErr("bend radius %g must be positive", r)
	}
	if theta == 0 {
		return nil, domainErr("bend angle is zero")
	}
	if theta > 0 {
		pts, err := Arc(r, -90, -90+theta, tol)
		if err != nil {
			return nil, err
		}
		return geom.DTransform{Disp: geom.DPoint{Y: r}}.ApplyAll(pts), nil
	}
	pts, err := Arc(r, 90, 90+theta, tol)
	if err != nil {
		return nil, err
	}
	return geom.DTransform{Disp: geom.DPoint{Y: -r}}.ApplyAll(pts), nil
}
