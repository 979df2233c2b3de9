package kernel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

func TestPointsForArcFloor(t *testing.T) {
	tol := DefaultTolerance()
	assert.Equal(t, MinArcPoints, PointsForArc(0.5, 10, tol))
	// 90° of r=5µm: 2π·5000/4 / (2·sqrt(2·5000−1)) ≈ 39.3 → 40 segments
	assert.Equal(t, 40, PointsForArc(5, 90, tol))
}

func TestArcSagittaBound(t *testing.T) {
	tol := DefaultTolerance()
	for _, tc := range []struct{ r, a1, a2 float64 }{
		{5, 0, 90}, {10, -30, 250}, {0.8, 0, 360}, {120, 45, 47},
	} {
		pts, err := Arc(tc.r, tc.a1, tc.a2, tol)
		require.NoError(t, err)
		require.Equal(t, PointsForArc(tc.r, tc.a2-tc.a1, tol)+1, len(pts))
		for i := 1; i < len(pts); i++ {
			mid := pts[i].Add(pts[i-1]).Scale(0.5)
			sagitta := (tc.r - mid.Norm()) / tol.DBU
			assert.Less(t, sagitta, tol.MaxError, "r=%g segment %d", tc.r, i)
		}
		assert.InDelta(t, tc.r, pts[0].Norm(), 1e-12)
	}
}

func TestArcDomainErrors(t *testing.T) {
	tol := DefaultTolerance()
	_, err := Arc(0, 0, 90, tol)
	assert.True(t, errors.Is(err, pdkerr.ErrParameterDomain))
	_, err = ArcWaveguide(1, 2, 0, 90, tol)
	assert.True(t, errors.Is(err, pdkerr.ErrParameterDomain))
	_, err = ArcWaveguide(1, -0.1, 0, 90, tol)
	assert.True(t, errors.Is(err, pdkerr.ErrParameterDomain))
}

func TestArcWaveguideArea(t *testing.T) {
	tol := DefaultTolerance()
	poly, err := ArcWaveguide(10, 0.5, 0, 90, tol)
	require.NoError(t, err)
	want := math.Pi / 4 * (10.25*10.25 - 9.75*9.75)
	assert.InEpsilon(t, want, math.Abs(geom.SignedAreaD(poly)), 1e-4)
}

func TestBezierEndpointTangency(t *testing.T) {
	tol := DefaultTolerance()
	p0 := geom.DPoint{}
	p3 := geom.DPoint{X: 10, Y: 4}
	for _, h := range [][2]float64{{0, 0}, {0, 90}, {30, -45}} {
		pts, err := BezierCubic(p0, p3, h[0], h[1], 0.3, 0.45, tol)
		require.NoError(t, err)
		assert.Equal(t, p0, pts[0])
		assert.Equal(t, p3, pts[len(pts)-1])

		c := BezierControl(p0, p3, h[0], h[1], 0.3, 0.45)
		d0 := BezierDerivative(c, 0)
		d1 := BezierDerivative(c, 1)
		assert.Less(t, math.Abs(geom.AngleDiff(geom.Heading(d0), h[0]))*math.Pi/180, 1e-4)
		assert.Less(t, math.Abs(geom.AngleDiff(geom.Heading(d1), h[1]))*math.Pi/180, 1e-4)
	}
}

func TestBezierDeviation(t *testing.T) {
	tol := DefaultTolerance()
	p0, p3 := geom.DPoint{}, geom.DPoint{X: 20, Y: 8}
	pts, err := BezierCubic(p0, p3, 0, 0, 0.5, 0.5, tol)
	require.NoError(t, err)
	c := BezierControl(p0, p3, 0, 0, 0.5, 0.5)
	for i := 0; i <= 1000; i++ {
		q := BezierPoint(c, float64(i)/1000)
		best := math.Inf(1)
		for j := 1; j < len(pts); j++ {
			best = math.Min(best, segmentDistance(q, pts[j-1], pts[j]))
		}
		assert.Less(t, best, tol.BezierAccuracy+1e-9)
	}
}

func TestBezierDomain(t *testing.T) {
	_, err := BezierCubic(geom.DPoint{}, geom.DPoint{X: 1}, 0, 0, 1.2, 0.5, DefaultTolerance())
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
	_, err = BezierCubic(geom.DPoint{}, geom.DPoint{}, 0, 0, 0.5, 0.5, DefaultTolerance())
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
}

func TestFresnelKnownValues(t *testing.T) {
	// ∫₀^√π cos(t²/2) = √π·C(1) with the normalised Fresnel C(1)=0.7798934.
	c, s := Fresnel(math.Sqrt(math.Pi))
	assert.InDelta(t, math.Sqrt(math.Pi)*0.7798934004, c, 1e-8)
	assert.InDelta(t, math.Sqrt(math.Pi)*0.4382591474, s, 1e-8)
}

func minCircumradius(pts []geom.DPoint) float64 {
	best := math.Inf(1)
	for i := 1; i+1 < len(pts); i++ {
		a := pts[i].Dist(pts[i-1])
		b := pts[i+1].Dist(pts[i])
		c := pts[i+1].Dist(pts[i-1])
		area := math.Abs(pts[i].Sub(pts[i-1]).Cross(pts[i+1].Sub(pts[i-1]))) / 2
		if area == 0 {
			continue
		}
		best = math.Min(best, a*b*c/(4*area))
	}
	return best
}

func TestEulerClothoidMinRadius(t *testing.T) {
	tol := DefaultTolerance()
	for _, p := range []float64{0.25, 0.5, 0.8} {
		res, err := EulerClothoid180(5, p, tol)
		require.NoError(t, err)
		want := 5 / math.Sqrt(p*math.Pi)
		assert.InEpsilon(t, want, res.MinRadius, 1e-9)
		assert.InEpsilon(t, want, minCircumradius(res.Points), 0.01, "p=%g", p)
	}
}

func TestEulerBend180Separation(t *testing.T) {
	res, err := EulerBend180(5, 0.25, DefaultTolerance())
	require.NoError(t, err)
	assert.InDelta(t, 10, res.Separation, 1e-9)
	first := res.Points[1].Sub(res.Points[0])
	n := len(res.Points)
	last := res.Points[n-1].Sub(res.Points[n-2])
	assert.InDelta(t, 0, first.Unit().Add(last.Unit()).Norm(), 1e-2)
	assert.InEpsilon(t, res.MinRadius, minCircumradius(res.Points), 0.01)
	assert.Less(t, res.MinRadius, 5.0)
}

func TestEulerBendFootprint(t *testing.T) {
	res, err := EulerBend(5, 90, 0.5, DefaultTolerance())
	require.NoError(t, err)
	end := res.Points[len(res.Points)-1]
	assert.InDelta(t, 5, end.X, 1e-6)
	assert.InDelta(t, 5, end.Y, 1e-6)

	right, err := EulerBend(5, -90, 0.5, DefaultTolerance())
	require.NoError(t, err)
	end = right.Points[len(right.Points)-1]
	assert.InDelta(t, -5, end.Y, 1e-6)

	_, err = EulerBend(5, 90, 0, DefaultTolerance())
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
}

func TestTranslateFromNormalStraight(t *testing.T) {
	pts := []geom.DPoint{{X: 0}, {X: 5}, {X: 10}}
	left, err := TranslateFromNormal(pts, 0.25)
	require.NoError(t, err)
	for _, p := range left {
		assert.InDelta(t, 0.25, p.Y, 1e-12)
	}
	poly, err := Ribbon(pts, 0.5, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, math.Abs(geom.SignedAreaD(poly)), 1e-12)
}

func TestBoxWithBezierCorners(t *testing.T) {
	tol := DefaultTolerance()
	sharp, err := BoxWithBezierCorners(4, 2, 0, tol)
	require.NoError(t, err)
	assert.Len(t, sharp, 4)

	round, err := BoxWithBezierCorners(4, 2, 1, tol)
	require.NoError(t, err)
	area := geom.SignedAreaD(round)
	assert.Greater(t, area, 0.0)
	// Four quarter circles of radius 1 cut (4-π)·1² from the corners.
	assert.InDelta(t, 8-(4-math.Pi), area, 0.01)

	_, err = BoxWithBezierCorners(4, 2, 1.5, tol)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
}
