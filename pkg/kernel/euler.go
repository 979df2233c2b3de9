package kernel

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
)

// fresnelTerms is enough for |u| ≤ 2.5 to reach double precision.
const fresnelTerms = 24

// Fresnel returns the integrals ∫₀ᵘ cos(t²/2) dt and ∫₀ᵘ sin(t²/2) dt using
// their power series. This is the clothoid of unit scale: curvature equals
// arc length.
func Fresnel(u float64) (c, s float64) {
	u2 := u * u
	x := u2 * u2 / 4 // (u²/2)²
	// term_n = (-1)^n · (u²/2)^(2n) / (2n)!  for cos, shifted by one for sin
	tc := u
	ts := u * u2 / 2
	for n := 0; n < fresnelTerms; n++ {
		c += tc / float64(4*n+1)
		s += ts / float64(4*n+3)
		tc *= -x / float64((2*n+1)*(2*n+2))
		ts *= -x / float64((2*n+2)*(2*n+3))
		if math.Abs(tc) < 1e-18 && math.Abs(ts) < 1e-18 {
			break
		}
	}
	return c, s
}

// EulerResult is a sampled Euler bend.
type EulerResult struct {
	Points     []geom.DPoint // Centreline, starting at the origin heading +x
	MinRadius  float64       // Radius of the circular midsection (µm)
	Separation float64       // Distance between the two end points (µm)
}

// eulerShape builds an Euler bend of unit clothoid scale turning left by
// theta radians, sampled with chord steps of at most step (unit scale).
// The first half is a clothoid of angle p·θ/2 followed by half of the
// circular midsection; the second half is its mirror image across the line
// through the mid point perpendicular to the mid heading.
func eulerShape(theta, p, step float64) (pts []geom.DPoint, rmin float64) {
	phiC := p * theta / 2
	sp := math.Sqrt(2 * phiC) // clothoid length: heading = s²/2
	rp := 1 / sp
	halfArc := (1 - p) * theta / 2

	m1 := max(4, int(math.Ceil(sp/step)))
	half := make([]geom.DPoint, 0, m1+8)
	for i := 0; i <= m1; i++ {
		c, s := Fresnel(sp * float64(i) / float64(m1))
		half = append(half, geom.DPoint{X: c, Y: s})
	}
	if halfArc > 0 {
		end := half[len(half)-1]
		sn, cs := math.Sincos(phiC)
		centre := geom.DPoint{X: end.X - rp*sn, Y: end.Y + rp*cs}
		m2 := max(1, int(math.Ceil(halfArc*rp/step)))
		for i := 1; i <= m2; i++ {
			phi := phiC + halfArc*float64(i)/float64(m2)
			sn, cs := math.Sincos(phi)
			half = append(half, geom.DPoint{X: centre.X + rp*sn, Y: centre.Y - rp*cs})
		}
	}

	mid := half[len(half)-1]
	d := geom.Dir(theta*90/math.Pi + 90)
	pts = make([]geom.DPoint, 0, 2*len(half)-1)
	pts = append(pts, half...)
	for i := len(half) - 2; i >= 0; i-- {
		q := half[i].Sub(mid)
		pts = append(pts, mid.Add(d.Scale(2*q.Dot(d))).Sub(q))
	}
	return pts, rp
}

func checkEuler(p float64) error {
	if !(p > 0 && p <= 1) {
		return domainErr("euler shape parameter p=%g outside (0,1]", p)
	}
	return nil
}

// EulerBend returns an Euler bend turning left by theta degrees in (0,180),
// scaled so that its tangent length equals r·tan(θ/2), the footprint of a
// circular bend of radius r. Negative theta turns right.
func EulerBend(r, theta, p float64, tol Tolerance) (EulerResult, error) {
	if err := checkEuler(p); err != nil {
		return EulerResult{}, err
	}
	if r <= 0 {
		return EulerResult{}, domainErr("euler radius %g must be positive", r)
	}
	at := math.Abs(theta)
	if at == 0 || at >= 180 {
		return EulerResult{}, domainErr("euler bend angle %g outside (0,180)", theta)
	}
	th := at * math.Pi / 180
	unit, _ := eulerShape(th, p, 0.05)
	e := unit[len(unit)-1]
	tangent := e.X - e.Y*math.Cos(th)/math.Sin(th)
	k := r * math.Tan(th/2) / tangent

	res := eulerScaled(th, p, k, tol)
	if theta < 0 {
		res.Points = geom.DTransform{Mirror: true}.ApplyAll(res.Points)
	}
	return res, nil
}

// EulerBend180 returns a 180° Euler bend whose end points are 2R apart.
func EulerBend180(R, p float64, tol Tolerance) (EulerResult, error) {
	if err := checkEuler(p); err != nil {
		return EulerResult{}, err
	}
	if R <= 0 {
		return EulerResult{}, domainErr("euler radius %g must be positive", R)
	}
	unit, _ := eulerShape(math.Pi, p, 0.05)
	sep := unit[len(unit)-1].Norm()
	return eulerScaled(math.Pi, p, 2*R/sep, tol), nil
}

// EulerClothoid180 returns a 180° Euler bend at clothoid scale R0. Its
// minimum radius of curvature is exactly R0/√(p·π).
func EulerClothoid180(R0, p float64, tol Tolerance) (EulerResult, error) {
	if err := checkEuler(p); err != nil {
		return EulerResult{}, err
	}
	if R0 <= 0 {
		return EulerResult{}, domainErr("euler scale %g must be positive", R0)
	}
	return eulerScaled(math.Pi, p, R0, tol), nil
}

func eulerScaled(theta, p, k float64, tol Tolerance) EulerResult {
	rminUnit := 1 / math.Sqrt(p*theta)
	step := chordStep(rminUnit*k, tol) / k
	unit, rp := eulerShape(theta, p, step)
	pts := make([]geom.DPoint, len(unit))
	for i, q := range unit {
		pts[i] = q.Scale(k)
	}
	return EulerResult{
		Points:     pts,
		MinRadius:  rp * k,
		Separation: pts[len(pts)-1].Norm(),
	}
}
