package kernel

import (
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
)

// TranslateFromNormal offsets every vertex of an open polyline by d along
// its left-hand normal. Interior normals come from the central difference
// of the neighbours; the end points use the normal of their own segment.
// Consecutive duplicate points must have been removed.
func TranslateFromNormal(pts []geom.DPoint, d float64) ([]geom.DPoint, error) {
	n := len(pts)
	if n < 2 {
		return nil, domainErr("offset needs at least 2 points, got %d", n)
	}
	out := make([]geom.DPoint, n)
	for i := range pts {
		var t geom.DPoint
		switch i {
		case 0:
			t = pts[1].Sub(pts[0])
		case n - 1:
			t = pts[n-1].Sub(pts[n-2])
		default:
			t = pts[i+1].Sub(pts[i-1])
			if t.Norm() == 0 {
				t = pts[i].Sub(pts[i-1])
			}
		}
		t = t.Unit()
		if t.Norm() == 0 {
			return nil, domainErr("offset at duplicate vertex %d", i)
		}
		out[i] = pts[i].Add(geom.DPoint{X: -t.Y, Y: t.X}.Scale(d))
	}
	return out, nil
}

// Ribbon returns the closed outline of a strip of width w centred at offset
// off from the centreline: the left edge forward, then the right edge
// backward.
func Ribbon(center []geom.DPoint, w, off float64) ([]geom.DPoint, error) {
	if w <= 0 {
		return nil, domainErr("strip width %g must be positive", w)
	}
	left, err := TranslateFromNormal(center, off+w/2)
	if err != nil {
		return nil, err
	}
	right, err := TranslateFromNormal(center, off-w/2)
	if err != nil {
		return nil, err
	}
	poly := make([]geom.DPoint, 0, 2*len(center))
	poly = append(poly, left...)
	poly = append(poly, geom.Reversed(right)...)
	return poly, nil
}

// TaperRibbon is Ribbon with a width that varies linearly along the
// polyline from w1 to w2. Either width may be zero but not both.
func TaperRibbon(center []geom.DPoint, w1, w2, off1, off2 float64) ([]geom.DPoint, error) {
	if w1 < 0 || w2 < 0 || (w1 == 0 && w2 == 0) {
		return nil, domainErr("taper widths %g, %g invalid", w1, w2)
	}
	total := geom.PolylineLength(center)
	if total == 0 {
		return nil, domainErr("taper centreline has zero length")
	}
	left := make([]geom.DPoint, len(center))
	right := make([]geom.DPoint, len(center))
	unitL, err := TranslateFromNormal(center, 1)
	if err != nil {
		return nil, err
	}
	acc := 0.0
	for i, p := range center {
		if i > 0 {
			acc += p.Dist(center[i-1])
		}
		f := acc / total
		w := w1 + (w2-w1)*f
		off := off1 + (off2-off1)*f
		nrm := unitL[i].Sub(p)
		left[i] = p.Add(nrm.Scale(off + w/2))
		right[i] = p.Add(nrm.Scale(off - w/2))
	}
	poly := make([]geom.DPoint, 0, 2*len(center))
	poly = append(poly, left...)
	poly = append(poly, geom.Reversed(right)...)
	return poly, nil
}
