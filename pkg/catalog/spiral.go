package catalog

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// spiralArm returns the outward arm of a double spiral: half-turns of
// growing radius whose centres alternate between (-h/2,0) and (h/2,0), so
// that consecutive passes are h apart and the other arm, rotated by 180
// degrees, interleaves with it. The arm starts at (r0,0) heading +y.
// quarter adds a final quarter turn ending at (-h/2, R) heading -x.
func spiralArm(r0, h float64, halfTurns int, quarter bool, tol kernel.Tolerance) ([]geom.DPoint, error) {
	var pts []geom.DPoint
	n := halfTurns
	if quarter {
		n++
	}
	for k := 0; k < n; k++ {
		r := r0 + (float64(k)+0.5)*h
		c, a1 := pt(-h/2, 0), 0.0
		if k%2 == 1 {
			c, a1 = pt(h/2, 0), 180
		}
		a2 := a1 + 180
		if k == halfTurns {
			a2 = a1 + 90
		}
		arc, err := arcAt(c, r, a1, a2, tol)
		if err != nil {
			return nil, err
		}
		pts = append(pts, arc...)
	}
	return pts, nil
}

func negate(pts []geom.DPoint) []geom.DPoint {
	return geom.DTransform{Angle: 180}.ApplyAll(pts)
}

func spiral(t *tech.Technology, sameSide bool) *component {
	name, desc := "Spiral", "Double Archimedean spiral with ports on opposite sides"
	if sameSide {
		name, desc = "Spiral_SameSide", "Double Archimedean spiral with both ports on the left"
	}
	return &component{
		name: name,
		desc: desc,
		params: []pcell.ParamDecl{
			pcell.Double("min_radius", "Minimum radius", 5, pcell.Positive()),
			pcell.Int("turns", "Turns per arm", 3, pcell.Min(1), pcell.Max(maxTurns)),
			pcell.Double("gap", "Gap between passes", 1, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			if wt.IsCompound() {
				wt = wt.Compound.Singlemode
			}
			rmin, turns := p.Float("min_radius"), p.Int("turns")
			if rmin < wt.MinRadius() {
				return domainErr(name, "minimum radius %g below %g", rmin, wt.MinRadius())
			}
			h := wt.Width + p.Float("gap")
			r0 := 2 * rmin
			outer := r0 + float64(2*turns)*h // where the arms leave their last half-turn
			top := r0 + (float64(2*turns)+0.5)*h

			a, err := spiralArm(r0, h, 2*turns, true, ctx.Tol)
			if err != nil {
				return err
			}
			var b []geom.DPoint
			var xe, yb float64
			if sameSide {
				core, err := spiralArm(r0, h, 2*turns, false, ctx.Tol)
				if err != nil {
					return err
				}
				rb := wt.Radius
				turn, err := arcAt(pt(-outer-rb, 0), rb, 0, -90, ctx.Tol)
				if err != nil {
					return err
				}
				xe = math.Max(top, outer+rb) + h
				yb = -rb
				b = concat(negate(core), turn, []geom.DPoint{pt(-xe, yb)})
			} else {
				xe = top + h
				yb = -top
				b = concat(negate(a), []geom.DPoint{pt(xe, yb)})
			}
			a = append(a, pt(-xe, top))

			first, err := arcAt(pt(-r0/2, 0), r0/2, 180, 0, ctx.Tol)
			if err != nil {
				return err
			}
			second, err := arcAt(pt(r0/2, 0), r0/2, 180, 360, ctx.Tol)
			if err != nil {
				return err
			}
			center := concat(geom.Reversed(b), first, second, a)
			res, err := sweep(ctx, cell, center, wt)
			if err != nil {
				return err
			}

			start := pt(xe, yb)
			startAngle := 0
			if sameSide {
				start, startAngle = pt(-xe, yb), 180
			}
			rec := wgRecord(res,
				devrec.Microns("min_radius", rmin),
				devrec.Number("turns", float64(turns)),
				devrec.Microns("spacing", h))
			return finish(cell, rec,
				optical("opt1", start, wt.Width, startAngle),
				optical("opt2", pt(-xe, top), wt.Width, 180))
		},
	}
}
