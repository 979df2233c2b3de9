package catalog

import (
	"math"
	"strconv"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// focusing holds the geometry of a focusing grating coupler. Tooth q lies
// on the ellipse
//
//	r_q(φ) = q·λ / (n_eff − n_clad·sin θ·cos φ)
//
// with n_eff chosen so that the spacing along the axis is the period.
type focusing struct {
	period     float64
	fill       float64
	wavelength float64
	nClad      float64
	theta      float64 // fibre angle, degrees
	focal      float64
	fan        float64 // full fan angle, degrees
	teeth      int
}

func (f focusing) s() float64    { return f.nClad * math.Sin(f.theta*math.Pi/180) }
func (f focusing) nEff() float64 { return f.wavelength/f.period + f.s() }
func (f focusing) q0() int       { return int(math.Ceil(f.focal / f.period)) }

// radius returns r_q at angle phi (degrees), q fractional.
func (f focusing) radius(q, phi float64) float64 {
	return q * f.wavelength / (f.nEff() - f.s()*math.Cos(phi*math.Pi/180))
}

// band returns the outline between the curves r_in(φ) and r_out(φ) for φ
// in [a1, a2].
func band(rIn, rOut func(phi float64) float64, a1, a2 float64, tol kernel.Tolerance) []geom.DPoint {
	n := kernel.PointsForArc(rOut(a2), a2-a1, tol)
	out := make([]geom.DPoint, 0, 2*(n+1))
	for i := 0; i <= n; i++ {
		a := a1 + (a2-a1)*float64(i)/float64(n)
		out = append(out, geom.Dir(a).Scale(rOut(a)))
	}
	for i := n; i >= 0; i-- {
		a := a1 + (a2-a1)*float64(i)/float64(n)
		out = append(out, geom.Dir(a).Scale(rIn(a)))
	}
	return out
}

// tooth returns the inner and outer edge of tooth k.
func (f focusing) tooth(k int) (func(float64) float64, func(float64) float64) {
	q := float64(f.q0() + k)
	in := func(phi float64) float64 { return f.radius(q+1-f.fill, phi) }
	out := func(phi float64) float64 { return f.radius(q+1, phi) }
	return in, out
}

// drawSlab draws the fan from the waveguide at the origin to the first
// tooth.
func (f focusing) drawSlab(cell *layout.Cell, layer string, w float64, tol kernel.Tolerance) error {
	q := float64(f.q0())
	edge := func(phi float64) float64 { return f.radius(q, phi) }
	n := kernel.PointsForArc(edge(f.fan/2), f.fan, tol)
	outline := []geom.DPoint{pt(0, -w/2)}
	for i := 0; i <= n; i++ {
		a := -f.fan/2 + f.fan*float64(i)/float64(n)
		outline = append(outline, geom.Dir(a).Scale(edge(a)))
	}
	outline = append(outline, pt(0, w/2))
	return polygon(cell, layer, outline)
}

func (f focusing) target() geom.DPoint {
	return pt(f.radius(float64(f.q0())+float64(f.teeth)/2, 0), 0)
}

func (f focusing) check(component string, w float64) error {
	if f.s() >= f.wavelength/f.period {
		return domainErr(component, "fibre angle %g too steep for period %g", f.theta, f.period)
	}
	if f.radius(float64(f.q0()), f.fan/2)*math.Sin(f.fan*math.Pi/360) <= w/2 {
		return domainErr(component, "fan of %g degrees narrower than the waveguide at the focus", f.fan)
	}
	return nil
}

func (f focusing) params() []devrec.Param {
	return []devrec.Param{
		devrec.Microns("period", f.period),
		devrec.Number("fill_factor", f.fill),
		devrec.Microns("wavelength", f.wavelength),
		devrec.Number("fiber_angle", f.theta),
		devrec.Microns("focal_length", f.focal),
		devrec.Number("n_eff", f.nEff()),
	}
}

func focusingDecls(t *tech.Technology) []pcell.ParamDecl {
	return []pcell.ParamDecl{
		pcell.Double("period", "Grating period", 0.63, pcell.Positive()),
		pcell.Number("fill_factor", "Fill factor", 0.5, pcell.Positive(), pcell.Max(0.99)),
		pcell.Double("wavelength", "Central wavelength", 1.55, pcell.Positive()),
		pcell.Number("fiber_angle", "Fibre angle (degrees)", 8, pcell.Min(0), pcell.Max(45)),
		pcell.Number("n_clad", "Cladding index", 1.444, pcell.Positive()),
		pcell.Double("focal_length", "Focal length", 15, pcell.Positive()),
		pcell.Number("fan_angle", "Fan angle (degrees)", 30, pcell.Positive(), pcell.Max(120)),
		pcell.Int("n_teeth", "Number of teeth", 25, pcell.Min(1), pcell.Max(maxTeeth)),
		pcell.Double("target_radius", "Fibre target radius", 5, pcell.Positive()),
		wgDecl(t, DefaultWaveguide),
	}
}

func focusingFrom(p pcell.Params) focusing {
	return focusing{
		period:     p.Float("period"),
		fill:       p.Float("fill_factor"),
		wavelength: p.Float("wavelength"),
		nClad:      p.Float("n_clad"),
		theta:      p.Float("fiber_angle"),
		focal:      p.Float("focal_length"),
		fan:        p.Float("fan_angle"),
		teeth:      p.Int("n_teeth"),
	}
}

// produceFocusing draws the parts both focusing couplers share; teeth draws
// the grating itself.
func produceFocusing(ctx *pcell.Context, component string, p pcell.Params, cell *layout.Cell,
	teeth func(f focusing, layer string) error, extra ...devrec.Param) error {
	wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
	if err != nil {
		return err
	}
	f := focusingFrom(p)
	if err := f.check(component, wt.Width); err != nil {
		return err
	}
	layer := wt.Layers[0].Layer
	if err := f.drawSlab(cell, layer, wt.Width, ctx.Tol); err != nil {
		return err
	}
	if err := teeth(f, layer); err != nil {
		return err
	}
	if err := polygon(cell, tech.LayerFbrTgt, circle(f.target(), p.Float("target_radius"), ctx.Tol)); err != nil {
		return err
	}
	rec := devrec.New("ebeam_gc_te1550", append(f.params(), extra...)...)
	return finish(cell, rec, optical("opt1", pt(0, 0), wt.Width, 180))
}

func gcFocusing(t *tech.Technology) *component {
	return &component{
		name:   "GC_Focusing",
		desc:   "Focusing grating coupler with elliptical teeth",
		params: focusingDecls(t),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			return produceFocusing(ctx, "GC_Focusing", p, cell, func(f focusing, layer string) error {
				for k := 0; k < f.teeth; k++ {
					in, out := f.tooth(k)
					if err := polygon(cell, layer, band(in, out, -f.fan/2, f.fan/2, ctx.Tol)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func gcFocusingSWG(t *tech.Technology) *component {
	decls := append(focusingDecls(t),
		pcell.Double("swg_period", "Segment period along the tooth", 0.25, pcell.Positive()),
		pcell.Number("swg_duty", "Segment duty cycle", 0.5, pcell.Positive(), pcell.Max(0.99)),
	)
	return &component{
		name:   "GC_Focusing_SWG",
		desc:   "Focusing grating coupler whose teeth are sub-wavelength segments",
		params: decls,
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			ps, duty := p.Float("swg_period"), p.Float("swg_duty")
			return produceFocusing(ctx, "GC_Focusing_SWG", p, cell, func(f focusing, layer string) error {
				for k := 0; k < f.teeth; k++ {
					in, out := f.tooth(k)
					mid := (in(0) + out(0)) / 2
					arc := mid * f.fan * math.Pi / 180
					n := int(math.Floor(arc / ps))
					if n < 1 {
						return domainErr("GC_Focusing_SWG", "segment period %g longer than tooth %d", ps, k)
					}
					step := f.fan / float64(n)
					for j := 0; j < n; j++ {
						a1 := -f.fan/2 + float64(j)*step
						if err := polygon(cell, layer, band(in, out, a1, a1+duty*step, ctx.Tol)); err != nil {
							return err
						}
					}
				}
				return nil
			}, devrec.Microns("swg_period", ps), devrec.Number("swg_duty", duty))
		},
	}
}

func gcArray(t *tech.Technology) *component {
	return &component{
		name: "GC_Array",
		desc: "Column of grating couplers at fibre-array pitch, with an optional loopback pair",
		params: []pcell.ParamDecl{
			pcell.Int("n_gc", "Number of couplers", 4, pcell.Min(1), pcell.Max(maxCouplers)),
			pcell.Double("pitch", "Pitch", 127, pcell.Positive()),
			pcell.Bool("loopback", "Add a looped-back pair above the column", true),
			pcell.Double("stub_length", "Length of the port waveguides", 20, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			n, pitch, stub := p.Int("n_gc"), p.Float("pitch"), p.Float("stub_length")
			loop := p.Bool("loopback")
			reach := wt.Radius + 5
			if loop && stub <= reach+wt.Width {
				return domainErr("GC_Array", "stub length %g must clear the loopback at %g", stub, reach)
			}
			if loop && pitch < 2*wt.Radius {
				return domainErr("GC_Array", "pitch %g too small for the loopback bends", pitch)
			}
			gc, err := child(ctx, "GC_Focusing", map[string]any{"waveguide_type": wt.Name})
			if err != nil {
				return err
			}
			ly := cell.Layout()
			total := n
			if loop {
				total += 2
			}
			for i := 0; i < total; i++ {
				tr := geom.Transform{Rot: 2, Disp: geom.Vector{Y: ly.ToDBU(float64(i) * pitch)}}
				if _, err := cell.AddInstance(gc, tr); err != nil {
					return err
				}
			}
			var ports []port
			for i := 0; i < n; i++ {
				y := float64(i) * pitch
				if _, err := route(ctx, cell, []geom.DPoint{pt(0, y), pt(stub, y)}, wt, 0, false); err != nil {
					return err
				}
				ports = append(ports, optical(optName(i+1), pt(stub, y), wt.Width, 0))
			}
			if loop {
				ya, yb := float64(n)*pitch, float64(n+1)*pitch
				wg, err := child(ctx, "Waveguide", map[string]any{
					"path":           []geom.DPoint{pt(0, ya), pt(reach, ya), pt(reach, yb), pt(0, yb)},
					"waveguide_type": wt.Name,
				})
				if err != nil {
					return err
				}
				if _, err := cell.AddInstance(wg, geom.Identity()); err != nil {
					return err
				}
			}
			rec := devrec.New("ebeam_gc_array",
				devrec.Number("n_gc", float64(n)),
				devrec.Microns("pitch", pitch),
				devrec.Number("loopback", boolNum(loop)))
			return finish(cell, rec, ports...)
		},
	}
}

func optName(i int) string {
	return "opt" + strconv.Itoa(i)
}
