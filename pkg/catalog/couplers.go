package catalog

import (
	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// arcAt returns the arc of radius r about c from a1 to a2 degrees.
func arcAt(c geom.DPoint, r, a1, a2 float64, tol kernel.Tolerance) ([]geom.DPoint, error) {
	pts, err := kernel.Arc(r, a1, a2, tol)
	if err != nil {
		return nil, err
	}
	return geom.DTransform{Disp: c}.ApplyAll(pts), nil
}

// concat joins polylines that share their end points.
func concat(parts ...[]geom.DPoint) []geom.DPoint {
	var out []geom.DPoint
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// mirrorY reflects a polyline about the x axis.
func mirrorY(pts []geom.DPoint) []geom.DPoint {
	return geom.DTransform{Mirror: true}.ApplyAll(pts)
}

func dcHalfring(t *tech.Technology) *component {
	return &component{
		name: "DC_Halfring_Straight",
		desc: "Half ring coupled to a straight bus",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Radius", 10, pcell.Positive()),
			pcell.Double("gap", "Gap", 0.2, pcell.Positive()),
			pcell.Double("coupling_length", "Straight coupling length", 0, pcell.Min(0)),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			r, g, lc := p.Float("radius"), p.Float("gap"), p.Float("coupling_length")
			if r < wt.MinRadius() {
				return domainErr("DC_Halfring_Straight", "radius %g below %g", r, wt.MinRadius())
			}
			w := wt.Width
			yc := g + w + r
			x := r + w + lc/2
			if _, err := sweep(ctx, cell, []geom.DPoint{pt(-x, 0), pt(x, 0)}, wt); err != nil {
				return err
			}
			left, err := arcAt(pt(-lc/2, yc), r, 180, 270, ctx.Tol)
			if err != nil {
				return err
			}
			right, err := arcAt(pt(lc/2, yc), r, 270, 360, ctx.Tol)
			if err != nil {
				return err
			}
			if _, err := sweep(ctx, cell, concat(left, right), wt); err != nil {
				return err
			}
			rec := devrec.New("ebeam_dc_halfring_straight",
				devrec.Microns("radius", r),
				devrec.Microns("gap", g),
				devrec.Microns("wg_width", w),
				devrec.Microns("Lc", lc))
			return finish(cell, rec,
				optical("pin1", pt(-x, 0), w, 180),
				optical("pin2", pt(-lc/2-r, yc), w, 90),
				optical("pin3", pt(x, 0), w, 0),
				optical("pin4", pt(lc/2+r, yc), w, 90))
		},
	}
}

func dcBezier(t *tech.Technology) *component {
	return &component{
		name: "DC_Bezier",
		desc: "Directional coupler with Bezier S-bend arms",
		params: []pcell.ParamDecl{
			pcell.Double("gap", "Gap", 0.2, pcell.Positive()),
			pcell.Double("coupling_length", "Coupling length", 10, pcell.Min(0)),
			pcell.Double("sbend_length", "S-bend length", 10, pcell.Positive()),
			pcell.Double("sbend_height", "S-bend offset", 2, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			g, lc, ls, h := p.Float("gap"), p.Float("coupling_length"), p.Float("sbend_length"), p.Float("sbend_height")
			w := wt.Width
			yc := (g + w) / 2
			yo := yc + h
			total := 2*ls + lc
			in, err := kernel.BezierCubic(pt(0, yo), pt(ls, yc), 0, 0, 0.5, 0.5, ctx.Tol)
			if err != nil {
				return err
			}
			out, err := kernel.BezierCubic(pt(ls+lc, yc), pt(total, yo), 0, 0, 0.5, 0.5, ctx.Tol)
			if err != nil {
				return err
			}
			upper := concat(in, out)
			res, err := sweep(ctx, cell, upper, wt)
			if err != nil {
				return err
			}
			if _, err := sweep(ctx, cell, mirrorY(upper), wt); err != nil {
				return err
			}
			rec := devrec.New("ebeam_dc_te1550",
				devrec.Microns("gap", g),
				devrec.Microns("Lc", lc),
				devrec.Microns("wg_width", w),
				devrec.Microns("wg_length", res.Length))
			return finish(cell, rec,
				optical("pin1", pt(0, -yo), w, 180),
				optical("pin2", pt(0, yo), w, 180),
				optical("pin3", pt(total, -yo), w, 0),
				optical("pin4", pt(total, yo), w, 0))
		},
	}
}

func yBranch(t *tech.Technology) *component {
	return &component{
		name: "Y_Branch",
		desc: "1x2 splitter: input waveguide, linear junction and two Bezier arms",
		params: []pcell.ParamDecl{
			pcell.Double("input_length", "Input length", 2, pcell.Min(0)),
			pcell.Double("taper_length", "Junction length", 3, pcell.Positive()),
			pcell.Double("arm_length", "Arm length", 10, pcell.Positive()),
			pcell.Double("port_spacing", "Output port spacing", 2.75, pcell.Positive()),
			pcell.Double("junction_gap", "Gap between the arms at the junction", 0.2, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			lin, lt, la := p.Float("input_length"), p.Float("taper_length"), p.Float("arm_length")
			s, g0 := p.Float("port_spacing"), p.Float("junction_gap")
			w := wt.Width
			if s <= w+g0 {
				return domainErr("Y_Branch", "port spacing %g must exceed %g", s, w+g0)
			}
			if lin > 0 {
				if _, err := sweep(ctx, cell, []geom.DPoint{pt(0, 0), pt(lin, 0)}, wt); err != nil {
					return err
				}
			}
			x1 := lin + lt
			for _, l := range wt.Layers {
				if l.Layer == tech.LayerDevRec {
					continue
				}
				h1, h2 := l.Width/2, l.Width/2+(w+g0)/2
				if err := polygon(cell, l.Layer, []geom.DPoint{pt(lin, -h1), pt(x1, -h2), pt(x1, h2), pt(lin, h1)}); err != nil {
					return err
				}
			}
			total := x1 + la
			arm, err := kernel.BezierCubic(pt(x1, (w+g0)/2), pt(total, s/2), 0, 0, 0.5, 0.5, ctx.Tol)
			if err != nil {
				return err
			}
			if _, err := sweep(ctx, cell, arm, wt); err != nil {
				return err
			}
			if _, err := sweep(ctx, cell, mirrorY(arm), wt); err != nil {
				return err
			}
			rec := devrec.New("ebeam_y_1550",
				devrec.Microns("wg_width", w),
				devrec.Microns("port_spacing", s),
				devrec.Microns("length", total))
			return finish(cell, rec,
				optical("opt1", pt(0, 0), w, 180),
				optical("opt2", pt(total, s/2), w, 0),
				optical("opt3", pt(total, -s/2), w, 0))
		},
	}
}

func mmi1x2(t *tech.Technology) *component {
	return &component{
		name: "MMI_1x2",
		desc: "1x2 multimode interference splitter",
		params: []pcell.ParamDecl{
			pcell.Double("mmi_width", "MMI width", 6, pcell.Positive()),
			pcell.Double("mmi_length", "MMI length", 32, pcell.Positive()),
			pcell.Double("taper_width", "Access taper width", 1.5, pcell.Positive()),
			pcell.Double("taper_length", "Access taper length", 10, pcell.Positive()),
			pcell.Double("port_separation", "Output port separation", 3, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			wm, lm := p.Float("mmi_width"), p.Float("mmi_length")
			tw, lt, sep := p.Float("taper_width"), p.Float("taper_length"), p.Float("port_separation")
			w := wt.Width
			if sep <= tw || sep/2+tw/2 > wm/2 {
				return domainErr("MMI_1x2", "outputs of width %g at separation %g do not fit %g", tw, sep, wm)
			}
			layer := wt.Layers[0].Layer
			if err := polygon(cell, layer, taperOutline(lt, w, tw)); err != nil {
				return err
			}
			x0 := lt + lm
			if err := box(cell, layer, pt(lt, -wm/2), pt(x0, wm/2)); err != nil {
				return err
			}
			for _, y := range []float64{sep / 2, -sep / 2} {
				out := geom.DTransform{Disp: pt(x0, y)}.ApplyAll(taperOutline(lt, tw, w))
				if err := polygon(cell, layer, out); err != nil {
					return err
				}
			}
			total := x0 + lt
			rec := devrec.New("ebeam_mmi_1x2",
				devrec.Microns("mmi_width", wm),
				devrec.Microns("mmi_length", lm),
				devrec.Microns("port_separation", sep))
			return finish(cell, rec,
				optical("opt1", pt(0, 0), w, 180),
				optical("opt2", pt(total, sep/2), w, 0),
				optical("opt3", pt(total, -sep/2), w, 0))
		},
	}
}
