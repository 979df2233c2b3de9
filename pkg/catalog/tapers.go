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

const taperModel = "ebeam_taper_te1550"

// taperOutline returns a linear taper from w1 at x=0 to w2 at x=l.
func taperOutline(l, w1, w2 float64) []geom.DPoint {
	return []geom.DPoint{pt(0, -w1/2), pt(l, -w2/2), pt(l, w2/2), pt(0, w1/2)}
}

func taperRecord(l, w1, w2 float64) devrec.Record {
	return devrec.New(taperModel,
		devrec.Microns("wg_width1", w1),
		devrec.Microns("wg_width2", w2),
		devrec.Microns("wg_length", l))
}

func taperLinear() *component {
	return &component{
		name: "Taper_Linear",
		desc: "Linear width taper",
		params: []pcell.ParamDecl{
			pcell.Double("length", "Length", 10, pcell.Positive()),
			pcell.Double("wg_width1", "Input width", 0.5, pcell.Positive()),
			pcell.Double("wg_width2", "Output width", 3, pcell.Positive()),
			pcell.Layer("layer", "Layer", tech.LayerSi),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			l, w1, w2 := p.Float("length"), p.Float("wg_width1"), p.Float("wg_width2")
			if err := polygon(cell, p.String("layer"), taperOutline(l, w1, w2)); err != nil {
				return err
			}
			return finish(cell, taperRecord(l, w1, w2),
				optical("opt1", pt(0, 0), w1, 180),
				optical("opt2", pt(l, 0), w2, 0))
		},
	}
}

func taperBezier() *component {
	return &component{
		name: "Taper_Bezier",
		desc: "Taper whose edges are cubic Bezier curves",
		params: []pcell.ParamDecl{
			pcell.Double("length", "Length", 10, pcell.Positive()),
			pcell.Double("wg_width1", "Input width", 0.5, pcell.Positive()),
			pcell.Double("wg_width2", "Output width", 3, pcell.Positive()),
			pcell.Number("a", "Bezier shape at the input", 0.4, pcell.Positive(), pcell.Max(0.99)),
			pcell.Number("b", "Bezier shape at the output", 0.4, pcell.Positive(), pcell.Max(0.99)),
			pcell.Layer("layer", "Layer", tech.LayerSi),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			l, w1, w2 := p.Float("length"), p.Float("wg_width1"), p.Float("wg_width2")
			edge, err := kernel.BezierCubic(pt(0, w1/2), pt(l, w2/2), 0, 0, p.Float("a"), p.Float("b"), ctx.Tol)
			if err != nil {
				return err
			}
			outline := make([]geom.DPoint, 0, 2*len(edge))
			for i := len(edge) - 1; i >= 0; i-- {
				outline = append(outline, pt(edge[i].X, -edge[i].Y))
			}
			outline = append(outline, edge...)
			if err := polygon(cell, p.String("layer"), outline); err != nil {
				return err
			}
			return finish(cell, taperRecord(l, w1, w2),
				optical("opt1", pt(0, 0), w1, 180),
				optical("opt2", pt(l, 0), w2, 0))
		},
	}
}

func terminatorTaper(t *tech.Technology) *component {
	return &component{
		name: "Terminator_Taper",
		desc: "Waveguide terminated by a taper to a narrow tip",
		params: []pcell.ParamDecl{
			pcell.Double("length", "Taper length", 10, pcell.Positive()),
			pcell.Double("tip_width", "Tip width", 0.06, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			l, tip := p.Float("length"), p.Float("tip_width")
			if tip >= wt.Width {
				return domainErr("Terminator_Taper", "tip %g not narrower than %g", tip, wt.Width)
			}
			layer := wt.Layers[0].Layer
			if err := polygon(cell, layer, taperOutline(l, wt.Width, tip)); err != nil {
				return err
			}
			rec := devrec.New("ebeam_terminator_te1550",
				devrec.Microns("wg_width", wt.Width),
				devrec.Microns("tip_width", tip),
				devrec.Microns("wg_length", l))
			return finish(cell, rec, optical("opt1", pt(0, 0), wt.Width, 180))
		},
	}
}

func edgeCouplerPWB(t *tech.Technology) *component {
	return &component{
		name: "Edge_Coupler_PWB",
		desc: "Inverse taper edge coupler for photonic wire bonds",
		params: []pcell.ParamDecl{
			pcell.Double("taper_length", "Taper length", 40, pcell.Positive()),
			pcell.Double("tip_width", "Tip width", 0.18, pcell.Positive()),
			pcell.Double("tip_length", "Tip length", 5, pcell.Min(0)),
			pcell.Double("target_radius", "Fibre target radius", 2, pcell.Positive()),
			pcell.Bool("deep_trench", "Draw the deep trench", true),
			pcell.Double("trench_length", "Deep trench length", 10, pcell.Positive()),
			pcell.Double("trench_width", "Deep trench width", 20, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			lt, tip, lx := p.Float("taper_length"), p.Float("tip_width"), p.Float("tip_length")
			if tip >= wt.Width {
				return domainErr("Edge_Coupler_PWB", "tip %g not narrower than %g", tip, wt.Width)
			}
			layer := wt.Layers[0].Layer
			if err := polygon(cell, layer, taperOutline(lt, wt.Width, tip)); err != nil {
				return err
			}
			facet := lt + lx
			if lx > 0 {
				if err := box(cell, layer, pt(lt, -tip/2), pt(facet, tip/2)); err != nil {
					return err
				}
			}
			if err := polygon(cell, tech.LayerFbrTgt, circle(pt(facet, 0), p.Float("target_radius"), ctx.Tol)); err != nil {
				return err
			}
			if p.Bool("deep_trench") {
				tw := p.Float("trench_width")
				if err := box(cell, tech.LayerDeepTrench, pt(facet, -tw/2), pt(facet+p.Float("trench_length"), tw/2)); err != nil {
					return err
				}
			}
			rec := devrec.New("ebeam_edge_coupler_pwb",
				devrec.Microns("wg_width", wt.Width),
				devrec.Microns("tip_width", tip),
				devrec.Microns("taper_length", lt),
				devrec.Microns("facet", facet),
				devrec.Number("deep_trench", boolNum(p.Bool("deep_trench"))))
			return finish(cell, rec, optical("opt1", pt(0, 0), wt.Width, 180))
		},
	}
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// fixed wraps a component with frozen parameters as a cell without visible
// parameters.
type fixed struct {
	name      string
	desc      string
	base      *component
	overrides map[string]any
}

func (f *fixed) Name() string              { return f.name }
func (f *fixed) Description() string       { return f.desc }
func (f *fixed) Params() []pcell.ParamDecl { return nil }
func (f *fixed) Produce(ctx *pcell.Context, _ pcell.Params, cell *layout.Cell) error {
	p, err := pcell.Resolve(ctx, f.base, f.overrides)
	if err != nil {
		return err
	}
	return f.base.Produce(ctx, p, cell)
}

func fixedTerminator(t *tech.Technology) *fixed {
	return &fixed{
		name: "ebeam_terminator_te1550",
		desc: "TE 1550 nm terminator",
		base: terminatorTaper(t),
		overrides: map[string]any{
			"length":    10.0,
			"tip_width": 0.06,
		},
	}
}

func fixedYBranch(t *tech.Technology) *fixed {
	return &fixed{
		name: "ebeam_y_1550",
		desc: "TE 1550 nm Y-branch",
		base: yBranch(t),
		overrides: map[string]any{
			"input_length": 2.0,
			"taper_length": 3.0,
			"arm_length":   10.0,
			"port_spacing": 2.75,
			"junction_gap": 0.2,
		},
	}
}

// circle returns a closed circle outline without the repeated end point.
func circle(c geom.DPoint, r float64, tol kernel.Tolerance) []geom.DPoint {
	n := kernel.PointsForArc(r, 360, tol)
	out := make([]geom.DPoint, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		s, co := math.Sincos(a)
		out[i] = pt(c.X+r*co, c.Y+r*s)
	}
	return out
}
