package catalog

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/paramlit"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/waveguide"
)

const wgModel = "ebeam_wg_integral_1550"

// wgRecord is the annotation shared by every waveguide-like component.
func wgRecord(res *waveguide.Result, extra ...devrec.Param) devrec.Record {
	params := []devrec.Param{
		devrec.Microns("wg_length", res.Length),
		devrec.Microns("wg_width", res.Type.Width),
	}
	if res.Type.Model != "" {
		params = append(params, devrec.Text("wg_model", res.Type.Model))
	}
	return devrec.New(wgModel, append(params, extra...)...)
}

// endAngle returns the outward cardinal direction of the segment a→b, or
// false when it is not axis-aligned.
func endAngle(a, b geom.DPoint) (int, bool) {
	h := geom.Heading(b.Sub(a))
	q := math.Round(h / 90)
	if math.Abs(h-q*90) > 1e-6 {
		return 0, false
	}
	return geom.NormAngle(int(q) * 90), true
}

// wgPorts returns opt1 and opt2 at the two ends of a routed centreline.
func wgPorts(component string, res *waveguide.Result) ([]port, error) {
	c := res.Centerline
	n := len(c)
	a1, ok1 := endAngle(c[1], c[0])
	a2, ok2 := endAngle(c[n-2], c[n-1])
	if !ok1 || !ok2 {
		return nil, domainErr(component, "end segments must be axis-aligned for pins")
	}
	w := res.Type.Width
	return []port{optical("opt1", c[0], w, a1), optical("opt2", c[n-1], w, a2)}, nil
}

func waveguidePath(t *tech.Technology) *component {
	return &component{
		name: "Waveguide",
		desc: "Waveguide along a path with bends at every vertex",
		params: []pcell.ParamDecl{
			pcell.Shape("path", "Path", []geom.DPoint{{}, {X: 10}}),
			wgDecl(t, DefaultWaveguide),
			pcell.Double("radius", "Bend radius (0 for the type default)", 0, pcell.Min(0)),
			pcell.Bool("strict", "Fail instead of shrinking bends", false),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			res, err := route(ctx, cell, p.Points("path"), wt, p.Float("radius"), p.Bool("strict"))
			if err != nil {
				return err
			}
			ports, err := wgPorts("Waveguide", res)
			if err != nil {
				return err
			}
			extra := []devrec.Param{devrec.Text("points", paramlit.Format(res.Centerline))}
			if len(res.Bends) > 0 {
				extra = append(extra, devrec.Microns("radius", res.Bends[0].Radius))
			}
			return finish(cell, wgRecord(res, extra...), ports...)
		},
	}
}

func waveguideStraight(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_Straight",
		desc: "Straight waveguide from the origin along +x",
		params: []pcell.ParamDecl{
			pcell.Double("length", "Length", 10, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			l := p.Float("length")
			res, err := route(ctx, cell, []geom.DPoint{{}, {X: l}}, wt, 0, false)
			if err != nil {
				return err
			}
			return finish(cell, wgRecord(res),
				optical("opt1", pt(0, 0), wt.Width, 180),
				optical("opt2", pt(l, 0), wt.Width, 0))
		},
	}
}

// bendAngle accepts the quarter turns a bend component can pin.
func bendAngle(component string, a float64, allowHalf bool) (int, error) {
	switch a {
	case 90, -90:
		return int(a), nil
	case 180, -180:
		if allowHalf {
			return int(a), nil
		}
	}
	return 0, domainErr(component, "angle %g not supported", a)
}

// bendPorts pins a bend that starts at the origin heading +x and turns by
// angle degrees, ending at end.
func bendPorts(end geom.DPoint, w float64, angle int) []port {
	return []port{
		optical("opt1", pt(0, 0), w, 180),
		optical("opt2", end, w, geom.NormAngle(angle)),
	}
}

func waveguideBend(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_Bend",
		desc: "Circular bend",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Radius", 5, pcell.Positive()),
			pcell.Number("angle", "Angle (±90 or ±180 degrees)", 90),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			angle, err := bendAngle("Waveguide_Bend", p.Float("angle"), true)
			if err != nil {
				return err
			}
			r := p.Float("radius")
			if r < wt.MinRadius() {
				return domainErr("Waveguide_Bend", "radius %g below %g", r, wt.MinRadius())
			}
			center, err := kernel.ArcSection(r, float64(angle), ctx.Tol)
			if err != nil {
				return err
			}
			res, err := sweep(ctx, cell, center, wt)
			if err != nil {
				return err
			}
			th := float64(angle) * math.Pi / 180
			sign := 1.0
			if angle < 0 {
				sign = -1
			}
			end := pt(r*math.Abs(math.Sin(th)), sign*r*(1-math.Cos(th)))
			return finish(cell, wgRecord(res, devrec.Microns("radius", r)), bendPorts(end, wt.Width, angle)...)
		},
	}
}

func waveguideBendBezier(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_Bend_Bezier",
		desc: "90 degree Bezier bend",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Effective radius", 5, pcell.Positive()),
			pcell.Number("bezier", "Bezier shape", tech.DefaultBezier, pcell.Positive(), pcell.Max(0.99)),
			pcell.Number("angle", "Angle (±90 degrees)", 90),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			angle, err := bendAngle("Waveguide_Bend_Bezier", p.Float("angle"), false)
			if err != nil {
				return err
			}
			r := p.Float("radius")
			center, err := kernel.BezierBend(r, float64(angle), p.Float("bezier"), ctx.Tol)
			if err != nil {
				return err
			}
			res, err := sweep(ctx, cell, center, wt)
			if err != nil {
				return err
			}
			end := pt(r, float64(angle/90)*r)
			rec := wgRecord(res, devrec.Microns("radius", r), devrec.Number("bezier", p.Float("bezier")))
			return finish(cell, rec, bendPorts(end, wt.Width, angle)...)
		},
	}
}

func waveguideBendEuler(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_Bend_Euler",
		desc: "90 degree Euler bend with the footprint of a circular bend",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Effective radius", 5, pcell.Positive()),
			pcell.Number("p", "Clothoid fraction", tech.DefaultEulerP, pcell.Positive(), pcell.Max(1)),
			pcell.Number("angle", "Angle (±90 degrees)", 90),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			angle, err := bendAngle("Waveguide_Bend_Euler", p.Float("angle"), false)
			if err != nil {
				return err
			}
			r := p.Float("radius")
			eb, err := kernel.EulerBend(r, float64(angle), p.Float("p"), ctx.Tol)
			if err != nil {
				return err
			}
			if eb.MinRadius < wt.MinRadius() {
				return domainErr("Waveguide_Bend_Euler", "minimum radius %.3f below %g", eb.MinRadius, wt.MinRadius())
			}
			res, err := sweep(ctx, cell, eb.Points, wt)
			if err != nil {
				return err
			}
			end := pt(r, float64(angle/90)*r)
			rec := wgRecord(res, devrec.Microns("radius", r), devrec.Microns("min_radius", eb.MinRadius))
			return finish(cell, rec, bendPorts(end, wt.Width, angle)...)
		},
	}
}

func waveguideEuler180(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_Euler_180",
		desc: "180 degree Euler bend with end points 2R apart",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Effective radius", 5, pcell.Positive()),
			pcell.Number("p", "Clothoid fraction", tech.DefaultEulerP, pcell.Positive(), pcell.Max(1)),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			r := p.Float("radius")
			eb, err := kernel.EulerBend180(r, p.Float("p"), ctx.Tol)
			if err != nil {
				return err
			}
			if eb.MinRadius < wt.MinRadius() {
				return domainErr("Waveguide_Euler_180", "minimum radius %.3f below %g", eb.MinRadius, wt.MinRadius())
			}
			res, err := sweep(ctx, cell, eb.Points, wt)
			if err != nil {
				return err
			}
			rec := wgRecord(res, devrec.Microns("radius", r), devrec.Microns("min_radius", eb.MinRadius))
			return finish(cell, rec,
				optical("opt1", pt(0, 0), wt.Width, 180),
				optical("opt2", pt(0, 2*r), wt.Width, 180))
		},
	}
}

func waveguideSBend(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_SBend",
		desc: "Bezier S-bend with a lateral offset",
		params: []pcell.ParamDecl{
			pcell.Double("length", "Length", 10, pcell.Positive()),
			pcell.Double("height", "Offset", 2),
			pcell.Number("bezier", "Bezier shape", 0.5, pcell.Positive(), pcell.Max(0.99)),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			l, h, bz := p.Float("length"), p.Float("height"), p.Float("bezier")
			center, err := kernel.BezierCubic(pt(0, 0), pt(l, h), 0, 0, bz, bz, ctx.Tol)
			if err != nil {
				return err
			}
			res, err := sweep(ctx, cell, center, wt)
			if err != nil {
				return err
			}
			rec := wgRecord(res, devrec.Microns("height", h))
			return finish(cell, rec,
				optical("opt1", pt(0, 0), wt.Width, 180),
				optical("opt2", pt(l, h), wt.Width, 0))
		},
	}
}

// arcPorts returns the pins of an arc from a1 to a2 degrees when both ends
// are axis-aligned.
func arcPorts(r, w, a1, a2 float64) []port {
	if math.Mod(a1, 90) != 0 || math.Mod(a2, 90) != 0 {
		return nil
	}
	turn := 90
	if a2 < a1 {
		turn = -90
	}
	at := func(a float64) geom.DPoint { return geom.Dir(a).Scale(r) }
	return []port{
		optical("opt1", at(a1), w, int(a1)-turn),
		optical("opt2", at(a2), w, int(a2)+turn),
	}
}

func waveguideArc() *coercing {
	c := &component{
		name: "Waveguide_Arc",
		desc: "Arc of a ring between two angles",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Radius", 10, pcell.Positive()),
			pcell.Double("wg_width", "Width", 0.5, pcell.Positive()),
			pcell.Number("start_angle", "Start angle (degrees)", 0),
			pcell.Number("stop_angle", "Stop angle (degrees)", 90),
			pcell.Layer("layer", "Layer", tech.LayerSi),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			r, w := p.Float("radius"), p.Float("wg_width")
			a1, a2 := p.Float("start_angle"), p.Float("stop_angle")
			if math.Abs(a2-a1) >= 360 {
				return domainErr("Waveguide_Arc", "sweep %g exceeds a full turn", a2-a1)
			}
			outline, err := kernel.ArcWaveguide(r, w, a1, a2, ctx.Tol)
			if err != nil {
				return err
			}
			if err := polygon(cell, p.String("layer"), outline); err != nil {
				return err
			}
			length := r * math.Abs(a2-a1) * math.Pi / 180
			rec := devrec.New(wgModel,
				devrec.Microns("wg_length", length),
				devrec.Microns("wg_width", w),
				devrec.Microns("radius", r))
			return finish(cell, rec, arcPorts(r, w, a1, a2)...)
		},
	}
	return &coercing{component: c, coerce: normalizeArc}
}

// normalizeArc moves the start angle into [0, 360) and shifts the stop
// angle by the same amount.
func normalizeArc(_ *pcell.Context, p pcell.Params) (pcell.Params, error) {
	a1, a2 := p.Float("start_angle"), p.Float("stop_angle")
	n := math.Mod(a1, 360)
	if n < 0 {
		n += 360
	}
	return p.With("start_angle", n).With("stop_angle", a2+n-a1), nil
}

func waveguideHeater(t *tech.Technology) *component {
	return &component{
		name: "Waveguide_Heater",
		desc: "Straight waveguide with a metal heater and two probe pads",
		params: []pcell.ParamDecl{
			pcell.Double("length", "Length", 100, pcell.Positive()),
			pcell.Double("heater_width", "Heater width", 3, pcell.Positive()),
			pcell.Double("pad_size", "Pad size", 20, pcell.Positive()),
			pcell.Double("pad_offset", "Pad offset from the waveguide", 10, pcell.Positive()),
			wgDecl(t, DefaultWaveguide),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			l, hw, ps, y0 := p.Float("length"), p.Float("heater_width"), p.Float("pad_size"), p.Float("pad_offset")
			if ps <= 4 {
				return domainErr("Waveguide_Heater", "pad size %g leaves no opening", ps)
			}
			if l < 2*ps+2 {
				return domainErr("Waveguide_Heater", "length %g too short for two %g pads", l, ps)
			}
			if y0 <= hw/2 {
				return domainErr("Waveguide_Heater", "pad offset %g inside the heater", y0)
			}
			res, err := route(ctx, cell, []geom.DPoint{{}, {X: l}}, wt, 0, false)
			if err != nil {
				return err
			}
			shapes := []struct {
				layer string
				a, b  geom.DPoint
			}{
				{tech.LayerM1Heater, pt(0, -hw/2), pt(l, hw/2)},
				{tech.LayerM1Heater, pt(0, hw/2), pt(hw, y0+hw)},
				{tech.LayerM1Heater, pt(l-hw, hw/2), pt(l, y0+hw)},
				{tech.LayerM2Router, pt(0, y0), pt(ps, y0+ps)},
				{tech.LayerM2Router, pt(l-ps, y0), pt(l, y0+ps)},
				{tech.LayerMOpen, pt(2, y0+2), pt(ps-2, y0+ps-2)},
				{tech.LayerMOpen, pt(l-ps+2, y0+2), pt(l-2, y0+ps-2)},
			}
			for _, s := range shapes {
				if err := box(cell, s.layer, s.a, s.b); err != nil {
					return err
				}
			}
			rec := wgRecord(res, devrec.Microns("heater_width", hw))
			rec.Component = "wg_heater"
			return finish(cell, rec,
				optical("opt1", pt(0, 0), wt.Width, 180),
				optical("opt2", pt(l, 0), wt.Width, 0),
				electrical("elec1", pt(ps/2, y0+ps), ps, 90),
				electrical("elec2", pt(l-ps/2, y0+ps), ps, 90))
		},
	}
}
