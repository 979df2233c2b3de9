package catalog

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// sinusoidSamples is the number of outline points per sinusoidal period.
const sinusoidSamples = 16

// corrugation describes a periodic sidewall modulation along +x.
type corrugation struct {
	n          int     // periods
	period     float64 // µm
	depth      float64 // full width change between wide and narrow sections, µm
	fill       float64 // fraction of the period that is wide
	sinusoidal bool
	apod       float64 // Gaussian apodization index, 0 for none
	ar         bool    // ramp the depth up and down over the first and last tenth
}

// amplitude returns the relative depth of period i.
func (c corrugation) amplitude(i int) float64 {
	a := 1.0
	if c.apod > 0 {
		x := (float64(i)+0.5)/float64(c.n) - 0.5
		a = math.Exp(-c.apod * x * x)
	}
	if c.ar {
		ramp := max(1, c.n/10)
		if edge := min(i+1, c.n-i); edge < ramp {
			a *= float64(edge) / float64(ramp)
		}
	}
	return a
}

func (c corrugation) length() float64 { return float64(c.n) * c.period }

// draw renders a rail of nominal width w centred on y=yc from x=0 with
// both sidewalls corrugated. In rectangular mode the rail is a narrow core
// of width w-depth/2 plus one tooth per period on each side; the wide
// sections are w+depth/2 across.
func (c corrugation) draw(cell *layout.Cell, layer string, yc, w float64) error {
	if c.sinusoidal {
		return c.drawSinusoid(cell, layer, yc, w)
	}
	dbu := cell.Layout().DBU
	core := (w - c.depth/2) / 2
	if err := box(cell, layer, pt(0, yc-core), pt(c.length(), yc+core)); err != nil {
		return err
	}
	for i := 0; i < c.n; i++ {
		h := c.amplitude(i) * c.depth / 2
		if geom.Round(h/dbu) == 0 {
			continue
		}
		x0 := float64(i) * c.period
		x1 := x0 + c.fill*c.period
		if err := box(cell, layer, pt(x0, yc+core), pt(x1, yc+core+h)); err != nil {
			return err
		}
		if err := box(cell, layer, pt(x0, yc-core-h), pt(x1, yc-core)); err != nil {
			return err
		}
	}
	return nil
}

func (c corrugation) drawSinusoid(cell *layout.Cell, layer string, yc, w float64) error {
	m := c.n * sinusoidSamples
	upper := make([]geom.DPoint, 0, m+1)
	for k := 0; k <= m; k++ {
		i := min(k/sinusoidSamples, c.n-1)
		x := c.length() * float64(k) / float64(m)
		d := c.amplitude(i) * c.depth / 4 * math.Sin(2*math.Pi*x/c.period)
		upper = append(upper, pt(x, yc+w/2+d))
	}
	outline := make([]geom.DPoint, 0, 2*len(upper))
	outline = append(outline, upper...)
	for k := len(upper) - 1; k >= 0; k-- {
		q := upper[k]
		outline = append(outline, pt(q.X, 2*yc-q.Y))
	}
	return polygon(cell, layer, outline)
}

func (c corrugation) params() []devrec.Param {
	return []devrec.Param{
		devrec.Number("number_of_periods", float64(c.n)),
		devrec.Microns("grating_period", c.period),
		devrec.Microns("corrugation_width", c.depth),
		devrec.Number("sinusoidal", boolNum(c.sinusoidal)),
	}
}

func corrugationDecls(n int, period, depth float64) []pcell.ParamDecl {
	return []pcell.ParamDecl{
		pcell.Int("number_of_periods", "Number of periods", n, pcell.Min(1), pcell.Max(maxPeriods)),
		pcell.Double("grating_period", "Grating period", period, pcell.Positive()),
		pcell.Double("corrugation_width", "Corrugation width", depth, pcell.Positive()),
		pcell.Number("fill_factor", "Fill factor", 0.5, pcell.Positive(), pcell.Max(0.99)),
		pcell.Bool("sinusoidal", "Sinusoidal corrugations", false),
		pcell.Number("apodization_index", "Gaussian apodization index", 0, pcell.Min(0)),
		pcell.Bool("anti_reflection", "Ramp the corrugation at both ends", false),
	}
}

func corrugationFrom(p pcell.Params) corrugation {
	return corrugation{
		n:          p.Int("number_of_periods"),
		period:     p.Float("grating_period"),
		depth:      p.Float("corrugation_width"),
		fill:       p.Float("fill_factor"),
		sinusoidal: p.Bool("sinusoidal"),
		apod:       p.Float("apodization_index"),
		ar:         p.Bool("anti_reflection"),
	}
}

func braggGrating() *component {
	return &component{
		name: "Bragg_Grating",
		desc: "Sidewall-corrugated Bragg grating",
		params: append(corrugationDecls(100, 0.32, 0.05),
			pcell.Double("wg_width", "Waveguide width", 0.5, pcell.Positive()),
			pcell.Layer("layer", "Layer", tech.LayerSi),
		),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			c := corrugationFrom(p)
			w := p.Float("wg_width")
			if c.depth/2 >= w {
				return domainErr("Bragg_Grating", "corrugation %g too deep for width %g", c.depth, w)
			}
			if err := c.draw(cell, p.String("layer"), 0, w); err != nil {
				return err
			}
			l := c.length()
			rec := devrec.New("ebeam_bragg_te1550",
				append(c.params(), devrec.Microns("wg_width", w), devrec.Microns("length", l))...)
			return finish(cell, rec,
				optical("opt1", pt(0, 0), w, 180),
				optical("opt2", pt(l, 0), w, 0))
		},
	}
}

func braggGratingWaveguide(t *tech.Technology) *component {
	decls := corrugationDecls(100, 0.32, 0.05)
	decls = append(decls, wgDecl(t, "Rib TE 1550 nm, w=500 nm"))
	return &component{
		name:   "Bragg_Grating_Waveguide",
		desc:   "Bragg grating as teeth on the core of any waveguide type",
		params: decls,
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
			if err != nil {
				return err
			}
			c := corrugationFrom(p)
			l := c.length()
			res, err := sweep(ctx, cell, []geom.DPoint{pt(0, 0), pt(l, 0)}, wt)
			if err != nil {
				return err
			}
			core := res.Type.Layers[0]
			dbu := cell.Layout().DBU
			top := core.Offset + core.Width/2
			bottom := core.Offset - core.Width/2
			for i := 0; i < c.n; i++ {
				h := c.amplitude(i) * c.depth / 2
				if geom.Round(h/dbu) == 0 {
					continue
				}
				x0 := float64(i) * c.period
				x1 := x0 + c.fill*c.period
				if err := box(cell, core.Layer, pt(x0, top), pt(x1, top+h)); err != nil {
					return err
				}
				if err := box(cell, core.Layer, pt(x0, bottom-h), pt(x1, bottom)); err != nil {
					return err
				}
			}
			rec := devrec.New("ebeam_bragg_waveguide",
				append(c.params(), devrec.Microns("wg_width", res.Type.Width), devrec.Text("wg_type", res.Type.Name))...)
			return finish(cell, rec,
				optical("opt1", pt(0, 0), res.Type.Width, 180),
				optical("opt2", pt(l, 0), res.Type.Width, 0))
		},
	}
}

func contraDC() *component {
	return &component{
		name: "Contra_DC",
		desc: "Contra-directional coupler: two corrugated rails across a gap",
		params: []pcell.ParamDecl{
			pcell.Int("number_of_periods", "Number of periods", 300, pcell.Min(1), pcell.Max(maxPeriods)),
			pcell.Double("grating_period", "Grating period", 0.316, pcell.Positive()),
			pcell.Double("grating_period2", "Second rail period (0 for the same)", 0, pcell.Min(0)),
			pcell.Double("gap", "Gap", 0.1, pcell.Positive()),
			pcell.Double("wg1_width", "Rail 1 width", 0.56, pcell.Positive()),
			pcell.Double("wg2_width", "Rail 2 width", 0.44, pcell.Positive()),
			pcell.Double("corrugation1_width", "Rail 1 corrugation", 0.048, pcell.Positive()),
			pcell.Double("corrugation2_width", "Rail 2 corrugation", 0.044, pcell.Positive()),
			pcell.Number("fill_factor", "Fill factor", 0.5, pcell.Positive(), pcell.Max(0.99)),
			pcell.Bool("sinusoidal", "Sinusoidal corrugations", false),
			pcell.Number("apodization_index", "Gaussian apodization index", 0, pcell.Min(0)),
			pcell.Bool("anti_reflection", "Ramp the corrugation at both ends", false),
			pcell.Bool("swg", "Sub-wavelength auxiliary grating", false),
			pcell.Double("swg_period", "Auxiliary grating period", 0.2, pcell.Positive()),
			pcell.Double("swg_width", "Auxiliary grating width", 0.5, pcell.Positive()),
			pcell.Layer("layer", "Layer", tech.LayerSi),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			layer := p.String("layer")
			g := p.Float("gap")
			w1, w2 := p.Float("wg1_width"), p.Float("wg2_width")
			base := corrugation{
				n:          p.Int("number_of_periods"),
				fill:       p.Float("fill_factor"),
				sinusoidal: p.Bool("sinusoidal"),
				apod:       p.Float("apodization_index"),
				ar:         p.Bool("anti_reflection"),
			}
			r1, r2 := base, base
			r1.period = p.Float("grating_period")
			r2.period = p.Float("grating_period2")
			if r2.period == 0 {
				r2.period = r1.period
			}
			r1.depth = p.Float("corrugation1_width")
			r2.depth = p.Float("corrugation2_width")
			if g <= (r1.depth+r2.depth)/4 {
				return domainErr("Contra_DC", "gap %g closed by the corrugations", g)
			}
			if r1.depth/2 >= w1 || r2.depth/2 >= w2 {
				return domainErr("Contra_DC", "corrugation too deep for the rail width")
			}
			y1 := g/2 + w1/2
			y2 := -(g/2 + w2/2)
			l := math.Max(r1.length(), r2.length())
			rails := []struct {
				c  corrugation
				y  float64
				w  float64
				up float64 // outward direction
			}{{r1, y1, w1, 1}, {r2, y2, w2, -1}}
			for _, rail := range rails {
				if err := rail.c.draw(cell, layer, rail.y, rail.w); err != nil {
					return err
				}
				if end := rail.c.length(); end < l {
					if err := box(cell, layer, pt(end, rail.y-rail.w/2), pt(l, rail.y+rail.w/2)); err != nil {
						return err
					}
				}
				if p.Bool("swg") {
					ps, sw := p.Float("swg_period"), p.Float("swg_width")
					edge := rail.y + rail.up*(rail.w+rail.c.depth/2)/2
					for k := 0; float64(k+1)*ps <= l; k++ {
						x0 := float64(k) * ps
						if err := box(cell, layer, pt(x0, edge), pt(x0+ps/2, edge+rail.up*sw)); err != nil {
							return err
						}
					}
				}
			}
			rec := devrec.New("contra_directional_coupler",
				devrec.Number("number_of_periods", float64(base.n)),
				devrec.Microns("grating_period", r1.period),
				devrec.Microns("grating_period2", r2.period),
				devrec.Microns("gap", g),
				devrec.Microns("wg1_width", w1),
				devrec.Microns("wg2_width", w2),
				devrec.Microns("corrugation1_width", r1.depth),
				devrec.Microns("corrugation2_width", r2.depth),
				devrec.Number("apodization_index", base.apod),
				devrec.Number("sinusoidal", boolNum(base.sinusoidal)),
				devrec.Number("anti_reflection", boolNum(base.ar)),
				devrec.Number("swg", boolNum(p.Bool("swg"))))
			return finish(cell, rec,
				optical("opt1", pt(0, y1), w1, 180),
				optical("opt2", pt(0, y2), w2, 180),
				optical("opt3", pt(l, y1), w1, 0),
				optical("opt4", pt(l, y2), w2, 0))
		},
	}
}
