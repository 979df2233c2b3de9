package catalog

import (
	"math"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// segments draws n blocks of width w and length duty·period along +x.
func segments(cell *layout.Cell, layer string, n int, period, duty, w float64) error {
	for i := 0; i < n; i++ {
		x0 := float64(i) * period
		if err := box(cell, layer, pt(x0, -w/2), pt(x0+duty*period, w/2)); err != nil {
			return err
		}
	}
	return nil
}

// periods returns how many whole periods fit in length.
func periods(length, period float64) int {
	return int(math.Floor(length/period + 1e-9))
}

func swgDecls(length float64) []pcell.ParamDecl {
	return []pcell.ParamDecl{
		pcell.Double("length", "Length", length, pcell.Positive()),
		pcell.Double("period", "Period", 0.2, pcell.Positive()),
		pcell.Number("duty", "Duty cycle", 0.5, pcell.Positive(), pcell.Max(0.99)),
		pcell.Double("swg_width", "Segment width", 0.5, pcell.Positive()),
		pcell.Layer("layer", "Layer", tech.LayerSi),
	}
}

func swgWaveguide() *component {
	return &component{
		name:   "SWG_Waveguide",
		desc:   "Sub-wavelength grating waveguide",
		params: swgDecls(20),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			period, duty, w := p.Float("period"), p.Float("duty"), p.Float("swg_width")
			n := periods(p.Float("length"), period)
			if n < 1 {
				return domainErr("SWG_Waveguide", "length shorter than one period")
			}
			if err := segments(cell, p.String("layer"), n, period, duty, w); err != nil {
				return err
			}
			l := float64(n) * period
			rec := devrec.New("ebeam_swg_waveguide",
				devrec.Microns("length", l),
				devrec.Microns("period", period),
				devrec.Number("duty", duty),
				devrec.Microns("swg_width", w))
			return finish(cell, rec,
				optical("opt1", pt(0, 0), w, 180),
				optical("opt2", pt(l, 0), w, 0))
		},
	}
}

func swgStripTaper() *component {
	decls := append(swgDecls(15),
		pcell.Double("strip_width", "Strip width", 0.5, pcell.Positive()),
		pcell.Double("tip_width", "Bridge tip width", 0.06, pcell.Positive()),
	)
	return &component{
		name:   "SWG_Strip_Taper",
		desc:   "Converter from a sub-wavelength grating waveguide to a strip waveguide",
		params: decls,
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			period, duty, w := p.Float("period"), p.Float("duty"), p.Float("swg_width")
			ws, tip := p.Float("strip_width"), p.Float("tip_width")
			if tip >= ws {
				return domainErr("SWG_Strip_Taper", "tip %g not narrower than the strip %g", tip, ws)
			}
			n := periods(p.Float("length"), period)
			if n < 1 {
				return domainErr("SWG_Strip_Taper", "length shorter than one period")
			}
			layer := p.String("layer")
			if err := segments(cell, layer, n, period, duty, w); err != nil {
				return err
			}
			l := float64(n) * period
			if err := polygon(cell, layer, taperOutline(l, tip, ws)); err != nil {
				return err
			}
			rec := devrec.New("ebeam_swg_strip_taper",
				devrec.Microns("length", l),
				devrec.Microns("period", period),
				devrec.Number("duty", duty),
				devrec.Microns("swg_width", w),
				devrec.Microns("strip_width", ws))
			return finish(cell, rec,
				optical("opt1", pt(0, 0), w, 180),
				optical("opt2", pt(l, 0), ws, 0))
		},
	}
}
