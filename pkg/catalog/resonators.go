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

// annulus inserts a closed ring of centreline radius r and width w.
func annulus(cell *layout.Cell, layer string, c geom.DPoint, r, w float64, tol kernel.Tolerance) error {
	if w >= 2*r {
		return domainErr("ring", "width %g does not fit radius %g", w, r)
	}
	dbu := cell.Layout().DBU
	hull := geom.ToDBUAll(circle(c, r+w/2, tol), dbu)
	hole := geom.ToDBUAll(circle(c, r-w/2, tol), dbu)
	poly, err := layout.NewPolygon(hull, hole)
	if err != nil {
		return err
	}
	return cell.Insert(layer, poly)
}

// ringLayers draws the ring on every rendered layer of wt.
func ringLayers(ctx *pcell.Context, cell *layout.Cell, c geom.DPoint, r float64, wt *tech.WaveguideType) error {
	for _, l := range wt.Layers {
		if l.Layer == tech.LayerDevRec {
			continue
		}
		if err := annulus(cell, l.Layer, c, r-l.Offset, l.Width, ctx.Tol); err != nil {
			return err
		}
	}
	return nil
}

type ringParams struct {
	r, g, w, x float64
}

func ringSetup(ctx *pcell.Context, component string, p pcell.Params) (*tech.WaveguideType, ringParams, error) {
	wt, err := pcell.ResolveWaveguide(ctx, p, "waveguide_type")
	if err != nil {
		return nil, ringParams{}, err
	}
	if wt.IsCompound() {
		wt = wt.Compound.Singlemode
	}
	r := p.Float("radius")
	if r < wt.MinRadius() {
		return nil, ringParams{}, domainErr(component, "radius %g below %g", r, wt.MinRadius())
	}
	w := wt.Width
	return wt, ringParams{r: r, g: p.Float("gap"), w: w, x: r + w}, nil
}

func ringRecord(component string, rp ringParams) devrec.Record {
	return devrec.New(component,
		devrec.Microns("radius", rp.r),
		devrec.Microns("gap", rp.g),
		devrec.Microns("wg_width", rp.w),
		devrec.Microns("circumference", 2*math.Pi*rp.r))
}

func ringDecls(t *tech.Technology) []pcell.ParamDecl {
	return []pcell.ParamDecl{
		pcell.Double("radius", "Radius", 10, pcell.Positive()),
		pcell.Double("gap", "Gap", 0.2, pcell.Positive()),
		wgDecl(t, DefaultWaveguide),
	}
}

func ringSingleBus(t *tech.Technology) *component {
	return &component{
		name:   "Ring_Single_Bus",
		desc:   "Ring resonator coupled to one bus waveguide",
		params: ringDecls(t),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, rp, err := ringSetup(ctx, "Ring_Single_Bus", p)
			if err != nil {
				return err
			}
			if err := ringLayers(ctx, cell, pt(0, 0), rp.r, wt); err != nil {
				return err
			}
			y := -(rp.r + rp.g + rp.w)
			if _, err := sweep(ctx, cell, []geom.DPoint{pt(-rp.x, y), pt(rp.x, y)}, wt); err != nil {
				return err
			}
			return finish(cell, ringRecord("ebeam_ring_single_bus", rp),
				optical("pin1", pt(-rp.x, y), rp.w, 180),
				optical("pin2", pt(rp.x, y), rp.w, 0))
		},
	}
}

func ringDoubleBus(t *tech.Technology) *component {
	return &component{
		name:   "Ring_Double_Bus",
		desc:   "Add-drop ring resonator between two bus waveguides",
		params: ringDecls(t),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			wt, rp, err := ringSetup(ctx, "Ring_Double_Bus", p)
			if err != nil {
				return err
			}
			if err := ringLayers(ctx, cell, pt(0, 0), rp.r, wt); err != nil {
				return err
			}
			y := rp.r + rp.g + rp.w
			for _, yb := range []float64{-y, y} {
				if _, err := sweep(ctx, cell, []geom.DPoint{pt(-rp.x, yb), pt(rp.x, yb)}, wt); err != nil {
					return err
				}
			}
			return finish(cell, ringRecord("ebeam_ring_double_bus", rp),
				optical("pin1", pt(-rp.x, -y), rp.w, 180),
				optical("pin2", pt(rp.x, -y), rp.w, 0),
				optical("pin3", pt(-rp.x, y), rp.w, 180),
				optical("pin4", pt(rp.x, y), rp.w, 0))
		},
	}
}

func diskSingleBus(t *tech.Technology) *component {
	return &component{
		name: "Disk_Single_Bus",
		desc: "Disk resonator coupled to one bus waveguide",
		params: []pcell.ParamDecl{
			pcell.Double("radius", "Disk radius", 5, pcell.Positive()),
			pcell.Double("gap", "Gap", 0.2, pcell.Positive()),
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
			r, g, w := p.Float("radius"), p.Float("gap"), wt.Width
			if err := polygon(cell, wt.Layers[0].Layer, circle(pt(0, 0), r, ctx.Tol)); err != nil {
				return err
			}
			y := -(r + g + w/2)
			x := r + w
			if _, err := sweep(ctx, cell, []geom.DPoint{pt(-x, y), pt(x, y)}, wt); err != nil {
				return err
			}
			rec := devrec.New("ebeam_disk_single_bus",
				devrec.Microns("radius", r),
				devrec.Microns("gap", g),
				devrec.Microns("wg_width", w))
			return finish(cell, rec,
				optical("pin1", pt(-x, y), w, 180),
				optical("pin2", pt(x, y), w, 0))
		},
	}
}
