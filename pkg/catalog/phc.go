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

// hole addresses a lattice site by row and doubled column: x = col·a/2,
// y = row·a·√3/2. Even rows use even columns and odd rows odd ones.
type hole struct{ row, col int }

// lattice is a slab with a triangular lattice of circular holes centred at
// the origin, with rows on each side of row 0 and half columns on each side
// of column 0.
type lattice struct {
	a, r  float64
	rows  int
	half  int
	skip  func(h hole) bool
	shift func(h hole) geom.DPoint
}

func (l lattice) length() float64 { return float64(2*l.half+1) * l.a }
func (l lattice) height() float64 { return float64(2*l.rows+1) * l.a * math.Sqrt(3) / 2 }

// lineWidth is the width of a missing row.
func (l lattice) lineWidth() float64 { return math.Sqrt(3)*l.a - 2*l.r }

func (l lattice) draw(ctx *pcell.Context, cell *layout.Cell, layer string) (int, error) {
	dbu := cell.Layout().DBU
	hl, hh := l.length()/2, l.height()/2
	hull := geom.ToDBUAll([]geom.DPoint{pt(-hl, -hh), pt(hl, -hh), pt(hl, hh), pt(-hl, hh)}, dbu)
	var holes [][]geom.Point
	for row := -l.rows; row <= l.rows; row++ {
		parity := row & 1
		for col := -2 * l.half; col <= 2*l.half; col++ {
			if col&1 != parity {
				continue
			}
			h := hole{row, col}
			if l.skip != nil && l.skip(h) {
				continue
			}
			c := pt(float64(col)*l.a/2, float64(row)*l.a*math.Sqrt(3)/2)
			if l.shift != nil {
				c = c.Add(l.shift(h))
			}
			holes = append(holes, geom.ToDBUAll(circle(c, l.r, ctx.Tol), dbu))
		}
	}
	poly, err := layout.NewPolygon(hull, holes...)
	if err != nil {
		return 0, err
	}
	return len(holes), cell.Insert(layer, poly)
}

func latticeDecls() []pcell.ParamDecl {
	return []pcell.ParamDecl{
		pcell.Double("a", "Lattice constant", 0.42, pcell.Positive()),
		pcell.Double("r", "Hole radius", 0.12, pcell.Positive()),
		pcell.Int("rows", "Rows on each side of the defect", 7, pcell.Min(2), pcell.Max(maxRows)),
		pcell.Int("half_columns", "Columns on each side of the centre", 15, pcell.Min(6), pcell.Max(maxHalfColumns)),
		pcell.Layer("layer", "Layer", tech.LayerSi),
	}
}

func latticeFrom(component string, p pcell.Params) (lattice, error) {
	l := lattice{a: p.Float("a"), r: p.Float("r"), rows: p.Int("rows"), half: p.Int("half_columns")}
	// Edge rows sit a·√3/4 inside the slab, closer than the a/2 between
	// neighbouring holes.
	if l.r >= l.a*math.Sqrt(3)/4 {
		return l, domainErr(component, "hole radius %g crosses the slab edge at a=%g", l.r, l.a)
	}
	return l, nil
}

// shiftDecls declares the outward displacements of the holes next to a
// cavity.
func shiftDecls(x []float64, y []float64) []pcell.ParamDecl {
	var out []pcell.ParamDecl
	for i, v := range x {
		out = append(out, pcell.Double("s"+itoa1(i)+"x", "Shift of hole S"+itoa1(i)+" along x", v))
	}
	for i, v := range y {
		out = append(out, pcell.Double("s"+itoa1(i)+"y", "Shift of hole S"+itoa1(i)+" along y", v))
	}
	return out
}

func itoa1(i int) string { return string(rune('1' + i)) }

func sign(v int) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// cavityShift moves the row-0 holes at doubled columns ±(first+2k) by
// s(k+1)x and the row ±1 holes at doubled columns ±(2k+1) by s(k+1)y, all
// away from the cavity centre.
func cavityShift(p pcell.Params, first int) func(h hole) geom.DPoint {
	return func(h hole) geom.DPoint {
		ac := h.col
		if ac < 0 {
			ac = -ac
		}
		switch {
		case h.row == 0 && ac >= first && (ac-first)%2 == 0 && (ac-first)/2 < 5:
			k := (ac - first) / 2
			return pt(sign(h.col)*p.Float("s"+itoa1(k)+"x"), 0)
		case (h.row == 1 || h.row == -1) && (ac-1)/2 < 2:
			k := (ac - 1) / 2
			return pt(0, sign(h.row)*p.Float("s"+itoa1(k)+"y"))
		}
		return geom.DPoint{}
	}
}

func phcProduce(ctx *pcell.Context, component, model string, p pcell.Params, cell *layout.Cell, l lattice) error {
	n, err := l.draw(ctx, cell, p.String("layer"))
	if err != nil {
		return err
	}
	hl := l.length() / 2
	w := l.lineWidth()
	rec := devrec.New(model,
		devrec.Microns("a", l.a),
		devrec.Microns("r", l.r),
		devrec.Number("holes", float64(n)))
	return finish(cell, rec,
		optical("opt1", pt(-hl, 0), w, 180),
		optical("opt2", pt(hl, 0), w, 0))
}

func phcW1() *component {
	return &component{
		name:   "PhC_W1",
		desc:   "Photonic crystal line-defect waveguide",
		params: latticeDecls(),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			l, err := latticeFrom("PhC_W1", p)
			if err != nil {
				return err
			}
			l.skip = func(h hole) bool { return h.row == 0 }
			return phcProduce(ctx, "PhC_W1", "phc_w1", p, cell, l)
		},
	}
}

func phcH0() *component {
	return &component{
		name:   "PhC_H0_Cavity",
		desc:   "Photonic crystal cavity with a single hole removed",
		params: append(latticeDecls(), shiftDecls([]float64{0.03, 0.02, 0.01, 0, 0}, []float64{0.01, 0})...),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			l, err := latticeFrom("PhC_H0_Cavity", p)
			if err != nil {
				return err
			}
			l.skip = func(h hole) bool { return h.row == 0 && h.col == 0 }
			l.shift = cavityShift(p, 2)
			return phcProduce(ctx, "PhC_H0_Cavity", "phc_h0", p, cell, l)
		},
	}
}

func phcL3() *component {
	return &component{
		name:   "PhC_L3_Cavity",
		desc:   "Photonic crystal cavity with three holes removed in a row",
		params: append(latticeDecls(), shiftDecls([]float64{0.07, 0.02, 0.01, 0, 0}, []float64{0, 0})...),
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			l, err := latticeFrom("PhC_L3_Cavity", p)
			if err != nil {
				return err
			}
			l.skip = func(h hole) bool { return h.row == 0 && h.col >= -2 && h.col <= 2 }
			l.shift = cavityShift(p, 4)
			return phcProduce(ctx, "PhC_L3_Cavity", "phc_l3", p, cell, l)
		},
	}
}

func roundedBox() *component {
	return &component{
		name: "Rounded_Box",
		desc: "Rectangle with Bezier-rounded corners",
		params: []pcell.ParamDecl{
			pcell.Double("width", "Width", 10, pcell.Positive()),
			pcell.Double("height", "Height", 5, pcell.Positive()),
			pcell.Number("fraction", "Corner radius as a fraction of the half short side", 0.5, pcell.Min(0), pcell.Max(1)),
			pcell.Layer("layer", "Layer", tech.LayerSi),
		},
		produce: func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
			w, h := p.Float("width"), p.Float("height")
			outline, err := kernel.BoxWithBezierCorners(w, h, p.Float("fraction"), ctx.Tol)
			if err != nil {
				return err
			}
			if err := polygon(cell, p.String("layer"), outline); err != nil {
				return err
			}
			rec := devrec.New("rounded_box", devrec.Microns("width", w), devrec.Microns("height", h))
			return finish(cell, rec)
		},
	}
}
