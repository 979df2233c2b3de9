// Package catalog holds the EBeam component library: waveguides, bends,
// tapers, couplers, resonators, gratings, spirals, photonic crystals and a
// few fixed cells. Every component draws its geometry, a DevRec outline,
// its pins and a device-recognition annotation.
package catalog

import (
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pin"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/waveguide"
)

// LibraryName is the name the catalogue registers under.
const LibraryName = "EBeam"

// DefaultWaveguide is the waveguide type components use unless told
// otherwise.
const DefaultWaveguide = "Strip TE 1550 nm, w=500 nm"

// devRecMargin pads the DevRec outline on sides without pins (µm).
const devRecMargin = 1.0

// Upper bounds on count parameters. They keep a single cell within about
// 10^5 polygons.
const (
	maxPeriods     = 20000
	maxTeeth       = 1000
	maxCouplers    = 64
	maxRows        = 50
	maxHalfColumns = 250
	maxTurns       = 50
)

type produceFunc func(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error

// component adapts a schema and a produce function to pcell.PCell.
type component struct {
	name    string
	desc    string
	params  []pcell.ParamDecl
	produce produceFunc
}

func (c *component) Name() string              { return c.name }
func (c *component) Description() string       { return c.desc }
func (c *component) Params() []pcell.ParamDecl { return slices.Clone(c.params) }
func (c *component) Produce(ctx *pcell.Context, p pcell.Params, cell *layout.Cell) error {
	return c.produce(ctx, p, cell)
}

// coercing is a component with a parameter normalization step.
type coercing struct {
	*component
	coerce func(ctx *pcell.Context, p pcell.Params) (pcell.Params, error)
}

func (c *coercing) Coerce(ctx *pcell.Context, p pcell.Params) (pcell.Params, error) {
	return c.coerce(ctx, p)
}

// All returns every catalogue component for technology t.
func All(t *tech.Technology) []pcell.PCell {
	return []pcell.PCell{
		waveguidePath(t),
		waveguideStraight(t),
		waveguideBend(t),
		waveguideBendBezier(t),
		waveguideBendEuler(t),
		waveguideEuler180(t),
		waveguideSBend(t),
		waveguideArc(),
		waveguideHeater(t),
		taperLinear(),
		taperBezier(),
		terminatorTaper(t),
		edgeCouplerPWB(t),
		dcHalfring(t),
		dcBezier(t),
		yBranch(t),
		mmi1x2(t),
		contraDC(),
		ringSingleBus(t),
		ringDoubleBus(t),
		diskSingleBus(t),
		braggGrating(),
		braggGratingWaveguide(t),
		gcFocusing(t),
		gcFocusingSWG(t),
		gcArray(t),
		swgWaveguide(),
		swgStripTaper(),
		spiral(t, false),
		spiral(t, true),
		phcW1(),
		phcH0(),
		phcL3(),
		roundedBox(),
		fixedTerminator(t),
		fixedYBranch(t),
	}
}

// Register adds every catalogue component to lib.
func Register(lib *pcell.Library, t *tech.Technology) error {
	return lib.Register(All(t)...)
}

// NewLibrary returns the EBeam library for technology t.
func NewLibrary(t *tech.Technology) (*pcell.Library, error) {
	lib := pcell.NewLibrary(LibraryName)
	if err := Register(lib, t); err != nil {
		return nil, err
	}
	return lib, nil
}

func domainErr(component, format string, args ...any) error {
	return fmt.Errorf("catalog: %s: %s: %w", component, fmt.Sprintf(format, args...), pdkerr.ErrParameterDomain)
}

// wgDecl is the usual waveguide type parameter.
func wgDecl(t *tech.Technology, def string) pcell.ParamDecl {
	return pcell.WaveguideTypeDecl(t, "waveguide_type", "Waveguide type", def)
}

// wgOptions renders waveguides at the context's tolerance without the
// type's DevRec strip; finish draws the outline.
func wgOptions(ctx *pcell.Context) waveguide.Options {
	opt := waveguide.DefaultOptions()
	opt.Tol = ctx.Tol
	opt.OmitLayers = []string{tech.LayerDevRec}
	return opt
}

// sweep renders a smooth centreline with every layer of wt.
func sweep(ctx *pcell.Context, cell *layout.Cell, center []geom.DPoint, wt *tech.WaveguideType) (*waveguide.Result, error) {
	res, err := waveguide.Sweep(center, wt, wgOptions(ctx))
	if err != nil {
		return nil, err
	}
	return res, waveguide.Insert(cell, res)
}

// route lowers a Manhattan or free-angle polyline with bends of radius r
// (0 for the type default).
func route(ctx *pcell.Context, cell *layout.Cell, pts []geom.DPoint, wt *tech.WaveguideType, r float64, strict bool) (*waveguide.Result, error) {
	opt := wgOptions(ctx)
	opt.Radius = r
	opt.Strict = strict
	res, err := waveguide.Lower(pts, wt, opt)
	if err != nil {
		return nil, err
	}
	return res, waveguide.Insert(cell, res)
}

// polygon inserts a closed outline given in µm.
func polygon(cell *layout.Cell, layer string, pts []geom.DPoint) error {
	_, err := cell.InsertPolygon(layer, pts)
	return err
}

// box inserts the rectangle with corners a and b.
func box(cell *layout.Cell, layer string, a, b geom.DPoint) error {
	_, err := cell.InsertBox(layer, a, b)
	return err
}

// pt is shorthand for a µm point.
func pt(x, y float64) geom.DPoint { return geom.DPoint{X: x, Y: y} }

// port describes a pin to be drawn by finish.
type port struct {
	name       string
	pos        geom.DPoint
	width      float64
	angle      int
	electrical bool
}

func optical(name string, pos geom.DPoint, width float64, angle int) port {
	return port{name: name, pos: pos, width: width, angle: angle}
}

func electrical(name string, pos geom.DPoint, width float64, angle int) port {
	return port{name: name, pos: pos, width: width, angle: angle, electrical: true}
}

// finish draws the DevRec outline, the pins and the annotation. The
// outline is the bounding box of the geometry drawn so far; each side that
// a pin faces is moved onto the outermost such pin, the other sides get a
// margin.
func finish(cell *layout.Cell, rec devrec.Record, ports ...port) error {
	ly := cell.Layout()
	bb := cell.BBox()
	for _, p := range ports {
		bb.Expand(geom.ToDBU(p.pos, ly.DBU))
	}
	if bb.IsEmpty() {
		bb = geom.NewBox(geom.Point{}, geom.Point{})
	}

	lo, hi := bb.Min, bb.Max
	var faced [4]bool // +x, +y, -x, -y
	for _, p := range ports {
		q := geom.ToDBU(p.pos, ly.DBU)
		side := geom.NormAngle(p.angle) / 90
		switch side {
		case 0:
			if !faced[0] || q.X > hi.X {
				hi.X = q.X
			}
		case 1:
			if !faced[1] || q.Y > hi.Y {
				hi.Y = q.Y
			}
		case 2:
			if !faced[2] || q.X < lo.X {
				lo.X = q.X
			}
		case 3:
			if !faced[3] || q.Y < lo.Y {
				lo.Y = q.Y
			}
		}
		faced[side] = true
	}
	m := ly.ToDBU(devRecMargin)
	if !faced[0] {
		hi.X += m
	}
	if !faced[1] {
		hi.Y += m
	}
	if !faced[2] {
		lo.X -= m
	}
	if !faced[3] {
		lo.Y -= m
	}
	outline := geom.NewBox(lo, hi)
	if outline.Width() > 0 && outline.Height() > 0 {
		if err := cell.Insert(tech.LayerDevRec, &layout.Box{Box: outline}); err != nil {
			return err
		}
	}

	for _, p := range ports {
		layer := tech.LayerPinRec
		if p.electrical {
			layer = tech.LayerPinRecM
		}
		if _, err := pin.Make(cell, p.name, p.pos, p.width, layer, p.angle); err != nil {
			return err
		}
	}
	return devrec.Insert(cell, rec, geom.FromDBU(outline.Center(), ly.DBU))
}

// child produces another library component as a sub-cell.
func child(ctx *pcell.Context, name string, overrides map[string]any) (*layout.Cell, error) {
	if ctx.Library == nil {
		return nil, fmt.Errorf("catalog: %s needs a library: %w", name, pdkerr.ErrComposition)
	}
	return ctx.Library.CreateChild(ctx, name, overrides)
}
