// Package compose places component instances against each other's pins
// and routes waveguides between pins.
package compose

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pin"
)

// WaveguideCell is the library component routes are drawn with.
const WaveguideCell = "Waveguide"

// portOf finds a pin of inst in parent coordinates, or of parent itself
// when inst is nil.
func portOf(parent *layout.Cell, inst *layout.Instance, name string) (pin.Pin, error) {
	if inst == nil {
		p, err := pin.Find(parent, name)
		if err != nil {
			return pin.Pin{}, fmt.Errorf("compose: %w: %w", pdkerr.ErrComposition, err)
		}
		return p, nil
	}
	if inst.Parent() != parent {
		return pin.Pin{}, fmt.Errorf("compose: instance of %s is not in %s: %w", inst.Cell.Name(), parent.Name(), pdkerr.ErrComposition)
	}
	p, err := pin.FindInstance(inst, name)
	if err != nil {
		return pin.Pin{}, fmt.Errorf("compose: %w: %w", pdkerr.ErrComposition, err)
	}
	return p, nil
}

// ConnectCell instantiates target in parent so that its targetPort sits on
// anchorPort of anchor and faces the opposite way. A nil anchor uses the
// parent's own pins.
func ConnectCell(parent *layout.Cell, anchor *layout.Instance, anchorPort string, target *layout.Cell, targetPort string) (*layout.Instance, error) {
	ap, err := portOf(parent, anchor, anchorPort)
	if err != nil {
		return nil, err
	}
	tp, err := pin.Find(target, targetPort)
	if err != nil {
		return nil, fmt.Errorf("compose: %w: %w", pdkerr.ErrComposition, err)
	}
	if ap.Kind != tp.Kind {
		return nil, fmt.Errorf("compose: cannot join %s pin %s to %s pin %s: %w",
			ap.Kind, ap.Name, tp.Kind, tp.Name, pdkerr.ErrComposition)
	}
	rot, err := geom.QuarterTurns(geom.NormAngle(ap.Angle + 180 - tp.Angle))
	if err != nil {
		return nil, fmt.Errorf("compose: %w: %w", pdkerr.ErrComposition, err)
	}
	tr := geom.Transform{Rot: rot}
	tr.Disp = ap.Pos.Sub(tr.Apply(tp.Pos))
	inst, err := parent.AddInstance(target, tr)
	if err != nil {
		return nil, fmt.Errorf("compose: %w: %w", pdkerr.ErrComposition, err)
	}
	return inst, nil
}

// Route is a waveguide drawn between two pins.
type Route struct {
	Instance *layout.Instance
	Points   []geom.DPoint // manhattan centreline in parent coordinates, µm
	Length   float64       // lowered centreline length, µm
}

// ConnectPinsWithWaveguide routes a waveguide of type wgType from portA of
// instA to portB of instB. Each end first follows its turtle, then the two
// chain ends are joined by a straight, an L, an S or a U. Nil instances
// refer to the parent's own pins.
func ConnectPinsWithWaveguide(ctx *pcell.Context, parent *layout.Cell,
	instA *layout.Instance, portA string, instB *layout.Instance, portB string,
	wgType string, turtleA, turtleB Turtle) (*Route, error) {
	if ctx.Library == nil {
		return nil, fmt.Errorf("compose: routing needs a component library: %w", pdkerr.ErrComposition)
	}
	a, err := portOf(parent, instA, portA)
	if err != nil {
		return nil, err
	}
	b, err := portOf(parent, instB, portB)
	if err != nil {
		return nil, err
	}
	if a.Kind != pin.Optical || b.Kind != pin.Optical {
		return nil, fmt.Errorf("compose: waveguides join optical pins, got %s and %s: %w", a, b, pdkerr.ErrComposition)
	}
	wt, err := ctx.Tech().Waveguide(wgType)
	if err != nil {
		return nil, err
	}
	if err := turtleA.Validate(); err != nil {
		return nil, err
	}
	if err := turtleB.Validate(); err != nil {
		return nil, err
	}

	dbu := ctx.Layout.DBU
	chainA, ha := turtleA.walk(a.Pos, a.Angle, dbu)
	chainB, hb := turtleB.walk(b.Pos, b.Angle, dbu)
	pa, pb := chainA[len(chainA)-1], chainB[len(chainB)-1]
	corners, err := join(pa, ha, pb, hb, ctx.Layout.ToDBU(wt.Radius))
	if err != nil {
		return nil, fmt.Errorf("compose: %s to %s: %w", a, b, err)
	}
	path := append(append(chainA, corners...), geom.Reversed(chainB)...)
	path = geom.Dedupe(path, false)
	pts := geom.FromDBUAll(path, dbu)

	width := ctx.Layout.ToDBU(wt.Width)
	if a.Width != width || b.Width != width {
		ctx.Logger.Warn("route width differs from pins", "waveguide", wgType, "from", a.String(), "to", b.String())
	}

	cell, err := ctx.Library.CreateChild(ctx, WaveguideCell, map[string]any{
		"path":           pts,
		"waveguide_type": wgType,
	})
	if err != nil {
		return nil, fmt.Errorf("compose: %w: %w", pdkerr.ErrComposition, err)
	}
	inst, err := parent.AddInstance(cell, geom.Identity())
	if err != nil {
		return nil, err
	}
	rec, err := devrec.Extract(cell)
	if err != nil {
		return nil, err
	}
	length, _ := rec.Get("wg_length")
	ctx.Logger.Debug("routed", "from", a.String(), "to", b.String(), "points", len(pts), "length", length.Num)
	return &Route{Instance: inst, Points: pts, Length: length.Num}, nil
}

func dot(v geom.Vector, u geom.Vector) int { return v.X*u.X + v.Y*u.Y }

func vec(p geom.Point) geom.Vector { return geom.Vector{X: p.X, Y: p.Y} }

// join returns the corners of a manhattan path leaving pa along heading ha
// and entering pb against heading hb. ext is how far a U-turn overshoots
// the further end.
func join(pa geom.Point, ha int, pb geom.Point, hb int, ext int) ([]geom.Point, error) {
	da, db := geom.CardinalVector(ha), geom.CardinalVector(hb)
	d := pb.Sub(pa)
	along := dot(d, da)
	perp := d.Add(da.Scale(along).Neg())

	switch {
	case geom.NormAngle(hb-ha) == 180:
		if along <= 0 {
			return nil, fmt.Errorf("ports face each other but do not overlap: %w", pdkerr.ErrComposition)
		}
		if perp == (geom.Vector{}) {
			return nil, nil
		}
		c1 := pa.Add(da.Scale(along / 2))
		return []geom.Point{c1, c1.Add(perp)}, nil

	case ha == hb:
		if perp == (geom.Vector{}) {
			return nil, fmt.Errorf("ports face the same way on one line: %w", pdkerr.ErrComposition)
		}
		far := max(dot(vec(pa), da), dot(vec(pb), da)) + ext
		c1 := pa.Add(da.Scale(far - dot(vec(pa), da)))
		c2 := pb.Add(da.Scale(far - dot(vec(pb), da)))
		return []geom.Point{c1, c2}, nil

	default:
		s := -dot(d, db)
		if along <= 0 || s <= 0 {
			return nil, fmt.Errorf("no single-corner join between headings %d and %d: %w", ha, hb, pdkerr.ErrComposition)
		}
		return []geom.Point{pa.Add(da.Scale(along))}, nil
	}
}
