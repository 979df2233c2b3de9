package layout

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// Shape is the closed set of geometric primitives a cell can hold:
// *Polygon, *Path, *Box and *Text.
type Shape interface {
	BBox() geom.Box
	Transformed(t geom.Transform) Shape
	Kind() string
}

// Polygon is a simple polygon with optional holes. NewPolygon normalizes
// the hull to counter-clockwise and holes to clockwise orientation.
type Polygon struct {
	Hull  []geom.Point
	Holes [][]geom.Point
}

// NewPolygon validates and normalizes a polygon. Consecutive duplicates are
// dropped; fewer than three distinct points or zero area is an error.
func NewPolygon(hull []geom.Point, holes ...[]geom.Point) (*Polygon, error) {
	h, err := normalizeRing(hull, true)
	if err != nil {
		return nil, err
	}
	p := &Polygon{Hull: h}
	for i, hole := range holes {
		r, err := normalizeRing(hole, false)
		if err != nil {
			return nil, fmt.Errorf("layout: hole %d: %w", i, err)
		}
		p.Holes = append(p.Holes, r)
	}
	return p, nil
}

func normalizeRing(pts []geom.Point, ccw bool) ([]geom.Point, error) {
	r := geom.Dedupe(pts, true)
	if geom.DistinctCount(r) < 3 {
		return nil, fmt.Errorf("layout: polygon needs 3 distinct points, got %d: %w", geom.DistinctCount(r), pdkerr.ErrGeometry)
	}
	a := geom.SignedArea(r)
	if a == 0 {
		return nil, fmt.Errorf("layout: polygon has zero area: %w", pdkerr.ErrGeometry)
	}
	if (a > 0) != ccw {
		r = geom.Reversed(r)
	}
	return r, nil
}

func (p *Polygon) Kind() string { return "polygon" }

func (p *Polygon) BBox() geom.Box { return geom.BoxOf(p.Hull) }

// Area returns the enclosed area in dbu², holes subtracted.
func (p *Polygon) Area() float64 {
	a := geom.SignedArea(p.Hull)
	for _, h := range p.Holes {
		a += geom.SignedArea(h)
	}
	return a
}

// Transformed keeps the orientation convention when t mirrors.
func (p *Polygon) Transformed(t geom.Transform) Shape {
	out := &Polygon{Hull: t.ApplyAll(p.Hull)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, t.ApplyAll(h))
	}
	if t.Mirror {
		out.Hull = geom.Reversed(out.Hull)
		for i, h := range out.Holes {
			out.Holes[i] = geom.Reversed(h)
		}
	}
	return out
}

// Path is a centreline with a constant width and flush ends.
type Path struct {
	Points []geom.Point
	Width  int // dbu
}

// NewPath rejects non-positive widths and consecutive duplicate points.
func NewPath(pts []geom.Point, width int) (*Path, error) {
	if width <= 0 {
		return nil, fmt.Errorf("layout: path width %d must be positive: %w", width, pdkerr.ErrParameterDomain)
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("layout: path needs 2 points: %w", pdkerr.ErrGeometry)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i] == pts[i-1] {
			return nil, fmt.Errorf("layout: path repeats point %v: %w", pts[i], pdkerr.ErrGeometry)
		}
	}
	return &Path{Points: append([]geom.Point(nil), pts...), Width: width}, nil
}

func (p *Path) Kind() string { return "path" }

func (p *Path) BBox() geom.Box { return geom.BoxOf(p.Points).Enlarged(p.Width / 2) }

func (p *Path) Transformed(t geom.Transform) Shape {
	return &Path{Points: t.ApplyAll(p.Points), Width: p.Width}
}

// Box is an axis-aligned rectangle shape.
type Box struct {
	geom.Box
}

func (b *Box) Kind() string { return "box" }

func (b *Box) BBox() geom.Box { return b.Box }

func (b *Box) Transformed(t geom.Transform) Shape { return &Box{b.Box.Transformed(t)} }

// HAlign is the horizontal alignment of a text label.
type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

// Text is a label anchored at a point. Its bounding box is the anchor.
type Text struct {
	String string
	Pos    geom.Point
	Size   int // dbu
	HAlign HAlign
	Rot    int // degrees, multiple of 90
}

func (x *Text) Kind() string { return "text" }

func (x *Text) BBox() geom.Box { return geom.NewBox(x.Pos, x.Pos) }

func (x *Text) Transformed(t geom.Transform) Shape {
	out := *x
	out.Pos = t.Apply(x.Pos)
	out.Rot = t.ApplyAngle(x.Rot)
	return &out
}
