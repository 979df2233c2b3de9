package waveguide

import (
	"fmt"
	"math"
	"slices"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// Bend is the rounding inserted at one interior vertex.
type Bend struct {
	Vertex  geom.DPoint
	Angle   float64 // signed turn in degrees, positive turns left
	Radius  float64 // µm, after clamping
	Clamped bool
	Points  []geom.DPoint // from the tangent point on the incoming segment to the one on the outgoing segment
}

// SectionKind labels the pieces of a compound waveguide.
type SectionKind int

const (
	Singlemode SectionKind = iota
	Taper
	Multimode
)

func (k SectionKind) String() string {
	switch k {
	case Taper:
		return "taper"
	case Multimode:
		return "multimode"
	default:
		return "singlemode"
	}
}

// Section is one piece of the rendered waveguide.
type Section struct {
	Kind   SectionKind
	Length float64 // centreline length, µm
}

// LayerPolygon is one lowered polygon and the layer it belongs on.
type LayerPolygon struct {
	Layer   string
	Polygon *layout.Polygon
}

// Result is the outcome of Lower.
type Result struct {
	Type       *tech.WaveguideType
	Centerline []geom.DPoint
	Bends      []Bend
	Sections   []Section
	Polygons   []LayerPolygon
	// Length is the area of the first component layer divided by its
	// nominal width, summed over sections.
	Length       float64
	LayerLengths map[string]float64
}

// Lower turns a centreline (µm) into polygons on every layer of wt.
func Lower(pts []geom.DPoint, wt *tech.WaveguideType, opt Options) (*Result, error) {
	if wt == nil {
		return nil, fmt.Errorf("waveguide: no waveguide type: %w", pdkerr.ErrParameterDomain)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	bendType := wt
	if wt.IsCompound() {
		bendType = wt.Compound.Singlemode
	}
	radius := wt.Radius
	if opt.Radius > 0 {
		radius = opt.Radius
	}
	if radius < bendType.MinRadius() {
		return nil, fmt.Errorf("waveguide: radius %g below %g for %q: %w", radius, bendType.MinRadius(), wt.Name, pdkerr.ErrParameterDomain)
	}

	verts, err := prepare(pts, opt.Tol.DBU)
	if err != nil {
		return nil, err
	}
	center, bends, err := route(verts, radius, bendType, opt)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Type:         wt,
		Centerline:   center,
		Bends:        bends,
		LayerLengths: make(map[string]float64),
	}
	lw := &lowering{res: res, dbu: opt.Tol.DBU, omit: opt.OmitLayers}
	if wt.IsCompound() {
		err = lw.compound(verts, bends, wt.Compound, opt.CompoundSlack)
	} else {
		err = lw.piece(center, wt.Layers, nil, Singlemode)
	}
	if err != nil {
		return nil, err
	}
	primary := bendType.Layers[0].Layer
	res.Length = res.LayerLengths[primary]
	return res, nil
}

// Sweep renders a centreline that is already smooth, such as a sampled
// arc or spiral. No vertex is rounded and the points are not snapped to
// the grid before offsetting. Compound types render as their singlemode
// type.
func Sweep(center []geom.DPoint, wt *tech.WaveguideType, opt Options) (*Result, error) {
	if wt == nil {
		return nil, fmt.Errorf("waveguide: no waveguide type: %w", pdkerr.ErrParameterDomain)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if wt.IsCompound() {
		wt = wt.Compound.Singlemode
	}
	center = geom.DedupeD(center, 1e-9)
	if len(center) < 2 {
		return nil, fmt.Errorf("waveguide: centreline needs 2 distinct points: %w", pdkerr.ErrGeometry)
	}
	res := &Result{Type: wt, Centerline: center, LayerLengths: make(map[string]float64)}
	lw := &lowering{res: res, dbu: opt.Tol.DBU, omit: opt.OmitLayers}
	if err := lw.piece(center, wt.Layers, nil, Singlemode); err != nil {
		return nil, err
	}
	res.Length = res.LayerLengths[wt.Layers[0].Layer]
	return res, nil
}

// Insert writes the lowered polygons onto cell in order.
func Insert(cell *layout.Cell, res *Result) error {
	for _, lp := range res.Polygons {
		if err := cell.Insert(lp.Layer, lp.Polygon); err != nil {
			return err
		}
	}
	return nil
}

// prepare snaps the polyline to the grid, drops repeated and collinear
// vertices and rejects reversals.
func prepare(pts []geom.DPoint, dbu float64) ([]geom.DPoint, error) {
	grid := geom.Dedupe(geom.ToDBUAll(pts, dbu), false)
	if len(grid) < 2 {
		return nil, fmt.Errorf("waveguide: path needs 2 distinct points, got %d: %w", len(grid), pdkerr.ErrGeometry)
	}
	out := []geom.Point{grid[0]}
	for i := 1; i < len(grid)-1; i++ {
		a, b, c := out[len(out)-1], grid[i], grid[i+1]
		u, v := b.Sub(a), c.Sub(b)
		cross := int64(u.X)*int64(v.Y) - int64(u.Y)*int64(v.X)
		if cross == 0 {
			if int64(u.X)*int64(v.X)+int64(u.Y)*int64(v.Y) < 0 {
				return nil, fmt.Errorf("waveguide: path reverses at %v: %w", geom.FromDBU(b, dbu), pdkerr.ErrGeometry)
			}
			continue
		}
		out = append(out, b)
	}
	out = append(out, grid[len(grid)-1])
	return geom.FromDBUAll(out, dbu), nil
}

// route rounds every interior vertex. A segment shared by two bends gives
// each at most half its length; the first and last segments belong to one
// bend only.
func route(v []geom.DPoint, radius float64, wt *tech.WaveguideType, opt Options) ([]geom.DPoint, []Bend, error) {
	n := len(v)
	seg := make([]float64, n-1)
	for j := range seg {
		seg[j] = v[j+1].Dist(v[j])
	}
	share := func(j int) float64 {
		if j >= 1 && j+1 <= n-2 {
			return seg[j] / 2
		}
		return seg[j]
	}

	center := []geom.DPoint{v[0]}
	var bends []Bend
	for i := 1; i < n-1; i++ {
		hIn := geom.Heading(v[i].Sub(v[i-1]))
		theta := geom.AngleDiff(geom.Heading(v[i+1].Sub(v[i])), hIn)
		tanHalf := math.Tan(math.Abs(theta) * math.Pi / 360)
		maxT := math.Min(share(i-1), share(i))

		r := radius
		clamped := false
		if r*tanHalf > maxT+1e-9 {
			if opt.Strict {
				return nil, nil, fmt.Errorf("waveguide: bend of radius %g at %v needs %.3f µm of straight, %.3f available: %w",
					radius, v[i], r*tanHalf, maxT, pdkerr.ErrGeometry)
			}
			r = maxT / tanHalf
			clamped = true
		}
		if r < wt.Width/2 {
			return nil, nil, fmt.Errorf("waveguide: bend at %v fits only radius %.4g, below half the width %g: %w",
				v[i], r, wt.Width, pdkerr.ErrGeometry)
		}

		local, err := bendShape(wt, r, theta, opt.Tol)
		if err != nil {
			return nil, nil, err
		}
		t := r * tanHalf
		start := v[i].Sub(geom.Dir(hIn).Scale(t))
		end := v[i].Add(geom.Dir(hIn + theta).Scale(t))
		pts := geom.DTransform{Angle: hIn, Disp: start}.ApplyAll(local)
		pts[0], pts[len(pts)-1] = start, end

		bends = append(bends, Bend{Vertex: v[i], Angle: theta, Radius: r, Clamped: clamped, Points: pts})
		center = append(center, pts...)
	}
	center = append(center, v[n-1])
	return geom.DedupeD(center, 1e-9), bends, nil
}

// bendShape returns a bend starting at the origin heading +x.
func bendShape(wt *tech.WaveguideType, r, theta float64, tol kernel.Tolerance) ([]geom.DPoint, error) {
	switch wt.Style {
	case tech.BendBezier:
		return kernel.BezierBend(r, theta, wt.Bezier, tol)
	case tech.BendAdiabatic:
		res, err := kernel.EulerBend(r, theta, wt.EulerP, tol)
		if err != nil {
			return nil, err
		}
		return res.Points, nil
	default:
		return kernel.ArcSection(r, theta, tol)
	}
}

type lowering struct {
	res  *Result
	dbu  float64
	omit []string
}

func (lw *lowering) omitted(layer string) bool {
	return slices.Contains(lw.omit, layer)
}

// piece lowers one centreline run. When to is non-nil the run is a taper
// from the from layers to the to layers, paired by layer name.
func (lw *lowering) piece(center []geom.DPoint, from, to []tech.WaveguideLayer, kind SectionKind) error {
	center = geom.DedupeD(center, 1e-9)
	if len(center) < 2 {
		return nil
	}
	seen := make(map[string]bool)
	emit := func(layer string, outline []geom.DPoint, width float64) error {
		if lw.omitted(layer) {
			return nil
		}
		poly, err := layout.NewPolygon(geom.ToDBUAll(outline, lw.dbu))
		if err != nil {
			return fmt.Errorf("waveguide: %s outline: %w", layer, err)
		}
		lw.res.Polygons = append(lw.res.Polygons, LayerPolygon{Layer: layer, Polygon: poly})
		if !seen[layer] {
			seen[layer] = true
			lw.res.LayerLengths[layer] += poly.Area() * lw.dbu * lw.dbu / width
		}
		return nil
	}

	if to == nil {
		for _, l := range from {
			outline, err := kernel.Ribbon(center, l.Width, l.Offset)
			if err != nil {
				return err
			}
			if err := emit(l.Layer, outline, l.Width); err != nil {
				return err
			}
		}
	} else {
		used := make([]bool, len(to))
		for _, l := range from {
			w2, off2 := l.Width, l.Offset
			for k, m := range to {
				if !used[k] && m.Layer == l.Layer {
					used[k] = true
					w2, off2 = m.Width, m.Offset
					break
				}
			}
			outline, err := kernel.TaperRibbon(center, l.Width, w2, l.Offset, off2)
			if err != nil {
				return err
			}
			if err := emit(l.Layer, outline, (l.Width+w2)/2); err != nil {
				return err
			}
		}
		for k, m := range to {
			if used[k] {
				continue
			}
			outline, err := kernel.TaperRibbon(center, 0, m.Width, m.Offset, m.Offset)
			if err != nil {
				return err
			}
			if err := emit(m.Layer, outline, m.Width/2); err != nil {
				return err
			}
		}
	}
	lw.res.Sections = append(lw.res.Sections, Section{Kind: kind, Length: geom.PolylineLength(center)})
	return nil
}
