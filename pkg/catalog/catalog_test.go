package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pin"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

func newContext(t *testing.T) *pcell.Context {
	t.Helper()
	tc := tech.MustLoadDefault(tech.DefaultName)
	lib, err := NewLibrary(tc)
	require.NoError(t, err)
	return pcell.NewContext(layout.New(tc), lib, nil)
}

func create(t *testing.T, ctx *pcell.Context, name string, overrides map[string]any) *layout.Cell {
	t.Helper()
	cell, err := ctx.Library.Create(ctx, name, overrides)
	require.NoError(t, err, name)
	return cell
}

func findPin(t *testing.T, cell *layout.Cell, name string) pin.Pin {
	t.Helper()
	p, err := pin.Find(cell, name)
	require.NoError(t, err, "%s on %s", name, cell.Name())
	return p
}

func polygons(cell *layout.Cell, layer string) []*layout.Polygon {
	var out []*layout.Polygon
	for _, s := range cell.Shapes(layer) {
		if p, ok := s.(*layout.Polygon); ok {
			out = append(out, p)
		}
	}
	return out
}

func TestLibraryListsEveryComponent(t *testing.T) {
	tc := tech.MustLoadDefault(tech.DefaultName)
	lib, err := NewLibrary(tc)
	require.NoError(t, err)

	names := lib.Names()
	assert.Len(t, names, len(All(tc)))
	for _, want := range []string{
		"Waveguide", "Waveguide_Straight", "Waveguide_Bend", "Ring_Double_Bus",
		"Bragg_Grating", "GC_Focusing", "Spiral", "PhC_L3_Cavity",
		"ebeam_terminator_te1550", "ebeam_y_1550",
	} {
		assert.Contains(t, names, want)
	}

	d, err := lib.Describe("Waveguide_Straight")
	require.NoError(t, err)
	assert.NotEmpty(t, d.Description)
	assert.NotEmpty(t, d.Params)
}

func TestStraightWaveguide(t *testing.T) {
	ctx := newContext(t)
	cell := create(t, ctx, "Waveguide_Straight", map[string]any{"length": 10.0})

	dbu := ctx.Layout.DBU
	var area float64
	for _, p := range polygons(cell, tech.LayerSi) {
		area += p.Area() * dbu * dbu
	}
	assert.InDelta(t, 5.0, area, 1e-6)

	opt1 := findPin(t, cell, "opt1")
	assert.Equal(t, geom.Point{}, opt1.Pos)
	assert.Equal(t, 180, opt1.Angle)
	opt2 := findPin(t, cell, "opt2")
	assert.Equal(t, geom.Point{X: 10000}, opt2.Pos)
	assert.Equal(t, 0, opt2.Angle)
	assert.Equal(t, 500, opt2.Width)

	rec, err := devrec.Extract(cell)
	require.NoError(t, err)
	length, ok := rec.Get("wg_length")
	require.True(t, ok)
	assert.Equal(t, "wg_length=10.000u", length.String())
}

func TestRingDoubleBus(t *testing.T) {
	ctx := newContext(t)
	cell := create(t, ctx, "Ring_Double_Bus", nil)

	var ring *layout.Polygon
	for _, p := range polygons(cell, tech.LayerSi) {
		if len(p.Holes) == 1 {
			ring = p
		}
	}
	require.NotNil(t, ring, "ring polygon with a hole")
	assert.InDelta(t, 20500, ring.BBox().Width(), 4)
	assert.InDelta(t, 19500, geom.BoxOf(ring.Holes[0]).Width(), 4)

	y := 10000 + 200 + 500
	want := map[string]pin.Pin{
		"pin1": {Pos: geom.Point{X: -10500, Y: -y}, Angle: 180},
		"pin2": {Pos: geom.Point{X: 10500, Y: -y}, Angle: 0},
		"pin3": {Pos: geom.Point{X: -10500, Y: y}, Angle: 180},
		"pin4": {Pos: geom.Point{X: 10500, Y: y}, Angle: 0},
	}
	for name, w := range want {
		p := findPin(t, cell, name)
		assert.Equal(t, w.Pos, p.Pos, name)
		assert.Equal(t, w.Angle, p.Angle, name)
	}
	assert.Len(t, pin.FindAll(cell), 4)

	rec, err := devrec.Extract(cell)
	require.NoError(t, err)
	assert.Equal(t, "ebeam_ring_double_bus", rec.Component)
}

func TestBraggGratingTeeth(t *testing.T) {
	ctx := newContext(t)
	cell := create(t, ctx, "Bragg_Grating", nil)

	assert.Equal(t, 32000, cell.BBoxOn(tech.LayerSi).Width())
	var above, below int
	for _, s := range cell.Shapes(tech.LayerSi) {
		b := s.BBox()
		switch {
		case b.Min.Y > 0:
			above++
		case b.Max.Y < 0:
			below++
		}
	}
	assert.Equal(t, 100, above)
	assert.Equal(t, 100, below)
	assert.Equal(t, geom.Point{X: 32000}, findPin(t, cell, "opt2").Pos)
}

func TestBraggGratingApodizedTeethShrinkTowardsTheEnds(t *testing.T) {
	c := corrugation{n: 100, period: 0.32, depth: 0.05, fill: 0.5, apod: 10, ar: true}
	assert.Less(t, c.amplitude(0), c.amplitude(50))
	assert.InDelta(t, c.amplitude(10), c.amplitude(89), 1e-12)
	assert.InDelta(t, 0.1*math.Exp(-10*0.495*0.495), c.amplitude(0), 1e-12)
}

func TestPinsLieOnDevRecOutline(t *testing.T) {
	ctx := newContext(t)
	for _, name := range ctx.Library.Names() {
		t.Run(name, func(t *testing.T) {
			cell := create(t, ctx, name, nil)
			outline := cell.BBoxOn(tech.LayerDevRec)
			require.False(t, outline.IsEmpty())
			for _, p := range pin.FindAll(cell) {
				assert.True(t, outline.OnBoundary(p.Pos), "%v not on %v", p, outline)
			}
			_, err := devrec.Extract(cell)
			assert.NoError(t, err)
		})
	}
}

// fingerprint lists every shape of a cell in insertion order.
func fingerprint(cell *layout.Cell) []string {
	var out []string
	cell.Each(func(l tech.LayerInfo, s layout.Shape) {
		line := fmt.Sprintf("%s %s %v", l.Name, s.Kind(), s.BBox())
		switch v := s.(type) {
		case *layout.Polygon:
			line += fmt.Sprint(v.Hull, v.Holes)
		case *layout.Text:
			line += v.String
		}
		out = append(out, line)
	})
	for _, i := range cell.Instances() {
		out = append(out, i.Cell.Name()+" "+i.Trans.String())
	}
	return out
}

func TestProduceIsDeterministic(t *testing.T) {
	names := newContext(t).Library.Names()
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			a := create(t, newContext(t), name, nil)
			b := create(t, newContext(t), name, nil)
			assert.Equal(t, fingerprint(a), fingerprint(b))
		})
	}
}

func TestBendEndpoints(t *testing.T) {
	ctx := newContext(t)
	for _, name := range []string{"Waveguide_Bend", "Waveguide_Bend_Bezier", "Waveguide_Bend_Euler"} {
		cell := create(t, ctx, name, map[string]any{"radius": 10.0, "angle": 90.0})
		opt2 := findPin(t, cell, "opt2")
		assert.Equal(t, geom.Point{X: 10000, Y: 10000}, opt2.Pos, name)
		assert.Equal(t, 90, opt2.Angle, name)
	}

	cell := create(t, ctx, "Waveguide_Euler_180", map[string]any{"radius": 10.0})
	assert.Equal(t, geom.Point{Y: 20000}, findPin(t, cell, "opt2").Pos)
}

func TestWaveguideArcNormalizesAngles(t *testing.T) {
	ctx := newContext(t)
	cell := create(t, ctx, "Waveguide_Arc", map[string]any{"start_angle": -90.0, "stop_angle": 0.0})
	opt1 := findPin(t, cell, "opt1")
	assert.Equal(t, geom.Point{Y: -10000}, opt1.Pos)
	assert.Equal(t, 180, opt1.Angle)
	opt2 := findPin(t, cell, "opt2")
	assert.Equal(t, geom.Point{X: 10000}, opt2.Pos)
	assert.Equal(t, 90, opt2.Angle)
}

func TestSpiralPortsShareASide(t *testing.T) {
	ctx := newContext(t)
	cell := create(t, ctx, "Spiral_SameSide", nil)
	opt1, opt2 := findPin(t, cell, "opt1"), findPin(t, cell, "opt2")
	assert.Equal(t, opt1.Pos.X, opt2.Pos.X)
	assert.Equal(t, 180, opt1.Angle)
	assert.Equal(t, 180, opt2.Angle)
	assert.Len(t, polygons(cell, tech.LayerSi), 1)

	cell = create(t, ctx, "Spiral", nil)
	opt1, opt2 = findPin(t, cell, "opt1"), findPin(t, cell, "opt2")
	assert.Equal(t, -opt1.Pos.X, opt2.Pos.X)
	assert.Equal(t, 0, opt1.Angle)
}

func TestPhotonicCrystalHoles(t *testing.T) {
	ctx := newContext(t)
	count := func(name string) int {
		cell := create(t, ctx, name, map[string]any{"rows": 3, "half_columns": 6})
		ps := polygons(cell, tech.LayerSi)
		require.Len(t, ps, 1)
		return len(ps[0].Holes)
	}
	// rows -3..3: three even rows of 13 sites, four odd rows of 12
	full := 3*13 + 4*12
	assert.Equal(t, full-13, count("PhC_W1"))
	assert.Equal(t, full-1, count("PhC_H0_Cavity"))
	assert.Equal(t, full-3, count("PhC_L3_Cavity"))
}

func TestCavityShiftMovesHolesOutward(t *testing.T) {
	tc := tech.MustLoadDefault(tech.DefaultName)
	ctx := pcell.NewContext(layout.New(tc), nil, nil)
	p, err := pcell.Resolve(ctx, phcL3(), nil)
	require.NoError(t, err)
	shift := cavityShift(p, 4)
	assert.InDelta(t, 0.07, shift(hole{0, 4}).X, 1e-12)
	assert.InDelta(t, -0.07, shift(hole{0, -4}).X, 1e-12)
	assert.InDelta(t, 0.02, shift(hole{0, 6}).X, 1e-12)
	assert.Equal(t, geom.DPoint{}, shift(hole{0, 20}))
	assert.Equal(t, geom.DPoint{}, shift(hole{2, 4}))
}

func TestGratingCouplerArray(t *testing.T) {
	ctx := newContext(t)
	cell := create(t, ctx, "GC_Array", map[string]any{"n_gc": 3})
	assert.Len(t, cell.Instances(), 3+2+1)
	for i := 0; i < 3; i++ {
		p := findPin(t, cell, optName(i+1))
		assert.Equal(t, geom.Point{X: 20000, Y: i * 127000}, p.Pos)
	}
	_, err := pin.Find(cell, "opt4")
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
}

func TestFixedCells(t *testing.T) {
	ctx := newContext(t)
	pc, err := ctx.Library.Get("ebeam_y_1550")
	require.NoError(t, err)
	assert.Empty(t, pc.Params())

	cell := create(t, ctx, "ebeam_y_1550", nil)
	for _, name := range []string{"opt1", "opt2", "opt3"} {
		findPin(t, cell, name)
	}
	assert.Equal(t, -findPin(t, cell, "opt2").Pos.Y, findPin(t, cell, "opt3").Pos.Y)

	cell = create(t, ctx, "ebeam_terminator_te1550", nil)
	assert.Len(t, pin.FindAll(cell), 1)
}

func TestDomainErrorsLeaveMarker(t *testing.T) {
	ctx := newContext(t)
	tests := []struct {
		name      string
		component string
		overrides map[string]any
	}{
		{"negative length", "Waveguide_Straight", map[string]any{"length": -1.0}},
		{"bend angle", "Waveguide_Bend", map[string]any{"angle": 45.0}},
		{"ring below min radius", "Ring_Single_Bus", map[string]any{"radius": 1.0}},
		{"heater pads", "Waveguide_Heater", map[string]any{"pad_size": 3.0}},
		{"holes overlap", "PhC_W1", map[string]any{"r": 0.3}},
		{"holes cross slab edge", "PhC_W1", map[string]any{"a": 0.42, "r": 0.2}},
		{"too many periods", "Bragg_Grating", map[string]any{"number_of_periods": 1e8}},
		{"too many contra-DC periods", "Contra_DC", map[string]any{"number_of_periods": maxPeriods + 1}},
		{"too many teeth", "GC_Focusing", map[string]any{"n_teeth": maxTeeth + 1}},
		{"too many couplers", "GC_Array", map[string]any{"n_gc": maxCouplers + 1}},
		{"too many rows", "PhC_W1", map[string]any{"rows": maxRows + 1}},
		{"too many columns", "PhC_L3_Cavity", map[string]any{"half_columns": maxHalfColumns + 1}},
		{"too many turns", "Spiral", map[string]any{"turns": maxTurns + 1}},
		{"swg too short", "SWG_Waveguide", map[string]any{"length": 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, err := ctx.Library.Create(ctx, tt.component, tt.overrides)
			require.Error(t, err)
			assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
			var pe *pcell.ProduceError
			require.True(t, errors.As(err, &pe))
			require.NotNil(t, cell)
			texts := cell.Shapes(tech.LayerErrors)
			require.NotEmpty(t, texts)
			found := false
			for _, s := range texts {
				if x, ok := s.(*layout.Text); ok && strings.HasPrefix(x.String, "ParameterDomain") {
					found = true
				}
			}
			assert.True(t, found)
		})
	}
}
