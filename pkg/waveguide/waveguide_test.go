package waveguide

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

const strip = "Strip TE 1550 nm, w=500 nm"

func wgType(t *testing.T, name string) *tech.WaveguideType {
	t.Helper()
	wt, err := tech.MustLoadDefault(tech.DefaultName).Waveguide(name)
	require.NoError(t, err)
	return wt
}

func TestStraightAreaEqualsLengthTimesWidth(t *testing.T) {
	wt := wgType(t, strip)
	for _, l := range []float64{0.5, 10, 37.125, 250} {
		res, err := Lower([]geom.DPoint{{}, {X: l}}, wt, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, res.Polygons, 2)
		si := res.Polygons[0]
		assert.Equal(t, tech.LayerSi, si.Layer)
		want := (l / 0.001) * (0.5 / 0.001)
		assert.InDelta(t, want, si.Polygon.Area(), 1, "L=%g", l)
		assert.InDelta(t, l, res.Length, 1e-9)
		assert.Empty(t, res.Bends)
	}

	// Rotated straights are snapped to the grid but keep the identity.
	res, err := Lower([]geom.DPoint{{}, {Y: -12}}, wt, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 12*0.5/1e-6, res.Polygons[0].Polygon.Area(), 1)
}

func TestLShapedPathWithOneBend(t *testing.T) {
	wt := wgType(t, strip)
	opt := DefaultOptions()
	opt.Radius = 5
	res, err := Lower([]geom.DPoint{{}, {X: 20}, {X: 20, Y: 15}}, wt, opt)
	require.NoError(t, err)

	require.Len(t, res.Bends, 1)
	b := res.Bends[0]
	assert.InDelta(t, 90, b.Angle, 1e-9)
	assert.Equal(t, 5.0, b.Radius)
	assert.False(t, b.Clamped)
	assert.InDelta(t, 15, b.Points[0].X, 1e-9)
	assert.InDelta(t, 5, b.Points[len(b.Points)-1].Y, 1e-9)

	// Two straights shortened by the tangent length plus a quarter circle.
	want := (20 - 5) + math.Pi*5/2 + (15 - 5)
	assert.InDelta(t, want, res.Length, 0.01)
	assert.InDelta(t, want, geom.PolylineLength(res.Centerline), 0.01)

	assert.True(t, geom.IsCCW(res.Polygons[0].Polygon.Hull))
	end := res.Centerline[len(res.Centerline)-1]
	assert.Equal(t, geom.DPoint{X: 20, Y: 15}, end)
}

func TestRadiusClamping(t *testing.T) {
	wt := wgType(t, strip)
	path := []geom.DPoint{{}, {X: 4}, {X: 4, Y: 10}}

	res, err := Lower(path, wt, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Bends, 1)
	assert.True(t, res.Bends[0].Clamped)
	assert.InDelta(t, 4, res.Bends[0].Radius, 1e-9)

	strict := DefaultOptions()
	strict.Strict = true
	_, err = Lower(path, wt, strict)
	assert.ErrorIs(t, err, pdkerr.ErrGeometry)

	// Interior segments are split between their two bends.
	res, err = Lower([]geom.DPoint{{}, {X: 20}, {X: 20, Y: 6}, {X: 40, Y: 6}}, wt, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Bends, 2)
	assert.InDelta(t, 3, res.Bends[0].Radius, 1e-9)
	assert.InDelta(t, 3, res.Bends[1].Radius, 1e-9)
	assert.InDelta(t, -90, res.Bends[1].Angle, 1e-9)
}

func TestPathRejections(t *testing.T) {
	wt := wgType(t, strip)
	_, err := Lower([]geom.DPoint{{}, {X: 10}, {X: 5}}, wt, DefaultOptions())
	assert.ErrorIs(t, err, pdkerr.ErrGeometry)

	_, err = Lower([]geom.DPoint{{X: 1}, {X: 1}}, wt, DefaultOptions())
	assert.ErrorIs(t, err, pdkerr.ErrGeometry)

	opt := DefaultOptions()
	opt.Radius = 0.2
	_, err = Lower([]geom.DPoint{{}, {X: 10}, {X: 10, Y: 10}}, wt, opt)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)

	_, err = Lower([]geom.DPoint{{}, {X: 10}}, nil, DefaultOptions())
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)

	res, err := Lower([]geom.DPoint{{}, {X: 5}, {X: 5}, {X: 10}}, wt, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Bends)
	assert.InDelta(t, 10, res.Length, 1e-9)
}

func TestBendStylesMeetTheStraights(t *testing.T) {
	for _, name := range []string{strip, strip + ", Bezier", strip + ", Euler"} {
		wt := wgType(t, name)
		res, err := Lower([]geom.DPoint{{}, {X: 20}, {X: 20, Y: 20}, {X: 0, Y: 40}}, wt, DefaultOptions())
		require.NoError(t, err, name)
		require.Len(t, res.Bends, 2, name)

		for _, b := range res.Bends {
			n := len(b.Points)
			require.Greater(t, n, 2)
			first := geom.Heading(b.Points[1].Sub(b.Points[0]))
			last := geom.Heading(b.Points[n-1].Sub(b.Points[n-2]))
			turn := geom.AngleDiff(last, first)
			assert.InDelta(t, b.Angle, turn, 5, "%s bend at %v", name, b.Vertex)
		}
		assert.Less(t, res.Length, 20+20+math.Hypot(20, 20), name)
		assert.Greater(t, res.Length, 40.0, name)
	}
}

func TestCompoundWaveguide(t *testing.T) {
	wt := wgType(t, strip+", compound")

	res, err := Lower([]geom.DPoint{{}, {X: 100}}, wt, DefaultOptions())
	require.NoError(t, err)
	var kinds []SectionKind
	for _, s := range res.Sections {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []SectionKind{Taper, Multimode, Taper}, kinds)
	assert.InDelta(t, 80, res.Sections[1].Length, 1e-9)
	assert.InDelta(t, 100, res.Length, 0.01)

	short, err := Lower([]geom.DPoint{{}, {X: 20.5}}, wt, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, short.Sections, 1)
	assert.Equal(t, Singlemode, short.Sections[0].Kind)

	bent, err := Lower([]geom.DPoint{{}, {X: 60}, {X: 60, Y: 8}}, wt, DefaultOptions())
	require.NoError(t, err)
	kinds = kinds[:0]
	for _, s := range bent.Sections {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []SectionKind{Taper, Multimode, Taper, Singlemode}, kinds)
	want := 55 + math.Pi*5/2 + 3
	assert.InDelta(t, want, bent.Length, 0.02)
}

func TestInsertKeepsTypeOrder(t *testing.T) {
	tc := tech.MustLoadDefault(tech.DefaultName)
	wt, err := tc.Waveguide("Rib TE 1550 nm, w=500 nm")
	require.NoError(t, err)
	res, err := Lower([]geom.DPoint{{}, {X: 30}}, wt, DefaultOptions())
	require.NoError(t, err)

	c := layout.New(tc).CreateCell("wg")
	require.NoError(t, Insert(c, res))
	var layers []string
	c.Each(func(l tech.LayerInfo, _ layout.Shape) { layers = append(layers, l.Name) })
	assert.Equal(t, []string{"Si", "Si_p6nm", "DevRec"}, layers)
	assert.InDelta(t, 30, res.LayerLengths["Si_p6nm"], 1e-9)
}
