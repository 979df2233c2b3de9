package pin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

func newCell(t *testing.T) *layout.Cell {
	t.Helper()
	return layout.New(tech.MustLoadDefault(tech.DefaultName)).CreateCell("c")
}

func TestMakeWritesPathAndLabel(t *testing.T) {
	c := newCell(t)
	p, err := Make(c, "opt2", geom.DPoint{X: 10}, 0.5, tech.LayerPinRec, 0)
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 10000}, p.Pos)
	assert.Equal(t, 500, p.Width)

	shapes := c.Shapes(tech.LayerPinRec)
	require.Len(t, shapes, 2)
	path := shapes[0].(*layout.Path)
	assert.Equal(t, []geom.Point{{X: 9900}, {X: 10100}}, path.Points)
	assert.Equal(t, 500, path.Width)
	text := shapes[1].(*layout.Text)
	assert.Equal(t, "opt2", text.String)
	assert.Equal(t, geom.Point{X: 10000}, text.Pos)
}

func TestFindRoundTrip(t *testing.T) {
	c := newCell(t)
	for _, tc := range []struct {
		name  string
		angle int
		layer string
	}{
		{"opt1", 180, tech.LayerPinRec},
		{"opt2", 0, tech.LayerPinRec},
		{"opt3", 90, tech.LayerPinRec},
		{"elec1", 270, tech.LayerPinRecM},
		{"elec2", -90, tech.LayerPinRecM},
	} {
		made, err := Make(c, tc.name, geom.DPoint{X: 1.5, Y: -2}, 0.45, tc.layer, tc.angle)
		require.NoError(t, err)
		found, err := Find(c, tc.name)
		require.NoError(t, err)
		assert.Equal(t, made, found)
	}
	found, err := Find(c, "elec2")
	require.NoError(t, err)
	assert.Equal(t, 270, found.Angle)
	assert.Equal(t, Electrical, found.Kind)

	all := FindAll(c)
	require.Len(t, all, 5)
	assert.Equal(t, "elec1", all[0].Name)

	_, err = Find(c, "opt9")
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
}

func TestMakeRejects(t *testing.T) {
	c := newCell(t)
	_, err := Make(c, "opt1", geom.DPoint{}, 0.5, tech.LayerPinRec, 45)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
	_, err = Make(c, "opt1", geom.DPoint{}, 0.5, tech.LayerSi, 0)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
	_, err = Make(c, "opt1", geom.DPoint{}, 0.5, tech.LayerPinRec, 0)
	require.NoError(t, err)
	_, err = Make(c, "opt1", geom.DPoint{X: 3}, 0.5, tech.LayerPinRec, 0)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
}

func TestInstancePinIsTransformed(t *testing.T) {
	ly := layout.New(tech.MustLoadDefault(tech.DefaultName))
	child := ly.CreateCell("child")
	_, err := Make(child, "opt2", geom.DPoint{X: 10}, 0.5, tech.LayerPinRec, 0)
	require.NoError(t, err)

	top := ly.CreateCell("top")
	inst, err := top.AddInstance(child, geom.Transform{Rot: 1, Disp: geom.Vector{X: 5000, Y: 5000}})
	require.NoError(t, err)

	p, err := FindInstance(inst, "opt2")
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 5000, Y: 15000}, p.Pos)
	assert.Equal(t, 90, p.Angle)

	mirrored := Pin{Pos: geom.Point{X: 1, Y: 2}, Angle: 90}.Transformed(geom.Transform{Mirror: true})
	assert.Equal(t, geom.Point{X: 1, Y: -2}, mirrored.Pos)
	assert.Equal(t, 270, mirrored.Angle)
}
