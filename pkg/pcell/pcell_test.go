package pcell

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

type boxCell struct{ t *tech.Technology }

func (boxCell) Name() string        { return "Box" }
func (boxCell) Description() string { return "a box" }
func (b boxCell) Params() []ParamDecl {
	return []ParamDecl{
		Double("width", "Width", 2, Positive()),
		Double("height", "Height", 1, Positive(), Max(50)),
		Int("copies", "Copies", 1, Min(1)),
		Layer("layer", "Layer", "Si"),
		Shape("origin", "Origin", []geom.DPoint{{}}),
		WaveguideTypeDecl(b.t, "waveguide_type", "Waveguide type", "Strip TE 1550 nm, w=500 nm"),
	}
}

func (boxCell) Coerce(_ *Context, p Params) (Params, error) {
	// snap the width to 10 nm
	w := float64(geom.Round(p.Float("width")*100)) / 100
	return p.With("width", w), nil
}

func (boxCell) Produce(ctx *Context, p Params, cell *layout.Cell) error {
	if p.Float("width") > 100 {
		return fmt.Errorf("box: width too large: %w", pdkerr.ErrParameterDomain)
	}
	wt, err := ResolveWaveguide(ctx, p, "waveguide_type")
	if err != nil {
		return err
	}
	for i := 0; i < p.Int("copies"); i++ {
		y := float64(i) * (p.Float("height") + wt.Width)
		if _, err := cell.InsertBox(p.String("layer"), geom.DPoint{Y: y}, geom.DPoint{X: p.Float("width"), Y: y + p.Float("height")}); err != nil {
			return err
		}
	}
	return nil
}

type selfCell struct{}

func (selfCell) Name() string        { return "Self" }
func (selfCell) Params() []ParamDecl { return nil }
func (s selfCell) Produce(ctx *Context, p Params, cell *layout.Cell) error {
	return Produce(ctx, s, p, cell)
}

// pairCell stacks two Box children; the second takes its width from
// "second".
type pairCell struct{}

func (pairCell) Name() string { return "Pair" }
func (pairCell) Params() []ParamDecl {
	return []ParamDecl{Double("second", "Width of the second box", 2)}
}
func (pairCell) Produce(ctx *Context, p Params, cell *layout.Cell) error {
	for _, w := range []float64{2, p.Float("second")} {
		sub, err := ctx.Library.CreateChild(ctx, "Box", map[string]any{"width": w})
		if err != nil {
			return err
		}
		if _, err := cell.AddInstance(sub, geom.Identity()); err != nil {
			return err
		}
	}
	return nil
}

func setup(t *testing.T) (*Context, *Library) {
	t.Helper()
	tc := tech.MustLoadDefault(tech.DefaultName)
	lib := NewLibrary("test")
	require.NoError(t, lib.Register(boxCell{tc}, selfCell{}, pairCell{}))
	return NewContext(layout.New(tc), lib, nil), lib
}

func TestCreateWithDefaultsAndOverrides(t *testing.T) {
	ctx, lib := setup(t)
	cell, err := lib.Create(ctx, "Box", nil)
	require.NoError(t, err)
	assert.Equal(t, "Box", cell.Name())
	assert.Len(t, cell.Shapes("Si"), 1)

	cell, err = lib.Create(ctx, "Box", map[string]any{"width": "3.004", "copies": 3.0, "layer": "SiN"})
	require.NoError(t, err)
	assert.Equal(t, "Box$1", cell.Name())
	boxes := cell.Shapes("SiN")
	require.Len(t, boxes, 3)
	assert.Equal(t, 3000, boxes[0].BBox().Width(), "width is snapped by Coerce")
}

func TestCreateFailureLeavesMarker(t *testing.T) {
	ctx, lib := setup(t)
	for name, overrides := range map[string]map[string]any{
		"negative width": {"width": -1.0},
		"above max":      {"height": 51.0},
		"not an int":     {"copies": 1.5},
		"produce error":  {"width": 200.0},
		"unknown layer":  {"layer": "Nope"},
		"unknown wg":     {"waveguide_type": "Nope"},
		"unknown param":  {"colour": "red"},
	} {
		t.Run(name, func(t *testing.T) {
			cell, err := lib.Create(ctx, "Box", overrides)
			require.Error(t, err)
			require.NotNil(t, cell)
			var pe *ProduceError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "Box", pe.Component)

			assert.Empty(t, cell.Shapes("Si"))
			marks := cell.Shapes(tech.LayerErrors)
			require.Len(t, marks, 2)
			assert.Contains(t, marks[0].(*layout.Text).String, pdkerr.Kind(err))
		})
	}

	_, err := lib.Create(ctx, "Box", map[string]any{"layer": "Nope"})
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
	_, err = lib.Create(ctx, "Box", map[string]any{"width": -1.0})
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)

	cell, err := lib.Create(ctx, "Missing", nil)
	assert.Nil(t, cell)
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
}

func TestFailedChildrenAreRemoved(t *testing.T) {
	ctx, lib := setup(t)
	cell, err := lib.Create(ctx, "Pair", nil)
	require.NoError(t, err)
	assert.Len(t, cell.Instances(), 2)
	assert.Len(t, ctx.Layout.Cells(), 3)

	cell, err = lib.Create(ctx, "Pair", map[string]any{"second": 200.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
	var pe *ProduceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Pair", pe.Component)
	assert.Equal(t, cell.Name(), pe.Cell)

	// only the marker cell is added; both Box children are gone
	names := make([]string, 0, 4)
	for _, c := range ctx.Layout.Cells() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"Pair", "Box", "Box$1", "Pair$1"}, names)
	assert.Empty(t, cell.Instances())
	assert.NotEmpty(t, cell.Shapes(tech.LayerErrors))
}

func TestReentrantProduceIsRejected(t *testing.T) {
	ctx, lib := setup(t)
	_, err := lib.Create(ctx, "Self", nil)
	assert.ErrorIs(t, err, pdkerr.ErrReentrant)
	assert.True(t, IsReentrant(err))
}

func TestRegenerate(t *testing.T) {
	ctx, lib := setup(t)
	cell, err := lib.Create(ctx, "Box", nil)
	require.NoError(t, err)
	require.NoError(t, lib.Regenerate(ctx, cell, "Box", map[string]any{"copies": 2}))
	assert.Len(t, cell.Shapes("Si"), 2)
	assert.Error(t, lib.Regenerate(ctx, cell, "Box", map[string]any{"copies": 0}))
	assert.Len(t, cell.Shapes(tech.LayerErrors), 2)
}

func TestParamsImmutable(t *testing.T) {
	p := NewParams(map[string]any{"a": 1.0, "pts": []geom.DPoint{{X: 1}}})
	q := p.With("a", 2.0)
	assert.Equal(t, 1.0, p.Float("a"))
	assert.Equal(t, 2.0, q.Float("a"))

	pts := p.Points("pts")
	pts[0].X = 9
	assert.Equal(t, 1.0, p.Points("pts")[0].X)
	assert.Equal(t, []string{"a", "pts"}, p.Keys())
}

func TestLibraryRegistry(t *testing.T) {
	_, lib := setup(t)
	assert.Equal(t, []string{"Box", "Self", "Pair"}, lib.Names())
	assert.ErrorIs(t, lib.Register(selfCell{}), pdkerr.ErrParameterDomain)

	d, err := lib.Describe("Box")
	require.NoError(t, err)
	assert.Equal(t, "a box", d.Description)
	require.Len(t, d.Params, 6)
	assert.True(t, d.Params[5].Waveguide)
	assert.NotEmpty(t, d.Params[5].Choices)
}

func TestConvert(t *testing.T) {
	v, err := Convert(List("turtle", "", nil), "[5, 90, 0, -90]")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 90, 0, -90}, v)

	v, err = Convert(Shape("path", "", nil), []any{[]any{0.0, 0.0}, []any{10.0, 0.0}})
	require.NoError(t, err)
	assert.Equal(t, []geom.DPoint{{}, {X: 10}}, v)

	v, err = Convert(Bool("flag", "", false), "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = Convert(String("s", "", ""), 3.0)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
}
