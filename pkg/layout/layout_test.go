package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

func newLayout(t *testing.T) *Layout {
	t.Helper()
	tc, err := tech.LoadDefault(tech.DefaultName)
	require.NoError(t, err)
	return New(tc)
}

func TestUniqueCellNames(t *testing.T) {
	ly := newLayout(t)
	a := ly.CreateCell("ring")
	b := ly.CreateCell("ring")
	c := ly.CreateCell("ring")
	assert.Equal(t, "ring", a.Name())
	assert.Equal(t, "ring$1", b.Name())
	assert.Equal(t, "ring$2", c.Name())

	got, err := ly.Cell("ring$1")
	require.NoError(t, err)
	assert.Same(t, b, got)
	_, err = ly.Cell("nope")
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
}

func TestPolygonNormalization(t *testing.T) {
	cw := []geom.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 10, Y: 0}}
	p, err := NewPolygon(cw)
	require.NoError(t, err)
	assert.Len(t, p.Hull, 4)
	assert.True(t, geom.IsCCW(p.Hull))
	assert.Equal(t, 100.0, p.Area())

	hole := []geom.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}}
	p, err = NewPolygon(cw, hole)
	require.NoError(t, err)
	assert.False(t, geom.IsCCW(p.Holes[0]))
	assert.Equal(t, 96.0, p.Area())

	mirrored := p.Transformed(geom.Transform{Mirror: true}).(*Polygon)
	assert.True(t, geom.IsCCW(mirrored.Hull))
	assert.Equal(t, 96.0, mirrored.Area())

	_, err = NewPolygon([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.ErrorIs(t, err, pdkerr.ErrGeometry)
	_, err = NewPolygon([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}})
	assert.ErrorIs(t, err, pdkerr.ErrGeometry)
}

func TestCellShapesKeepOrder(t *testing.T) {
	ly := newLayout(t)
	c := ly.CreateCell("c")
	require.NoError(t, c.Insert("Si", &Box{geom.NewBox(geom.Point{X: 0, Y: 0}, geom.Point{X: 5, Y: 5})}))
	require.NoError(t, c.Insert("DevRec", &Box{geom.NewBox(geom.Point{X: -1, Y: -1}, geom.Point{X: 6, Y: 6})}))
	_, err := c.InsertText("Si", "label", geom.DPoint{X: 1}, 0.1)
	require.NoError(t, err)

	si := c.Shapes("Si")
	require.Len(t, si, 2)
	assert.Equal(t, "box", si[0].Kind())
	assert.Equal(t, "text", si[1].Kind())
	assert.Equal(t, geom.Point{X: 1000, Y: 0}, si[1].(*Text).Pos)

	var kinds []string
	c.Each(func(l tech.LayerInfo, s Shape) { kinds = append(kinds, l.Name+":"+s.Kind()) })
	assert.Equal(t, []string{"Si:box", "DevRec:box", "Si:text"}, kinds)

	assert.ErrorIs(t, c.Insert("NoSuchLayer", &Box{}), pdkerr.ErrLookup)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.BBox().IsEmpty())
}

func TestInstancesAndCycles(t *testing.T) {
	ly := newLayout(t)
	top := ly.CreateCell("top")
	mid := ly.CreateCell("mid")
	leaf := ly.CreateCell("leaf")
	_, err := leaf.InsertBox("Si", geom.DPoint{}, geom.DPoint{X: 2, Y: 1})
	require.NoError(t, err)

	_, err = mid.AddInstance(leaf, geom.Transform{Rot: 1})
	require.NoError(t, err)
	inst, err := top.AddInstance(mid, geom.Translation(geom.Vector{X: 10000}))
	require.NoError(t, err)
	assert.Same(t, top, inst.Parent())

	assert.Equal(t, geom.NewBox(geom.Point{X: 9000, Y: 0}, geom.Point{X: 10000, Y: 2000}), top.BBox())
	assert.Equal(t, top.BBox(), top.BBoxOn("Si"))
	assert.True(t, top.BBoxOn("DevRec").IsEmpty())

	_, err = leaf.AddInstance(top, geom.Identity())
	assert.ErrorIs(t, err, pdkerr.ErrComposition)
	_, err = mid.AddInstance(mid, geom.Identity())
	assert.ErrorIs(t, err, pdkerr.ErrComposition)

	tops := ly.TopCells()
	require.Len(t, tops, 1)
	assert.Same(t, top, tops[0])
}

func TestProduceGuard(t *testing.T) {
	ly := newLayout(t)
	c := ly.CreateCell("c")
	require.NoError(t, c.BeginProduce())
	assert.ErrorIs(t, c.BeginProduce(), pdkerr.ErrReentrant)
	c.EndProduce()
	assert.NoError(t, c.BeginProduce())
}

func TestSharedHierarchyStaysLinear(t *testing.T) {
	ly := newLayout(t)
	leaf := ly.CreateCell("leaf")
	_, err := leaf.InsertBox("Si", geom.DPoint{}, geom.DPoint{X: 1, Y: 1})
	require.NoError(t, err)

	const depth = 40
	prev := leaf
	for i := 0; i < depth; i++ {
		w := prev.BBox().Width()
		next := ly.CreateCell("level")
		_, err := next.AddInstance(prev, geom.Identity())
		require.NoError(t, err)
		_, err = next.AddInstance(prev, geom.Translation(geom.Vector{X: w}))
		require.NoError(t, err)
		prev = next
	}

	want := geom.NewBox(geom.Point{}, geom.Point{X: 1000 << depth, Y: 1000})
	assert.Equal(t, want, prev.BBox())
	assert.Equal(t, want, prev.BBoxOn("Si"))

	_, err = leaf.AddInstance(prev, geom.Identity())
	assert.ErrorIs(t, err, pdkerr.ErrComposition)

	// A new shape deep down invalidates the cached boxes above it.
	_, err = leaf.InsertBox("Si", geom.DPoint{}, geom.DPoint{X: 1, Y: 3})
	require.NoError(t, err)
	assert.Equal(t, 3000, prev.BBox().Height())

	leaf.Clear()
	assert.True(t, prev.BBox().IsEmpty())
}
