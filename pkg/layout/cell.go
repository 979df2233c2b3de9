package layout

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

type entry struct {
	layer int
	shape Shape
}

// Cell holds shapes in insertion order and instances of other cells.
type Cell struct {
	name      string
	layout    *Layout
	shapes    []entry
	insts     []*Instance
	producing bool

	bbox    geom.Box
	bboxGen uint64
}

// Instance places a cell inside a parent cell. It does not own the cell.
// Trans must not change after the instance is added.
type Instance struct {
	Cell   *Cell
	Trans  geom.Transform
	parent *Cell
}

// BBox is the referenced cell's bounding box under the instance transform.
func (i *Instance) BBox() geom.Box { return i.Cell.BBox().Transformed(i.Trans) }

// Parent returns the cell that holds the instance.
func (i *Instance) Parent() *Cell { return i.parent }

func (c *Cell) Name() string           { return c.name }
func (c *Cell) Layout() *Layout        { return c.layout }
func (c *Cell) ShapeCount() int        { return len(c.shapes) }
func (c *Cell) IsEmpty() bool          { return len(c.shapes) == 0 && len(c.insts) == 0 }
func (c *Cell) String() string         { return c.name }
func (c *Cell) Producing() bool        { return c.producing }
func (c *Cell) Tech() *tech.Technology { return c.layout.Tech }

// Insert appends a shape on the named layer.
func (c *Cell) Insert(layer string, s Shape) error {
	idx, err := c.layout.LayerIndex(layer)
	if err != nil {
		return err
	}
	c.shapes = append(c.shapes, entry{idx, s})
	c.layout.touch()
	return nil
}

// InsertPolygon builds a polygon from a µm outline snapped to the grid.
func (c *Cell) InsertPolygon(layer string, pts []geom.DPoint) (*Polygon, error) {
	p, err := NewPolygon(geom.ToDBUAll(pts, c.layout.DBU))
	if err != nil {
		return nil, err
	}
	return p, c.Insert(layer, p)
}

// InsertBox inserts a rectangle given by two µm corners.
func (c *Cell) InsertBox(layer string, a, b geom.DPoint) (*Box, error) {
	bx := &Box{geom.NewBox(geom.ToDBU(a, c.layout.DBU), geom.ToDBU(b, c.layout.DBU))}
	return bx, c.Insert(layer, bx)
}

// InsertText inserts a label at a µm position.
func (c *Cell) InsertText(layer, s string, pos geom.DPoint, size float64) (*Text, error) {
	t := &Text{String: s, Pos: geom.ToDBU(pos, c.layout.DBU), Size: max(1, c.layout.ToDBU(size))}
	return t, c.Insert(layer, t)
}

// Shapes returns the shapes on layer in insertion order. Unknown layers
// yield nothing.
func (c *Cell) Shapes(layer string) []Shape {
	idx, err := c.layout.LayerIndex(layer)
	if err != nil {
		return nil
	}
	var out []Shape
	for _, e := range c.shapes {
		if e.layer == idx {
			out = append(out, e.shape)
		}
	}
	return out
}

// Each visits every shape in insertion order.
func (c *Cell) Each(fn func(layer tech.LayerInfo, s Shape)) {
	layers := c.layout.Tech.Layers()
	for _, e := range c.shapes {
		fn(layers[e.layer], e.shape)
	}
}

// Clear removes every shape and instance.
func (c *Cell) Clear() {
	c.shapes = nil
	c.insts = nil
	c.layout.touch()
}

// Instances returns the child instances in insertion order.
func (c *Cell) Instances() []*Instance {
	return append([]*Instance(nil), c.insts...)
}

// AddInstance places child in c. The cell graph must stay acyclic and both
// cells must belong to the same layout.
func (c *Cell) AddInstance(child *Cell, t geom.Transform) (*Instance, error) {
	if child.layout != c.layout {
		return nil, fmt.Errorf("layout: cell %q belongs to another layout: %w", child.name, pdkerr.ErrComposition)
	}
	if child == c || child.reaches(c) {
		return nil, fmt.Errorf("layout: instancing %q in %q would create a cycle: %w", child.name, c.name, pdkerr.ErrComposition)
	}
	inst := &Instance{Cell: child, Trans: t, parent: c}
	c.insts = append(c.insts, inst)
	c.layout.touch()
	return inst, nil
}

// reaches reports whether target is c or a descendant of c. Each cell is
// walked once however often it is instantiated.
func (c *Cell) reaches(target *Cell) bool {
	seen := make(map[*Cell]bool)
	stack := []*Cell{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, i := range cur.insts {
			stack = append(stack, i.Cell)
		}
	}
	return false
}

// BBox returns the bounding box of all shapes and instances. The result is
// cached until the layout is next modified.
func (c *Cell) BBox() geom.Box {
	if c.bboxGen == c.layout.gen {
		return c.bbox
	}
	b := geom.EmptyBox()
	for _, e := range c.shapes {
		b.ExpandBox(e.shape.BBox())
	}
	for _, i := range c.insts {
		b.ExpandBox(i.BBox())
	}
	c.bbox, c.bboxGen = b, c.layout.gen
	return b
}

// BBoxOn returns the bounding box of the shapes on one layer, including
// those inside instances.
func (c *Cell) BBoxOn(layer string) geom.Box {
	idx, err := c.layout.LayerIndex(layer)
	if err != nil {
		return geom.EmptyBox()
	}
	return c.bboxOn(idx, make(map[*Cell]geom.Box))
}

func (c *Cell) bboxOn(idx int, memo map[*Cell]geom.Box) geom.Box {
	if b, ok := memo[c]; ok {
		return b
	}
	b := geom.EmptyBox()
	for _, e := range c.shapes {
		if e.layer == idx {
			b.ExpandBox(e.shape.BBox())
		}
	}
	for _, i := range c.insts {
		b.ExpandBox(i.Cell.bboxOn(idx, memo).Transformed(i.Trans))
	}
	memo[c] = b
	return b
}

// Flatten returns the shapes on layer from c and all its descendants,
// mapped into c's coordinates.
func (c *Cell) Flatten(layer string) []Shape {
	idx, err := c.layout.LayerIndex(layer)
	if err != nil {
		return nil
	}
	var out []Shape
	c.flatten(idx, geom.Identity(), &out)
	return out
}

func (c *Cell) flatten(idx int, t geom.Transform, out *[]Shape) {
	for _, e := range c.shapes {
		if e.layer != idx {
			continue
		}
		if t.IsIdentity() {
			*out = append(*out, e.shape)
		} else {
			*out = append(*out, e.shape.Transformed(t))
		}
	}
	for _, i := range c.insts {
		i.Cell.flatten(idx, t.Compose(i.Trans), out)
	}
}

// BeginProduce marks the cell as being produced. A second call before
// EndProduce fails with ErrReentrant.
func (c *Cell) BeginProduce() error {
	if c.producing {
		return fmt.Errorf("layout: cell %q is already being produced: %w", c.name, pdkerr.ErrReentrant)
	}
	c.producing = true
	return nil
}

// EndProduce clears the mark set by BeginProduce.
func (c *Cell) EndProduce() { c.producing = false }
