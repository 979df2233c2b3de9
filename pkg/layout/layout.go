// Package layout is the in-memory layout database: cells holding shapes on
// technology layers, and instances placing cells inside other cells.
//
// A Layout has no internal locking. Whoever holds it owns it.
package layout

import (
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// Layout owns its cells and references a read-only technology.
type Layout struct {
	Tech *tech.Technology
	DBU  float64

	cells  []*Cell
	byName map[string]*Cell

	// gen counts modifications; cached bounding boxes from an older
	// generation are stale.
	gen uint64
}

// New returns an empty layout bound to t.
func New(t *tech.Technology) *Layout {
	return &Layout{
		Tech:   t,
		DBU:    t.DBU,
		byName: make(map[string]*Cell),
		gen:    1,
	}
}

func (l *Layout) touch() { l.gen++ }

// CreateCell adds an empty cell. When name is taken the cell is named
// name$1, name$2, ... instead.
func (l *Layout) CreateCell(name string) *Cell {
	unique := name
	for i := 1; ; i++ {
		if _, taken := l.byName[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s$%d", name, i)
	}
	c := &Cell{name: unique, layout: l}
	l.cells = append(l.cells, c)
	l.byName[unique] = c
	return c
}

// Cell looks a cell up by name.
func (l *Layout) Cell(name string) (*Cell, error) {
	c, ok := l.byName[name]
	if !ok {
		return nil, fmt.Errorf("layout: no cell %q: %w", name, pdkerr.ErrLookup)
	}
	return c, nil
}

// DeleteCells removes the given cells from the layout. It fails when a
// cell outside the set still instantiates one of them.
func (l *Layout) DeleteCells(cells ...*Cell) error {
	doomed := make(map[*Cell]bool, len(cells))
	for _, c := range cells {
		if c.layout != l || l.byName[c.name] != c {
			return fmt.Errorf("layout: no cell %q: %w", c.name, pdkerr.ErrLookup)
		}
		doomed[c] = true
	}
	for _, p := range l.cells {
		if doomed[p] {
			continue
		}
		for _, inst := range p.insts {
			if doomed[inst.Cell] {
				return fmt.Errorf("layout: cell %q is still instantiated in %q: %w", inst.Cell.name, p.name, pdkerr.ErrComposition)
			}
		}
	}
	l.cells = slices.DeleteFunc(l.cells, func(c *Cell) bool { return doomed[c] })
	for c := range doomed {
		delete(l.byName, c.name)
	}
	l.touch()
	return nil
}

// Cells returns all cells in creation order.
func (l *Layout) Cells() []*Cell {
	return append([]*Cell(nil), l.cells...)
}

// TopCells returns the cells no other cell instantiates, in creation order.
func (l *Layout) TopCells() []*Cell {
	used := make(map[*Cell]bool)
	for _, c := range l.cells {
		for _, inst := range c.insts {
			used[inst.Cell] = true
		}
	}
	var tops []*Cell
	for _, c := range l.cells {
		if !used[c] {
			tops = append(tops, c)
		}
	}
	return tops
}

// LayerIndex resolves a layer name against the technology.
func (l *Layout) LayerIndex(name string) (int, error) {
	info, err := l.Tech.Layer(name)
	if err != nil {
		return -1, err
	}
	return info.Index, nil
}

// ToDBU converts a length in µm to database units.
func (l *Layout) ToDBU(um float64) int {
	return geom.Round(um / l.DBU)
}

// ToMicrons converts database units to µm.
func (l *Layout) ToMicrons(dbu int) float64 {
	return float64(dbu) * l.DBU
}
