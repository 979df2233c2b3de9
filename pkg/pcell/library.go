package pcell

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// Library is an ordered registry of components.
type Library struct {
	Name   string
	cells  []PCell
	byName map[string]int
}

// NewLibrary returns an empty library.
func NewLibrary(name string) *Library {
	return &Library{Name: name, byName: make(map[string]int)}
}

// Register adds components; names must be unique.
func (l *Library) Register(pcs ...PCell) error {
	for _, pc := range pcs {
		if _, dup := l.byName[pc.Name()]; dup {
			return fmt.Errorf("pcell: %s already registered in %s: %w", pc.Name(), l.Name, pdkerr.ErrParameterDomain)
		}
		l.byName[pc.Name()] = len(l.cells)
		l.cells = append(l.cells, pc)
	}
	return nil
}

// Get looks a component up by name.
func (l *Library) Get(name string) (PCell, error) {
	i, ok := l.byName[name]
	if !ok {
		return nil, fmt.Errorf("pcell: no component %q in %s: %w", name, l.Name, pdkerr.ErrLookup)
	}
	return l.cells[i], nil
}

// Names lists the components in registration order.
func (l *Library) Names() []string {
	names := make([]string, len(l.cells))
	for i, pc := range l.cells {
		names[i] = pc.Name()
	}
	return names
}

// Descriptor is the public schema of a component.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Params      []ParamDecl `json:"params"`
}

// Describe returns the schema of the named component.
func (l *Library) Describe(name string) (Descriptor, error) {
	pc, err := l.Get(name)
	if err != nil {
		return Descriptor{}, err
	}
	d := Descriptor{Name: pc.Name(), Params: pc.Params()}
	if ds, ok := pc.(Describer); ok {
		d.Description = ds.Description()
	}
	return d, nil
}

// Create makes a new cell named after the component and produces it. On
// failure the cell holds only an error marker and is returned together
// with a *ProduceError; sub-cells made while producing it are removed. An
// unknown component name returns no cell.
func (l *Library) Create(ctx *Context, name string, overrides map[string]any) (*layout.Cell, error) {
	pc, err := l.Get(name)
	if err != nil {
		return nil, err
	}
	cell := ctx.Layout.CreateCell(name)
	n := len(ctx.Layout.Cells())
	err = l.build(ctx, pc, overrides, cell)
	if err == nil {
		ctx.Logger.Debug("produced", "component", name, "cell", cell.Name(), "shapes", cell.ShapeCount())
		return cell, nil
	}
	ctx.Logger.Warn("produce failed", "component", name, "cell", cell.Name(), "error", err)
	if mErr := DrawErrorMarker(cell, err); mErr != nil {
		err = fmt.Errorf("%w (marker: %v)", err, mErr)
	}
	discardSince(ctx, n)
	return cell, &ProduceError{Component: name, Cell: cell.Name(), Err: err}
}

// CreateChild is Create for cells made while producing another cell. A
// failed child is removed again, since the parent's own marker reports the
// failure, and its cause is returned without the *ProduceError naming the
// removed cell.
func (l *Library) CreateChild(ctx *Context, name string, overrides map[string]any) (*layout.Cell, error) {
	cell, err := l.Create(ctx, name, overrides)
	if err == nil || cell == nil {
		return cell, err
	}
	if dErr := ctx.Layout.DeleteCells(cell); dErr != nil {
		ctx.Logger.Warn("failed child kept", "cell", cell.Name(), "error", dErr)
	}
	var pe *ProduceError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return nil, fmt.Errorf("pcell: %s: %w", name, err)
}

// discardSince removes the cells created after the first n. The cell they
// were made for has been cleared, so nothing else instantiates them.
func discardSince(ctx *Context, n int) {
	made := ctx.Layout.Cells()[n:]
	if len(made) == 0 {
		return
	}
	if err := ctx.Layout.DeleteCells(made...); err != nil {
		ctx.Logger.Warn("sub-cells kept", "count", len(made), "error", err)
	}
}

// Regenerate re-produces an existing cell with new parameters. The cell is
// cleared first; on failure it holds the error marker.
func (l *Library) Regenerate(ctx *Context, cell *layout.Cell, name string, overrides map[string]any) error {
	pc, err := l.Get(name)
	if err != nil {
		return err
	}
	if cell.Producing() {
		return fmt.Errorf("pcell: regenerate %s: %w", cell.Name(), pdkerr.ErrReentrant)
	}
	cell.Clear()
	n := len(ctx.Layout.Cells())
	if err := l.build(ctx, pc, overrides, cell); err != nil {
		ctx.Logger.Warn("produce failed", "component", name, "cell", cell.Name(), "error", err)
		_ = DrawErrorMarker(cell, err)
		discardSince(ctx, n)
		return &ProduceError{Component: name, Cell: cell.Name(), Err: err}
	}
	return nil
}

func (l *Library) build(ctx *Context, pc PCell, overrides map[string]any, cell *layout.Cell) error {
	p, err := Resolve(ctx, pc, overrides)
	if err != nil {
		return err
	}
	return Produce(ctx, pc, p, cell)
}
