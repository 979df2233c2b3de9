// Package pcell is the parametric cell framework: components declare a
// parameter schema and a produce routine that fills a cell, and a Library
// resolves parameters, runs produce and turns failures into an in-layout
// error marker.
package pcell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// PCell is a parametric component.
type PCell interface {
	Name() string
	Params() []ParamDecl
	// Produce fills cell from p. It must only modify cell and must give
	// the same shapes, in the same order, for the same parameters.
	Produce(ctx *Context, p Params, cell *layout.Cell) error
}

// Coercer is implemented by components that normalize their parameters
// before produce runs.
type Coercer interface {
	Coerce(ctx *Context, p Params) (Params, error)
}

// Describer is implemented by components with a one-line description.
type Describer interface {
	Description() string
}

// Context is threaded through every produce call in place of global state.
type Context struct {
	Layout  *layout.Layout
	Library *Library
	Tol     kernel.Tolerance
	Logger  *slog.Logger
}

// NewContext returns a context with the default tolerance on the layout's
// grid. A nil logger discards output.
func NewContext(ly *layout.Layout, lib *Library, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tol := kernel.DefaultTolerance()
	tol.DBU = ly.DBU
	return &Context{Layout: ly, Library: lib, Tol: tol, Logger: logger}
}

// Tech returns the technology of the context's layout.
func (c *Context) Tech() *tech.Technology { return c.Layout.Tech }

// ProduceError reports a failed produce. The cell it names holds the error
// marker.
type ProduceError struct {
	Component string
	Cell      string
	Err       error
}

func (e *ProduceError) Error() string {
	return fmt.Sprintf("pcell: produce %s (cell %s): %v", e.Component, e.Cell, e.Err)
}

func (e *ProduceError) Unwrap() error { return e.Err }

// Marker geometry, in µm.
const (
	MarkerWidth    = 10.0
	MarkerHeight   = 2.0
	MarkerTextSize = 0.5
)

// DrawErrorMarker clears cell and leaves a text describing err plus a box
// on the Errors layer.
func DrawErrorMarker(cell *layout.Cell, err error) error {
	cell.Clear()
	msg := pdkerr.Kind(err) + ": " + err.Error()
	if _, e := cell.InsertText(tech.LayerErrors, msg, geom.DPoint{Y: MarkerHeight / 2}, MarkerTextSize); e != nil {
		return e
	}
	_, e := cell.InsertBox(tech.LayerErrors, geom.DPoint{}, geom.DPoint{X: MarkerWidth, Y: MarkerHeight})
	return e
}

// Resolve fills defaults, converts overrides, validates ranges and choices,
// maps waveguide names to ids and runs the component's coercion.
func Resolve(ctx *Context, pc PCell, overrides map[string]any) (Params, error) {
	decls := pc.Params()
	known := make(map[string]bool, len(decls))
	vals := make(map[string]any, len(decls))
	for _, d := range decls {
		known[d.Name] = true
		raw, ok := overrides[d.Name]
		if !ok {
			raw = d.Default
		}
		v, err := Convert(d, raw)
		if err != nil {
			return Params{}, err
		}
		vals[d.Name] = v
	}
	for name := range overrides {
		if !known[name] {
			return Params{}, fmt.Errorf("pcell: %s has no parameter %q: %w", pc.Name(), name, pdkerr.ErrLookup)
		}
	}

	p := NewParams(vals)
	if c, ok := pc.(Coercer); ok {
		var err error
		if p, err = c.Coerce(ctx, p); err != nil {
			return Params{}, err
		}
	}
	for _, d := range decls {
		v, _ := p.Get(d.Name)
		if d.Waveguide {
			id, err := ctx.Tech().WaveguideID(p.String(d.Name))
			if err != nil {
				return Params{}, fmt.Errorf("pcell: parameter %s: %w", d.Name, err)
			}
			p = p.withID(d.Name, id)
			continue
		}
		if d.Type == TypeLayer {
			if _, err := ctx.Tech().Layer(p.String(d.Name)); err != nil {
				return Params{}, fmt.Errorf("pcell: parameter %s: %w", d.Name, err)
			}
		}
		if err := d.check(v); err != nil {
			return Params{}, err
		}
	}
	return p, nil
}

// Produce runs pc into cell under the reentrancy guard. It does not draw
// error markers; see Library.Create.
func Produce(ctx *Context, pc PCell, p Params, cell *layout.Cell) error {
	if err := cell.BeginProduce(); err != nil {
		return err
	}
	defer cell.EndProduce()
	return pc.Produce(ctx, p, cell)
}

// WaveguideTypeDecl declares a waveguide type parameter whose choices are
// the technology's waveguide names.
func WaveguideTypeDecl(t *tech.Technology, name, label, def string) ParamDecl {
	d := String(name, label, def, Choices(t.Waveguides()...))
	d.Waveguide = true
	return d
}

// ResolveWaveguide returns the waveguide type named by parameter name,
// through the id assigned by Resolve when there is one.
func ResolveWaveguide(ctx *Context, p Params, name string) (*tech.WaveguideType, error) {
	if id, ok := p.WaveguideID(name); ok {
		return ctx.Tech().WaveguideByID(id)
	}
	return ctx.Tech().Waveguide(p.String(name))
}

// IsReentrant reports whether err comes from the reentrancy guard.
func IsReentrant(err error) bool { return errors.Is(err, pdkerr.ErrReentrant) }
