// Package waveguide lowers a centreline polyline onto the layers of a
// waveguide type: it rounds every interior vertex with a bend of the type's
// style, offsets the stitched centreline per layer into closed polygons and
// reports the waveguide length.
package waveguide

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// DefaultCompoundSlack is the extra straight length, beyond the two tapers,
// a compound waveguide needs before it switches to multimode.
const DefaultCompoundSlack = 1.0

// Options controls one lowering.
type Options struct {
	Tol kernel.Tolerance
	// Radius overrides the type's default bend radius when positive.
	Radius float64
	// Strict turns radius clamping into an error.
	Strict bool
	// CompoundSlack is the slack of the multimode rule, in µm.
	CompoundSlack float64
	// OmitLayers names type layers that are not rendered. Components that
	// draw their own DevRec outline omit the type's DevRec strip.
	OmitLayers []string
}

// DefaultOptions returns the type's own radius with clamping allowed.
func DefaultOptions() Options {
	return Options{
		Tol:           kernel.DefaultTolerance(),
		CompoundSlack: DefaultCompoundSlack,
	}
}

// Validate checks the tolerance and the numeric overrides.
func (o Options) Validate() error {
	if err := o.Tol.Validate(); err != nil {
		return err
	}
	if o.Radius < 0 {
		return fmt.Errorf("waveguide: radius %g must not be negative: %w", o.Radius, pdkerr.ErrParameterDomain)
	}
	if o.CompoundSlack < 0 {
		return fmt.Errorf("waveguide: compound slack %g must not be negative: %w", o.CompoundSlack, pdkerr.ErrParameterDomain)
	}
	return nil
}
