// Package kernel builds the vertex sequences of the curved structures used
// by photonic layouts: circular arcs, cubic Bezier bends, Euler (clothoid)
// bends, rounded boxes and normal offsets of a centreline.
//
// All inputs and outputs are in micrometres. The discretisation is driven by
// a Tolerance so that the chord-vs-curve deviation stays below a bound given
// in database units.
package kernel

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// MinArcPoints is the lower bound on segments per arc.
const MinArcPoints = 12

// Tolerance controls the point-count policy of every curve generator.
type Tolerance struct {
	DBU            float64 // Database unit in micrometres
	MaxError       float64 // Maximum chord-vs-arc deviation in dbu
	BezierAccuracy float64 // Maximum polyline-vs-Bezier deviation in micrometres
}

// DefaultTolerance returns a one-dbu tolerance on a 1 nm grid.
func DefaultTolerance() Tolerance {
	return Tolerance{
		DBU:            geom.DefaultDBU,
		MaxError:       1,
		BezierAccuracy: 0.001,
	}
}

// Validate checks that every bound is positive.
func (t Tolerance) Validate() error {
	if t.DBU <= 0 {
		return fmt.Errorf("kernel: dbu %g must be positive: %w", t.DBU, pdkerr.ErrParameterDomain)
	}
	if t.MaxError <= 0 {
		return fmt.Errorf("kernel: max error %g must be positive: %w", t.MaxError, pdkerr.ErrParameterDomain)
	}
	if t.BezierAccuracy <= 0 {
		return fmt.Errorf("kernel: bezier accuracy %g must be positive: %w", t.BezierAccuracy, pdkerr.ErrParameterDomain)
	}
	return nil
}

// MaxErrorMicrons returns the chord tolerance in micrometres.
func (t Tolerance) MaxErrorMicrons() float64 { return t.MaxError * t.DBU }

func domainErr(format string, args ...any) error {
	return fmt.Errorf("kernel: "+format+": %w", append(args, pdkerr.ErrParameterDomain)...)
}
