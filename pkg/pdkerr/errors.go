// Package pdkerr declares the error kinds shared by the layout generator.
//
// Every package wraps one of these sentinels with context using %w, so
// callers branch with errors.Is and never compare message strings.
package pdkerr

import "errors"

var (
	// ErrParameterDomain is returned when a parameter violates its declared
	// range or a semantic constraint (negative length, radius < width/2,
	// Bezier shape outside (0,1), ...).
	ErrParameterDomain = errors.New("parameter out of domain")

	// ErrLookup is returned when a layer, waveguide type, component or port
	// name is not found.
	ErrLookup = errors.New("lookup failed")

	// ErrGeometry is returned when a geometric construction fails, for
	// example a bend that does not fit in the available straight length.
	ErrGeometry = errors.New("geometry construction failed")

	// ErrTechnologyLoad is returned when a technology or waveguide
	// definition file is missing or malformed.
	ErrTechnologyLoad = errors.New("technology load failed")

	// ErrComposition is returned when port matching or turtle routing
	// cannot be satisfied.
	ErrComposition = errors.New("composition failed")

	// ErrReentrant is returned when a produce routine triggers another
	// produce on a cell that is already being produced.
	ErrReentrant = errors.New("reentrant produce")
)

var kinds = []struct {
	err  error
	name string
}{
	// Composition wraps the cause of a failed placement, so it wins.
	{ErrComposition, "CompositionError"},
	{ErrParameterDomain, "ParameterDomainError"},
	{ErrLookup, "LookupError"},
	{ErrGeometry, "GeometryError"},
	{ErrTechnologyLoad, "TechnologyLoadError"},
	{ErrReentrant, "ReentrancyError"},
}

// Kind returns the short name of the error kind wrapped by err, or "Error"
// when err does not wrap any of the package sentinels.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Error"
}
