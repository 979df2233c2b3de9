package tech

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// Defaults applied when a waveguide definition omits its shape parameters.
const (
	DefaultBezier = 0.2
	DefaultEulerP = 0.25
)

// BendStyle selects how waveguide lowering rounds an interior vertex.
type BendStyle int

const (
	BendCircular  BendStyle = iota // circular arc
	BendBezier                     // symmetric cubic Bezier
	BendAdiabatic                  // Euler (clothoid plus arc)
)

func (s BendStyle) String() string {
	switch s {
	case BendCircular:
		return "circular"
	case BendBezier:
		return "bezier"
	case BendAdiabatic:
		return "adiabatic"
	default:
		return fmt.Sprintf("BendStyle(%d)", int(s))
	}
}

// ParseBendStyle accepts the names printed by BendStyle.String, plus
// "euler" as an alias of adiabatic.
func ParseBendStyle(s string) (BendStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "circular", "arc":
		return BendCircular, nil
	case "bezier", "bezier-cubic":
		return BendBezier, nil
	case "adiabatic", "euler":
		return BendAdiabatic, nil
	}
	return 0, fmt.Errorf("tech: unknown bend style %q: %w", s, pdkerr.ErrParameterDomain)
}

// WaveguideLayer is one constituent strip of a waveguide type.
type WaveguideLayer struct {
	Layer  string
	Width  float64 // µm
	Offset float64 // µm, to the left of the centreline
}

// Compound describes a waveguide that switches to a multimode type on long
// straights. The pointers are resolved when the technology is loaded.
type Compound struct {
	SinglemodeName string
	MultimodeName  string
	TaperLength    float64 // µm
	Singlemode     *WaveguideType
	Multimode      *WaveguideType
}

// WaveguideType is a named cross-section. Values handed out by a
// Technology are shared and must not be modified.
type WaveguideType struct {
	ID     int // index in the technology's waveguide table
	Name   string
	Width  float64 // nominal width (µm), also the pin width
	Radius float64 // default bend radius (µm)
	Style  BendStyle
	Bezier float64 // Bezier shape for BendBezier
	EulerP float64 // clothoid fraction for BendAdiabatic
	Layers []WaveguideLayer
	// Compound is non-nil for compound types, which have no Layers of
	// their own.
	Compound *Compound
	Model    string
	CML      string
}

// IsCompound reports whether the type switches between sub-types.
func (w *WaveguideType) IsCompound() bool { return w.Compound != nil }

// MinRadius returns the smallest default radius the bend style admits.
func (w *WaveguideType) MinRadius() float64 {
	if w.Style == BendCircular {
		return w.Width / 2
	}
	return w.Width
}

// NewWaveguideType builds a single-section waveguide type from parallel
// layer, width and offset arrays. The nominal width is the first width.
func NewWaveguideType(name string, layers []string, widths, offsets []float64, radius float64, style BendStyle) (*WaveguideType, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("tech: waveguide %q has no layers: %w", name, pdkerr.ErrParameterDomain)
	}
	if len(widths) != len(layers) || len(offsets) != len(layers) {
		return nil, fmt.Errorf("tech: waveguide %q: %d layers, %d widths, %d offsets: %w",
			name, len(layers), len(widths), len(offsets), pdkerr.ErrParameterDomain)
	}
	wt := &WaveguideType{
		ID:     -1,
		Name:   name,
		Width:  widths[0],
		Radius: radius,
		Style:  style,
		Bezier: DefaultBezier,
		EulerP: DefaultEulerP,
	}
	for i, l := range layers {
		wt.Layers = append(wt.Layers, WaveguideLayer{Layer: l, Width: widths[i], Offset: offsets[i]})
	}
	if err := wt.check(); err != nil {
		return nil, fmt.Errorf("tech: waveguide %q: %v: %w", name, err, pdkerr.ErrParameterDomain)
	}
	return wt, nil
}

// check validates everything that does not need the rest of the table.
func (w *WaveguideType) check() error {
	if w.Name == "" {
		return fmt.Errorf("empty name")
	}
	if !(w.Width > 0) {
		return fmt.Errorf("width %g must be positive", w.Width)
	}
	if !(w.Radius > 0) {
		return fmt.Errorf("radius %g must be positive", w.Radius)
	}
	if w.Radius < w.MinRadius() {
		return fmt.Errorf("radius %g below the %s minimum %g", w.Radius, w.Style, w.MinRadius())
	}
	if w.Style == BendBezier && !(w.Bezier > 0 && w.Bezier < 1) {
		return fmt.Errorf("bezier parameter %g outside (0,1)", w.Bezier)
	}
	if w.Style == BendAdiabatic && !(w.EulerP > 0 && w.EulerP <= 1) {
		return fmt.Errorf("euler parameter %g outside (0,1]", w.EulerP)
	}
	if w.Compound != nil {
		if len(w.Layers) != 0 {
			return fmt.Errorf("compound type lists its own components")
		}
		if !(w.Compound.TaperLength > 0) {
			return fmt.Errorf("taper length %g must be positive", w.Compound.TaperLength)
		}
		return nil
	}
	if len(w.Layers) == 0 {
		return fmt.Errorf("no components")
	}
	for _, l := range w.Layers {
		if !(l.Width > 0) {
			return fmt.Errorf("component on %q has width %g", l.Layer, l.Width)
		}
	}
	return nil
}
