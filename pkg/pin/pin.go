// Package pin marks named ports on cells and finds them again.
//
// A pin is a two-point path on PinRec (optical) or PinRecM (electrical),
// PinLength long, centred on the pin point and pointing outward, plus a
// text label on the same layer carrying the pin name at the pin point.
package pin

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// PinLength is the length of the marker path in dbu.
const PinLength = 200

// Kind distinguishes optical from electrical pins.
type Kind int

const (
	Optical Kind = iota
	Electrical
)

func (k Kind) String() string {
	if k == Electrical {
		return "electrical"
	}
	return "optical"
}

// Layer returns the reserved layer that carries pins of this kind.
func (k Kind) Layer() string {
	if k == Electrical {
		return tech.LayerPinRecM
	}
	return tech.LayerPinRec
}

// Pin is a port discovered on a cell.
type Pin struct {
	Name  string
	Pos   geom.Point
	Width int // dbu
	Angle int // outward direction: 0, 90, 180 or 270
	Kind  Kind
}

func (p Pin) String() string {
	return fmt.Sprintf("%s@%v/%d°", p.Name, p.Pos, p.Angle)
}

// Transformed returns the pin under a rigid transform.
func (p Pin) Transformed(t geom.Transform) Pin {
	p.Pos = t.Apply(p.Pos)
	p.Angle = t.ApplyAngle(p.Angle)
	return p
}

// Make inserts a pin given in µm. layerName must be PinRec or PinRecM.
func Make(cell *layout.Cell, name string, pos geom.DPoint, width float64, layerName string, angle int) (Pin, error) {
	ly := cell.Layout()
	return MakeDBU(cell, name, geom.ToDBU(pos, ly.DBU), ly.ToDBU(width), layerName, angle)
}

// MakeDBU inserts a pin given in database units.
func MakeDBU(cell *layout.Cell, name string, pos geom.Point, width int, layerName string, angle int) (Pin, error) {
	var kind Kind
	switch layerName {
	case tech.LayerPinRec:
		kind = Optical
	case tech.LayerPinRecM:
		kind = Electrical
	default:
		return Pin{}, fmt.Errorf("pin: %q is not a pin layer: %w", layerName, pdkerr.ErrParameterDomain)
	}
	if name == "" {
		return Pin{}, fmt.Errorf("pin: empty name: %w", pdkerr.ErrParameterDomain)
	}
	if angle%90 != 0 {
		return Pin{}, fmt.Errorf("pin: %s angle %d is not cardinal: %w", name, angle, pdkerr.ErrParameterDomain)
	}
	if width <= 0 {
		return Pin{}, fmt.Errorf("pin: %s width %d must be positive: %w", name, width, pdkerr.ErrParameterDomain)
	}
	if _, err := Find(cell, name); err == nil {
		return Pin{}, fmt.Errorf("pin: %s already defined in %s: %w", name, cell.Name(), pdkerr.ErrParameterDomain)
	}
	angle = geom.NormAngle(angle)
	half := geom.CardinalVector(angle).Scale(PinLength / 2)
	path, err := layout.NewPath([]geom.Point{pos.Add(half.Neg()), pos.Add(half)}, width)
	if err != nil {
		return Pin{}, err
	}
	if err := cell.Insert(layerName, path); err != nil {
		return Pin{}, err
	}
	if err := cell.Insert(layerName, &layout.Text{String: name, Pos: pos, Size: PinLength / 2}); err != nil {
		return Pin{}, err
	}
	return Pin{Name: name, Pos: pos, Width: width, Angle: angle, Kind: kind}, nil
}

// Find returns the named pin among the cell's own shapes. Pins of child
// instances are reached through FindInstance.
func Find(cell *layout.Cell, name string) (Pin, error) {
	for _, kind := range []Kind{Optical, Electrical} {
		if p, ok := findOn(cell, kind, name); ok {
			return p, nil
		}
	}
	return Pin{}, fmt.Errorf("pin: no pin %q in %s: %w", name, cell.Name(), pdkerr.ErrLookup)
}

// FindInstance returns the named pin of the instance's cell in the parent
// cell's coordinates.
func FindInstance(inst *layout.Instance, name string) (Pin, error) {
	p, err := Find(inst.Cell, name)
	if err != nil {
		return Pin{}, err
	}
	return p.Transformed(inst.Trans), nil
}

// FindAll returns every pin of cell sorted by name.
func FindAll(cell *layout.Cell) []Pin {
	var out []Pin
	for _, kind := range []Kind{Optical, Electrical} {
		out = append(out, collect(cell, kind, "")...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func findOn(cell *layout.Cell, kind Kind, name string) (Pin, bool) {
	pins := collect(cell, kind, name)
	if len(pins) == 0 {
		return Pin{}, false
	}
	return pins[0], true
}

// collect pairs each label with the marker path centred on it, preferring
// the closest path inserted before the label. An empty name matches all.
func collect(cell *layout.Cell, kind Kind, name string) []Pin {
	shapes := cell.Shapes(kind.Layer())
	var out []Pin
	for i, s := range shapes {
		t, ok := s.(*layout.Text)
		if !ok || (name != "" && t.String != name) {
			continue
		}
		if p, ok := pairFor(t, shapes, i, kind); ok {
			out = append(out, p)
		}
	}
	return out
}

func pairFor(t *layout.Text, shapes []layout.Shape, i int, kind Kind) (Pin, bool) {
	for j := i - 1; j >= 0; j-- {
		if p, ok := match(t, shapes[j], kind); ok {
			return p, true
		}
	}
	for j := i + 1; j < len(shapes); j++ {
		if p, ok := match(t, shapes[j], kind); ok {
			return p, true
		}
	}
	return Pin{}, false
}

func match(t *layout.Text, s layout.Shape, kind Kind) (Pin, bool) {
	p, ok := s.(*layout.Path)
	if !ok || len(p.Points) != 2 {
		return Pin{}, false
	}
	a, b := p.Points[0], p.Points[1]
	if a.X+b.X != 2*t.Pos.X || a.Y+b.Y != 2*t.Pos.Y {
		return Pin{}, false
	}
	angle, err := geom.AngleOf(b.Sub(a))
	if err != nil {
		return Pin{}, false
	}
	return Pin{Name: t.String, Pos: t.Pos, Width: p.Width, Angle: angle, Kind: kind}, true
}
