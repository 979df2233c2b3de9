// Package devrec builds the device-recognition annotation that circuit
// extraction reads back from a cell: the component library, the component
// name and a list of spice-style parameters, each a text on DevRec.
package devrec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// Line prefixes of the three annotation texts.
const (
	LibraryPrefix   = "Lumerical_INTERCONNECT_library="
	ComponentPrefix = "Component="
	SpicePrefix     = "Spice_param:"
)

// DefaultLibrary is the compact-model library of the shipped components.
const DefaultLibrary = "Design kits/EBeam"

// Param is one key=value pair. Numbers carry an SI suffix such as "u".
type Param struct {
	Key      string
	Num      float64
	Unit     string
	Str      string
	IsString bool
}

// Microns is a length parameter printed with three decimals and a u suffix.
func Microns(key string, v float64) Param { return Param{Key: key, Num: v, Unit: "u"} }

// Number is a unitless numeric parameter.
func Number(key string, v float64) Param { return Param{Key: key, Num: v} }

// Text is a quoted string parameter.
func Text(key, s string) Param { return Param{Key: key, Str: s, IsString: true} }

// String formats the pair as it appears on the Spice_param line.
func (p Param) String() string {
	switch {
	case p.IsString:
		return p.Key + "=" + strconv.Quote(p.Str)
	case p.Unit != "":
		return fmt.Sprintf("%s=%.3f%s", p.Key, p.Num, p.Unit)
	default:
		return p.Key + "=" + strconv.FormatFloat(p.Num, 'g', -1, 64)
	}
}

// Record is the structured form of the annotation.
type Record struct {
	Library   string
	Component string
	Params    []Param
}

// New starts a record for a component of the default library.
func New(component string, params ...Param) Record {
	return Record{Library: DefaultLibrary, Component: component, Params: params}
}

// Get returns the first parameter named key.
func (r Record) Get(key string) (Param, bool) {
	for _, p := range r.Params {
		if p.Key == key {
			return p, true
		}
	}
	return Param{}, false
}

// SpiceLine renders the parameter list.
func (r Record) SpiceLine() string {
	parts := make([]string, len(r.Params))
	for i, p := range r.Params {
		parts[i] = p.String()
	}
	return SpicePrefix + strings.Join(parts, " ")
}

// Lines returns the annotation texts in insertion order.
func (r Record) Lines() []string {
	lines := make([]string, 0, 3)
	if r.Library != "" {
		lines = append(lines, LibraryPrefix+r.Library)
	}
	lines = append(lines, ComponentPrefix+r.Component)
	if len(r.Params) > 0 {
		lines = append(lines, r.SpiceLine())
	}
	return lines
}

// Insert writes the annotation onto the cell's DevRec layer at pos (µm).
func Insert(cell *layout.Cell, r Record, pos geom.DPoint) error {
	if r.Component == "" {
		return fmt.Errorf("devrec: record has no component: %w", pdkerr.ErrParameterDomain)
	}
	for _, line := range r.Lines() {
		if _, err := cell.InsertText(tech.LayerDevRec, line, pos, 0.1); err != nil {
			return err
		}
	}
	return nil
}

// Extract rebuilds the record from the cell's DevRec texts.
func Extract(cell *layout.Cell) (Record, error) {
	var r Record
	found := false
	for _, s := range cell.Shapes(tech.LayerDevRec) {
		t, ok := s.(*layout.Text)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(t.String, LibraryPrefix):
			r.Library = strings.TrimPrefix(t.String, LibraryPrefix)
		case strings.HasPrefix(t.String, ComponentPrefix):
			r.Component = strings.TrimPrefix(t.String, ComponentPrefix)
			found = true
		case strings.HasPrefix(t.String, SpicePrefix):
			params, err := Parse(t.String)
			if err != nil {
				return Record{}, err
			}
			r.Params = append(r.Params, params...)
		}
	}
	if !found {
		return Record{}, fmt.Errorf("devrec: no component annotation in %s: %w", cell.Name(), pdkerr.ErrLookup)
	}
	return r, nil
}
