package pcell

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/paramlit"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// ParamType is the declared type of a parameter. The Go type of the stored
// value follows from it: Int int, Double float64, String/Layer/Callback
// string, Bool bool, Shape []geom.DPoint, List []float64.
type ParamType int

const (
	TypeInt ParamType = iota
	TypeDouble
	TypeString
	TypeBool
	TypeShape
	TypeLayer
	TypeCallback
	TypeList
)

var typeNames = [...]string{"int", "double", "string", "bool", "shape", "layer", "callback", "list"}

func (t ParamType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("ParamType(%d)", int(t))
}

func (t ParamType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Visibility controls how an editor presents a parameter.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
	ReadOnly
)

func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case ReadOnly:
		return "readonly"
	}
	return "visible"
}

func (v Visibility) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// ParamDecl declares one parameter of a PCell.
type ParamDecl struct {
	Name       string     `json:"name"`
	Type       ParamType  `json:"type"`
	Label      string     `json:"label"`
	Default    any        `json:"default"`
	Visibility Visibility `json:"visibility"`
	Choices    []string   `json:"choices,omitempty"`
	Min        *float64   `json:"min,omitempty"`
	Max        *float64   `json:"max,omitempty"`
	// MinOpen excludes Min itself from the range.
	MinOpen bool   `json:"min_open,omitempty"`
	Unit    string `json:"unit,omitempty"`
	// Waveguide marks a String parameter naming a waveguide type; it is
	// mapped to the type's integer id when parameters are resolved.
	Waveguide bool `json:"waveguide,omitempty"`
}

// DeclOption adjusts a declaration built by the helpers below.
type DeclOption func(*ParamDecl)

// Min sets an inclusive lower bound.
func Min(v float64) DeclOption { return func(d *ParamDecl) { d.Min = &v } }

// Max sets an inclusive upper bound.
func Max(v float64) DeclOption { return func(d *ParamDecl) { d.Max = &v } }

// Positive requires values strictly above zero.
func Positive() DeclOption {
	return func(d *ParamDecl) {
		zero := 0.0
		d.Min, d.MinOpen = &zero, true
	}
}

// Unit records the display unit.
func Unit(u string) DeclOption { return func(d *ParamDecl) { d.Unit = u } }

// Choices restricts a string parameter to an enumeration.
func Choices(c ...string) DeclOption { return func(d *ParamDecl) { d.Choices = c } }

// WithVisibility sets the visibility.
func WithVisibility(v Visibility) DeclOption { return func(d *ParamDecl) { d.Visibility = v } }

func decl(name string, t ParamType, label string, def any, opts []DeclOption) ParamDecl {
	d := ParamDecl{Name: name, Type: t, Label: label, Default: def}
	for _, o := range opts {
		o(&d)
	}
	return d
}

func Int(name, label string, def int, opts ...DeclOption) ParamDecl {
	return decl(name, TypeInt, label, def, opts)
}

func Double(name, label string, def float64, opts ...DeclOption) ParamDecl {
	return decl(name, TypeDouble, label, def, append([]DeclOption{Unit("µm")}, opts...))
}

// Number is a unitless Double.
func Number(name, label string, def float64, opts ...DeclOption) ParamDecl {
	return decl(name, TypeDouble, label, def, opts)
}

func String(name, label, def string, opts ...DeclOption) ParamDecl {
	return decl(name, TypeString, label, def, opts)
}

func Bool(name, label string, def bool, opts ...DeclOption) ParamDecl {
	return decl(name, TypeBool, label, def, opts)
}

func Shape(name, label string, def []geom.DPoint, opts ...DeclOption) ParamDecl {
	return decl(name, TypeShape, label, def, opts)
}

func Layer(name, label, def string, opts ...DeclOption) ParamDecl {
	return decl(name, TypeLayer, label, def, opts)
}

func List(name, label string, def []float64, opts ...DeclOption) ParamDecl {
	return decl(name, TypeList, label, def, opts)
}

// Params is an immutable parameter dictionary. Values are stored with the
// Go type their declaration implies.
type Params struct {
	vals map[string]any
	ids  map[string]int
}

// NewParams copies m into a dictionary. Values are taken as they are.
func NewParams(m map[string]any) Params {
	p := Params{vals: make(map[string]any, len(m))}
	for k, v := range m {
		p.vals[k] = v
	}
	return p
}

// With returns a copy with name set to v.
func (p Params) With(name string, v any) Params {
	out := Params{vals: make(map[string]any, len(p.vals)+1), ids: p.ids}
	for k, x := range p.vals {
		out.vals[k] = x
	}
	out.vals[name] = v
	if _, ok := p.ids[name]; ok {
		out.ids = make(map[string]int, len(p.ids))
		for k, id := range p.ids {
			if k != name {
				out.ids[k] = id
			}
		}
	}
	return out
}

func (p Params) withID(name string, id int) Params {
	ids := make(map[string]int, len(p.ids)+1)
	for k, v := range p.ids {
		ids[k] = v
	}
	ids[name] = id
	return Params{vals: p.vals, ids: ids}
}

// Get returns the raw value.
func (p Params) Get(name string) (any, bool) {
	v, ok := p.vals[name]
	return v, ok
}

// Float returns a numeric parameter; Int values are widened.
func (p Params) Float(name string) float64 {
	switch v := p.vals[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (p Params) Int(name string) int {
	switch v := p.vals[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (p Params) Bool(name string) bool {
	b, _ := p.vals[name].(bool)
	return b
}

func (p Params) String(name string) string {
	s, _ := p.vals[name].(string)
	return s
}

func (p Params) Points(name string) []geom.DPoint {
	pts, _ := p.vals[name].([]geom.DPoint)
	return slices.Clone(pts)
}

func (p Params) Floats(name string) []float64 {
	f, _ := p.vals[name].([]float64)
	return slices.Clone(f)
}

// WaveguideID returns the resolved id of a waveguide parameter.
func (p Params) WaveguideID(name string) (int, bool) {
	id, ok := p.ids[name]
	return id, ok
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.vals))
	for k := range p.vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the values.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p.vals))
	for k, v := range p.vals {
		m[k] = v
	}
	return m
}

func domainErr(d ParamDecl, format string, args ...any) error {
	return fmt.Errorf("pcell: parameter %s: "+format+": %w", append([]any{d.Name}, append(args, pdkerr.ErrParameterDomain)...)...)
}

// Convert coerces a raw value (a Go value, a JSON-decoded value or a
// textual literal) to the Go type of the declaration.
func Convert(d ParamDecl, raw any) (any, error) {
	switch d.Type {
	case TypeInt:
		f, err := paramlit.Float(raw)
		if err != nil {
			return nil, domainErr(d, "%v is not an integer", raw)
		}
		if f != math.Trunc(f) {
			return nil, domainErr(d, "%v is not an integer", raw)
		}
		return int(f), nil
	case TypeDouble:
		f, err := paramlit.Float(raw)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, domainErr(d, "%v is not a number", raw)
		}
		return f, nil
	case TypeString, TypeLayer, TypeCallback:
		s, ok := raw.(string)
		if !ok {
			return nil, domainErr(d, "%v is not a string", raw)
		}
		return s, nil
	case TypeBool:
		b, err := paramlit.Bool(raw)
		if err != nil {
			return nil, domainErr(d, "%v is not a boolean", raw)
		}
		return b, nil
	case TypeShape:
		pts, err := paramlit.Points(raw)
		if err != nil {
			return nil, domainErr(d, "%v is not a point list", raw)
		}
		return pts, nil
	case TypeList:
		f, err := paramlit.Floats(raw)
		if err != nil {
			return nil, domainErr(d, "%v is not a number list", raw)
		}
		return f, nil
	}
	return nil, domainErr(d, "unknown type %v", d.Type)
}

// check enforces the declared range and choices on a converted value.
func (d ParamDecl) check(v any) error {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case float64:
		f = x
	case string:
		if len(d.Choices) > 0 && !slices.Contains(d.Choices, x) {
			return domainErr(d, "%q is not one of %d choices", x, len(d.Choices))
		}
		return nil
	default:
		return nil
	}
	if d.Min != nil {
		if f < *d.Min || (d.MinOpen && f == *d.Min) {
			if d.MinOpen {
				return domainErr(d, "%g must be above %g", f, *d.Min)
			}
			return domainErr(d, "%g below minimum %g", f, *d.Min)
		}
	}
	if d.Max != nil && f > *d.Max {
		return domainErr(d, "%g above maximum %g", f, *d.Max)
	}
	return nil
}
