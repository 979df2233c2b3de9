// Package paramlit parses the textual parameter literals accepted by the
// command line and the HTTP service:
//
//	10.5            number
//	true            boolean
//	"Strip TE"      quoted string
//	[(0,0),(10,0)]  list of points
//	[5, 90, 0, -90] list of numbers
package paramlit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

var litLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'[^']*'`},
	{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\](),]`},
})

type value struct {
	List   *list   `  @@`
	Tuple  *tuple  `| @@`
	Number *string `| @Number`
	Str    *string `| @String`
	Ident  *string `| @Ident`
}

type list struct {
	Items []*value `"[" ( @@ ( "," @@ )* ","? )? "]"`
}

type tuple struct {
	Items []*value `"(" @@ ( "," @@ )* ")"`
}

var litParser = participle.MustBuild[value](
	participle.Lexer(litLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse evaluates a literal into float64, bool, string or []any.
// Tuples evaluate to []any like lists.
func Parse(s string) (any, error) {
	ast, err := litParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("paramlit: %q: %w: %w", s, pdkerr.ErrParameterDomain, err)
	}
	return ast.eval()
}

// ParseOrString evaluates s as a literal, and falls back to the raw text
// when s is not one. Command-line values such as waveguide type names need
// no quoting this way.
func ParseOrString(s string) any {
	v, err := Parse(s)
	if err != nil {
		return s
	}
	return v
}

func (v *value) eval() (any, error) {
	switch {
	case v.List != nil:
		return evalItems(v.List.Items)
	case v.Tuple != nil:
		return evalItems(v.Tuple.Items)
	case v.Number != nil:
		f, err := strconv.ParseFloat(*v.Number, 64)
		if err != nil {
			return nil, fmt.Errorf("paramlit: number %q: %w", *v.Number, pdkerr.ErrParameterDomain)
		}
		return f, nil
	case v.Str != nil:
		s := *v.Str
		if strings.HasPrefix(s, "'") {
			return strings.Trim(s, "'"), nil
		}
		u, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("paramlit: string %s: %w", s, pdkerr.ErrParameterDomain)
		}
		return u, nil
	case v.Ident != nil:
		switch strings.ToLower(*v.Ident) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return *v.Ident, nil
	}
	return nil, fmt.Errorf("paramlit: empty value: %w", pdkerr.ErrParameterDomain)
}

func evalItems(items []*value) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, it := range items {
		v, err := it.eval()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Float converts a decoded value to a number.
func Float(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		p, err := Parse(x)
		if err != nil {
			return 0, err
		}
		if f, ok := p.(float64); ok {
			return f, nil
		}
	}
	return 0, fmt.Errorf("paramlit: %v is not a number: %w", v, pdkerr.ErrParameterDomain)
}

// Floats converts a decoded value to a list of numbers.
func Floats(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return append([]float64(nil), x...), nil
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, err := Float(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case string:
		p, err := Parse(x)
		if err != nil {
			return nil, err
		}
		if _, ok := p.(string); !ok {
			return Floats(p)
		}
	}
	return nil, fmt.Errorf("paramlit: %v is not a list of numbers: %w", v, pdkerr.ErrParameterDomain)
}

// Points converts a decoded value to a list of points. Accepted forms are
// lists of pairs, lists of {"x","y"} maps and a flat list of coordinates.
func Points(v any) ([]geom.DPoint, error) {
	switch x := v.(type) {
	case []geom.DPoint:
		return append([]geom.DPoint(nil), x...), nil
	case [][2]float64:
		out := make([]geom.DPoint, len(x))
		for i, p := range x {
			out[i] = geom.DPoint{X: p[0], Y: p[1]}
		}
		return out, nil
	case string:
		p, err := Parse(x)
		if err != nil {
			return nil, err
		}
		if _, ok := p.([]any); ok {
			return Points(p)
		}
	case []any:
		if flat, err := Floats(x); err == nil {
			if len(flat)%2 != 0 {
				break
			}
			out := make([]geom.DPoint, len(flat)/2)
			for i := range out {
				out[i] = geom.DPoint{X: flat[2*i], Y: flat[2*i+1]}
			}
			return out, nil
		}
		out := make([]geom.DPoint, len(x))
		for i, e := range x {
			p, err := point(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return nil, fmt.Errorf("paramlit: %v is not a list of points: %w", v, pdkerr.ErrParameterDomain)
}

func point(v any) (geom.DPoint, error) {
	switch x := v.(type) {
	case []any:
		if len(x) == 2 {
			px, err1 := Float(x[0])
			py, err2 := Float(x[1])
			if err1 == nil && err2 == nil {
				return geom.DPoint{X: px, Y: py}, nil
			}
		}
	case map[string]any:
		px, err1 := Float(x["x"])
		py, err2 := Float(x["y"])
		if err1 == nil && err2 == nil {
			return geom.DPoint{X: px, Y: py}, nil
		}
	}
	return geom.DPoint{}, fmt.Errorf("paramlit: %v is not a point: %w", v, pdkerr.ErrParameterDomain)
}

// Bool converts a decoded value to a boolean.
func Bool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		p, err := Parse(x)
		if err == nil {
			if b, ok := p.(bool); ok {
				return b, nil
			}
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	}
	return false, fmt.Errorf("paramlit: %v is not a boolean: %w", v, pdkerr.ErrParameterDomain)
}

// Format renders a value back into literal syntax.
func Format(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = Format(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []geom.DPoint:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = "(" + Format(p.X) + "," + Format(p.Y) + ")"
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
