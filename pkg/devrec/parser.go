package devrec

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// spiceLexer tokenizes a Spice_param line. A quantity keeps its SI suffix
// in the same token so that "10.000u wg_width" stays unambiguous.
var spiceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Quantity", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?[fpnumkMG]?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[:=]`},
})

type spiceLine struct {
	Params []*spiceParam `"Spice_param" ":" @@*`
}

type spiceParam struct {
	Key   string  `@Ident "="`
	Str   *string `( @String`
	Value *string `| @Quantity )`
}

var spiceParser = participle.MustBuild[spiceLine](
	participle.Lexer(spiceLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse decodes a Spice_param line into parameters.
func Parse(line string) ([]Param, error) {
	ast, err := spiceParser.ParseString("", line)
	if err != nil {
		return nil, fmt.Errorf("devrec: parse %q: %w: %w", line, pdkerr.ErrParameterDomain, err)
	}
	params := make([]Param, 0, len(ast.Params))
	for _, sp := range ast.Params {
		if sp.Str != nil {
			params = append(params, Text(sp.Key, *sp.Str))
			continue
		}
		num, unit := splitUnit(*sp.Value)
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, fmt.Errorf("devrec: %s=%s: %w", sp.Key, *sp.Value, pdkerr.ErrParameterDomain)
		}
		params = append(params, Param{Key: sp.Key, Num: v, Unit: unit})
	}
	return params, nil
}

func splitUnit(q string) (string, string) {
	if n := len(q); n > 0 {
		switch q[n-1] {
		case 'f', 'p', 'n', 'u', 'm', 'k', 'M', 'G':
			return q[:n-1], q[n-1:]
		}
	}
	return q, ""
}
