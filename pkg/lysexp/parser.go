package lysexp

import (
	"fmt"
	"io"
	"strings"
)

// Parser reads top-level expressions one at a time.
type Parser struct {
	lex *lexer
}

// NewParser returns a parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{lex: newLexer(r)}
}

// Next returns the next top-level expression, or io.EOF when the input is
// exhausted.
func (p *Parser) Next() (Sexp, error) {
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	if tok.typ == tokenEOF {
		return nil, io.EOF
	}
	return p.expr(tok)
}

// All parses every remaining top-level expression.
func (p *Parser) All() ([]Sexp, error) {
	var out []Sexp
	for {
		s, err := p.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

func (p *Parser) expr(tok token) (Sexp, error) {
	switch tok.typ {
	case tokenOpen:
		return p.list(tok.line)
	case tokenSymbol:
		return &Atom{Value: tok.value}, nil
	case tokenString:
		return &Atom{Value: tok.value, Quoted: true}, nil
	case tokenClose:
		return nil, fmt.Errorf("line %d: unexpected ')': %w", tok.line, ErrSyntax)
	default:
		return nil, fmt.Errorf("line %d: unexpected end of input: %w", tok.line, ErrSyntax)
	}
}

func (p *Parser) list(start int) (*List, error) {
	l := &List{}
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		switch tok.typ {
		case tokenClose:
			return l, nil
		case tokenEOF:
			return nil, fmt.Errorf("line %d: list opened here is not closed: %w", start, ErrSyntax)
		}
		item, err := p.expr(tok)
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, item)
	}
}

// ParseString parses every expression in s.
func ParseString(s string) ([]Sexp, error) {
	return NewParser(strings.NewReader(s)).All()
}
