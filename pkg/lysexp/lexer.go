package lysexp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode"
)

// ErrSyntax marks malformed input.
var ErrSyntax = errors.New("lysexp: syntax error")

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenOpen
	tokenClose
	tokenSymbol
	tokenString
)

type token struct {
	typ   tokenType
	value string
	line  int
}

// lexer splits a stream into tokens. Comments run from ';' to the end of
// the line.
type lexer struct {
	r      *bufio.Reader
	peeked *rune
	line   int
}

func newLexer(r io.Reader) *lexer {
	return &lexer{r: bufio.NewReader(r), line: 1}
}

func (l *lexer) syntax(format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", l.line, fmt.Sprintf(format, args...), ErrSyntax)
}

func (l *lexer) next() (token, error) {
	for {
		ch, err := l.peek()
		if err == io.EOF {
			return token{typ: tokenEOF, line: l.line}, nil
		}
		if err != nil {
			return token{}, err
		}
		switch {
		case unicode.IsSpace(ch):
			l.read()
			continue
		case ch == ';':
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}
		break
	}

	ch, _ := l.peek()
	switch ch {
	case '(':
		l.read()
		return token{typ: tokenOpen, value: "(", line: l.line}, nil
	case ')':
		l.read()
		return token{typ: tokenClose, value: ")", line: l.line}, nil
	case '"':
		return l.readString()
	default:
		return l.readSymbol()
	}
}

func (l *lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	ch, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	l.peeked = &ch
	return ch, nil
}

func (l *lexer) read() (rune, error) {
	if l.peeked != nil {
		ch := *l.peeked
		l.peeked = nil
		if ch == '\n' {
			l.line++
		}
		return ch, nil
	}
	ch, _, err := l.r.ReadRune()
	if err == nil && ch == '\n' {
		l.line++
	}
	return ch, err
}

func (l *lexer) readString() (token, error) {
	start := l.line
	l.read()
	var out []rune
	for {
		ch, err := l.read()
		if err == io.EOF {
			return token{}, fmt.Errorf("line %d: unterminated string: %w", start, ErrSyntax)
		}
		if err != nil {
			return token{}, err
		}
		switch ch {
		case '"':
			return token{typ: tokenString, value: string(out), line: start}, nil
		case '\\':
			next, err := l.read()
			if err != nil {
				return token{}, l.syntax("input ends after backslash")
			}
			switch next {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, next)
			}
		default:
			out = append(out, ch)
		}
	}
}

func (l *lexer) readSymbol() (token, error) {
	var out []rune
	for {
		ch, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return token{}, err
		}
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' || ch == ';' {
			break
		}
		l.read()
		out = append(out, ch)
	}
	if len(out) == 0 {
		return token{}, l.syntax("empty symbol")
	}
	return token{typ: tokenSymbol, value: string(out), line: l.line}, nil
}
