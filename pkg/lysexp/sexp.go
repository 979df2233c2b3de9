// Package lysexp dumps layouts as S-expressions and reads them back.
//
// A dump is a header followed by every cell reachable from the top cell,
// children before parents, so a streaming reader can resolve instances as
// it goes:
//
//	(layout (technology "EBeam") (dbu 0.001))
//	(cell "Waveguide_Straight"
//	  (layer "Si" 1 0
//	    (polygon (hull (pt 0 -250) (pt 10000 -250) …) (hole …))
//	    (path 500 (pt -100 0) (pt 100 0))
//	    (box 0 0 100 100)
//	    (text "opt1" 0 0 100 0 0)))
//	(cell "top"
//	  (instance "Waveguide_Straight" 90 false 0 0))
//
// Coordinates are database units; the last cell is the top cell.
package lysexp

import "strings"

// Sexp is a node of a parsed expression: an *Atom or a *List.
type Sexp interface {
	String() string
}

// Atom is a bare symbol or a quoted string.
type Atom struct {
	Value  string
	Quoted bool
}

func (a *Atom) String() string {
	if a.Quoted {
		return quote(a.Value)
	}
	return a.Value
}

// List is a parenthesized sequence.
type List struct {
	Items []Sexp
}

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, it := range l.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(it.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Head returns the leading symbol of the list, or "" if it has none.
func (l *List) Head() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(*Atom); ok && !a.Quoted {
		return a.Value
	}
	return ""
}

// Args returns the items after the head.
func (l *List) Args() []Sexp {
	if len(l.Items) == 0 {
		return nil
	}
	return l.Items[1:]
}

// Sub returns the first child list whose head is name.
func (l *List) Sub(name string) *List {
	for _, it := range l.Items {
		if c, ok := it.(*List); ok && c.Head() == name {
			return c
		}
	}
	return nil
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}
