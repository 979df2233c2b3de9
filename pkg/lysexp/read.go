package lysexp

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// Read rebuilds a dump into a new layout bound to t and returns it with
// its top cell.
func Read(r io.Reader, t *tech.Technology) (*layout.Layout, *layout.Cell, error) {
	p := NewParser(r)
	head, err := p.Next()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("lysexp: empty input: %w", ErrSyntax)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lysexp: %w", err)
	}
	if err := checkHeader(head, t); err != nil {
		return nil, nil, err
	}

	ly := layout.New(t)
	cells := make(map[string]*layout.Cell)
	var top *layout.Cell
	for {
		s, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("lysexp: %w", err)
		}
		c, err := readCell(ly, cells, s)
		if err != nil {
			return nil, nil, err
		}
		top = c
	}
	if top == nil {
		return nil, nil, fmt.Errorf("lysexp: dump has no cells: %w", ErrSyntax)
	}
	return ly, top, nil
}

func syntax(s Sexp, format string, args ...any) error {
	return fmt.Errorf("lysexp: %s in %.40s: %w", fmt.Sprintf(format, args...), s.String(), ErrSyntax)
}

func asList(s Sexp, head string) (*List, error) {
	l, ok := s.(*List)
	if !ok || l.Head() != head {
		return nil, syntax(s, "expected (%s …)", head)
	}
	return l, nil
}

func atom(s Sexp) (string, bool) {
	a, ok := s.(*Atom)
	if !ok {
		return "", false
	}
	return a.Value, true
}

func ints(args []Sexp, n int) ([]int, error) {
	if len(args) < n {
		return nil, fmt.Errorf("lysexp: want %d numbers, have %d: %w", n, len(args), ErrSyntax)
	}
	out := make([]int, n)
	for i := range out {
		v, ok := atom(args[i])
		if !ok {
			return nil, syntax(args[i], "expected a number")
		}
		x, err := strconv.Atoi(v)
		if err != nil {
			return nil, syntax(args[i], "bad integer %q", v)
		}
		out[i] = x
	}
	return out, nil
}

func checkHeader(s Sexp, t *tech.Technology) error {
	l, err := asList(s, "layout")
	if err != nil {
		return err
	}
	if tl := l.Sub("technology"); tl != nil && len(tl.Args()) == 1 {
		if name, _ := atom(tl.Args()[0]); name != t.Name {
			return fmt.Errorf("lysexp: dump is for technology %q, not %q: %w", name, t.Name, pdkerr.ErrLookup)
		}
	}
	dl := l.Sub("dbu")
	if dl == nil || len(dl.Args()) != 1 {
		return syntax(s, "missing dbu")
	}
	v, _ := atom(dl.Args()[0])
	dbu, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return syntax(dl, "bad dbu %q", v)
	}
	if math.Abs(dbu-t.DBU) > 1e-12 {
		return fmt.Errorf("lysexp: dump grid %g differs from technology grid %g: %w", dbu, t.DBU, pdkerr.ErrLookup)
	}
	return nil
}

func readCell(ly *layout.Layout, cells map[string]*layout.Cell, s Sexp) (*layout.Cell, error) {
	l, err := asList(s, "cell")
	if err != nil {
		return nil, err
	}
	args := l.Args()
	if len(args) == 0 {
		return nil, syntax(s, "cell without a name")
	}
	name, _ := atom(args[0])
	if _, dup := cells[name]; dup {
		return nil, syntax(s, "cell %q defined twice", name)
	}
	c := ly.CreateCell(name)
	cells[name] = c

	for _, it := range args[1:] {
		sub, ok := it.(*List)
		if !ok {
			return nil, syntax(it, "expected a list")
		}
		switch sub.Head() {
		case "layer":
			if err := readLayer(c, sub); err != nil {
				return nil, err
			}
		case "instance":
			if err := readInstance(c, cells, sub); err != nil {
				return nil, err
			}
		default:
			return nil, syntax(sub, "unknown cell item %q", sub.Head())
		}
	}
	return c, nil
}

func readLayer(c *layout.Cell, l *List) error {
	args := l.Args()
	if len(args) < 3 {
		return syntax(l, "layer needs name, number and datatype")
	}
	name, _ := atom(args[0])
	nd, err := ints(args[1:], 2)
	if err != nil {
		return err
	}
	info, err := c.Layout().Tech.Layer(name)
	if err != nil {
		return err
	}
	if info.Number != nd[0] || info.Datatype != nd[1] {
		return fmt.Errorf("lysexp: layer %s is %d/%d, dump says %d/%d: %w",
			name, info.Number, info.Datatype, nd[0], nd[1], pdkerr.ErrLookup)
	}
	for _, it := range args[3:] {
		s, err := readShape(it)
		if err != nil {
			return err
		}
		if err := c.Insert(name, s); err != nil {
			return err
		}
	}
	return nil
}

func readPoints(items []Sexp) ([]geom.Point, error) {
	out := make([]geom.Point, 0, len(items))
	for _, it := range items {
		l, err := asList(it, "pt")
		if err != nil {
			return nil, err
		}
		xy, err := ints(l.Args(), 2)
		if err != nil {
			return nil, err
		}
		out = append(out, geom.Point{X: xy[0], Y: xy[1]})
	}
	return out, nil
}

func readShape(s Sexp) (layout.Shape, error) {
	l, ok := s.(*List)
	if !ok {
		return nil, syntax(s, "expected a shape")
	}
	args := l.Args()
	switch l.Head() {
	case "polygon":
		if len(args) == 0 {
			return nil, syntax(s, "polygon without hull")
		}
		hl, err := asList(args[0], "hull")
		if err != nil {
			return nil, err
		}
		hull, err := readPoints(hl.Args())
		if err != nil {
			return nil, err
		}
		var holes [][]geom.Point
		for _, it := range args[1:] {
			h, err := asList(it, "hole")
			if err != nil {
				return nil, err
			}
			pts, err := readPoints(h.Args())
			if err != nil {
				return nil, err
			}
			holes = append(holes, pts)
		}
		return layout.NewPolygon(hull, holes...)
	case "path":
		w, err := ints(args, 1)
		if err != nil {
			return nil, err
		}
		pts, err := readPoints(args[1:])
		if err != nil {
			return nil, err
		}
		return layout.NewPath(pts, w[0])
	case "box":
		v, err := ints(args, 4)
		if err != nil {
			return nil, err
		}
		return &layout.Box{Box: geom.NewBox(geom.Point{X: v[0], Y: v[1]}, geom.Point{X: v[2], Y: v[3]})}, nil
	case "text":
		if len(args) != 6 {
			return nil, syntax(s, "text needs string, x, y, size, alignment and rotation")
		}
		str, _ := atom(args[0])
		v, err := ints(args[1:], 5)
		if err != nil {
			return nil, err
		}
		return &layout.Text{String: str, Pos: geom.Point{X: v[0], Y: v[1]}, Size: v[2], HAlign: layout.HAlign(v[3]), Rot: v[4]}, nil
	}
	return nil, syntax(s, "unknown shape %q", l.Head())
}

func readInstance(c *layout.Cell, cells map[string]*layout.Cell, l *List) error {
	args := l.Args()
	if len(args) != 5 {
		return syntax(l, "instance needs cell, angle, mirror, dx and dy")
	}
	name, _ := atom(args[0])
	child, ok := cells[name]
	if !ok {
		return fmt.Errorf("lysexp: instance of %q before its definition: %w", name, pdkerr.ErrLookup)
	}
	a, err := ints(args[1:2], 1)
	if err != nil {
		return err
	}
	m, _ := atom(args[2])
	mirror, err := strconv.ParseBool(m)
	if err != nil {
		return syntax(l, "bad mirror flag %q", m)
	}
	d, err := ints(args[3:], 2)
	if err != nil {
		return err
	}
	tr, err := geom.NewTransform(a[0], mirror, geom.Vector{X: d[0], Y: d[1]})
	if err != nil {
		return syntax(l, "%v", err)
	}
	_, err = c.AddInstance(child, tr)
	return err
}
