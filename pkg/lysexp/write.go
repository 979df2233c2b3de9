package lysexp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
)

// Write dumps top and every cell below it.
func Write(w io.Writer, top *layout.Cell) error {
	bw := bufio.NewWriter(w)
	ly := top.Layout()
	fmt.Fprintf(bw, "(layout (technology %s) (dbu %s))\n",
		quote(ly.Tech.Name), strconv.FormatFloat(ly.DBU, 'g', -1, 64))
	for _, c := range postOrder(top) {
		writeCell(bw, c)
	}
	return bw.Flush()
}

// postOrder lists the cells under top, each once, children first.
func postOrder(top *layout.Cell) []*layout.Cell {
	var out []*layout.Cell
	seen := make(map[*layout.Cell]bool)
	var visit func(c *layout.Cell)
	visit = func(c *layout.Cell) {
		if seen[c] {
			return
		}
		seen[c] = true
		for _, inst := range c.Instances() {
			visit(inst.Cell)
		}
		out = append(out, c)
	}
	visit(top)
	return out
}

func writeCell(w *bufio.Writer, c *layout.Cell) {
	fmt.Fprintf(w, "(cell %s", quote(c.Name()))
	for _, l := range c.Layout().Tech.Layers() {
		shapes := c.Shapes(l.Name)
		if len(shapes) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  (layer %s %d %d", quote(l.Name), l.Number, l.Datatype)
		for _, s := range shapes {
			w.WriteString("\n    ")
			writeShape(w, s)
		}
		w.WriteByte(')')
	}
	for _, inst := range c.Instances() {
		t := inst.Trans
		fmt.Fprintf(w, "\n  (instance %s %d %t %d %d)", quote(inst.Cell.Name()), t.Angle(), t.Mirror, t.Disp.X, t.Disp.Y)
	}
	w.WriteString(")\n")
}

func writePoints(w *bufio.Writer, pts []geom.Point) {
	for i, p := range pts {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "(pt %d %d)", p.X, p.Y)
	}
}

func writeShape(w *bufio.Writer, s layout.Shape) {
	switch v := s.(type) {
	case *layout.Polygon:
		w.WriteString("(polygon (hull ")
		writePoints(w, v.Hull)
		w.WriteByte(')')
		for _, h := range v.Holes {
			w.WriteString(" (hole ")
			writePoints(w, h)
			w.WriteByte(')')
		}
		w.WriteByte(')')
	case *layout.Path:
		fmt.Fprintf(w, "(path %d ", v.Width)
		writePoints(w, v.Points)
		w.WriteByte(')')
	case *layout.Box:
		fmt.Fprintf(w, "(box %d %d %d %d)", v.Min.X, v.Min.Y, v.Max.X, v.Max.Y)
	case *layout.Text:
		fmt.Fprintf(w, "(text %s %d %d %d %d %d)", quote(v.String), v.Pos.X, v.Pos.Y, v.Size, v.HAlign, v.Rot)
	}
}
