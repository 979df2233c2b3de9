package compose

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// Move is one turtle step: go Length µm along the current heading, then
// turn by Turn degrees (positive is counter-clockwise).
type Move struct {
	Length float64
	Turn   int
}

// Turtle is a sequence of moves starting at a port and heading out of it.
type Turtle []Move

// ParseTurtle reads a flat [length, turn, length, turn, …] list. Turns are
// ±90 degrees; the last move may have a zero turn to end on a straight.
func ParseTurtle(vals []float64) (Turtle, error) {
	if len(vals)%2 != 0 {
		return nil, fmt.Errorf("compose: turtle needs length/turn pairs, got %d values: %w", len(vals), pdkerr.ErrComposition)
	}
	t := make(Turtle, 0, len(vals)/2)
	for i := 0; i < len(vals); i += 2 {
		turn := int(vals[i+1])
		if float64(turn) != vals[i+1] {
			return nil, fmt.Errorf("compose: turtle turn %g is not whole: %w", vals[i+1], pdkerr.ErrComposition)
		}
		t = append(t, Move{Length: vals[i], Turn: turn})
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks lengths and turn angles.
func (t Turtle) Validate() error {
	for i, m := range t {
		if m.Length < 0 {
			return fmt.Errorf("compose: turtle move %d has negative length %g: %w", i, m.Length, pdkerr.ErrComposition)
		}
		switch {
		case m.Turn == 90 || m.Turn == -90:
		case m.Turn == 0 && i == len(t)-1:
		default:
			return fmt.Errorf("compose: turtle move %d turns %d degrees, only ±90 allowed: %w", i, m.Turn, pdkerr.ErrComposition)
		}
	}
	return nil
}

// Values returns the flat list form.
func (t Turtle) Values() []float64 {
	out := make([]float64, 0, 2*len(t))
	for _, m := range t {
		out = append(out, m.Length, float64(m.Turn))
	}
	return out
}

// walk runs the turtle from pos heading along angle (both in dbu and
// degrees) and returns the visited points, starting with pos, and the
// final heading.
func (t Turtle) walk(pos geom.Point, angle int, dbu float64) ([]geom.Point, int) {
	pts := []geom.Point{pos}
	for _, m := range t {
		step := geom.Round(m.Length / dbu)
		if step > 0 {
			pos = pos.Add(geom.CardinalVector(angle).Scale(step))
			pts = append(pts, pos)
		}
		angle = geom.NormAngle(angle + m.Turn)
	}
	return pts, angle
}
