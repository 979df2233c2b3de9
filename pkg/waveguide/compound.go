package waveguide

import (
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// compound renders straights longer than two tapers plus slack as
// taper, multimode strip, taper. Bends and short straights stay singlemode.
func (lw *lowering) compound(v []geom.DPoint, bends []Bend, c *tech.Compound, slack float64) error {
	sm, mm := c.Singlemode.Layers, c.Multimode.Layers
	lt := c.TaperLength
	n := len(v)

	var cur []geom.DPoint
	flush := func() error {
		err := lw.piece(cur, sm, nil, Singlemode)
		cur = nil
		return err
	}
	for j := 0; j < n-1; j++ {
		a, b := v[j], v[j+1]
		if j >= 1 {
			a = bends[j-1].Points[len(bends[j-1].Points)-1]
		}
		if j+1 <= n-2 {
			b = bends[j].Points[0]
		}
		if b.Dist(a) > 2*lt+slack {
			cur = append(cur, a)
			if err := flush(); err != nil {
				return err
			}
			u := b.Sub(a).Unit()
			a2, b2 := a.Add(u.Scale(lt)), b.Sub(u.Scale(lt))
			if err := lw.piece([]geom.DPoint{a, a2}, sm, mm, Taper); err != nil {
				return err
			}
			if err := lw.piece([]geom.DPoint{a2, b2}, mm, nil, Multimode); err != nil {
				return err
			}
			if err := lw.piece([]geom.DPoint{b2, b}, mm, sm, Taper); err != nil {
				return err
			}
			cur = []geom.DPoint{b}
		} else {
			cur = append(cur, a, b)
		}
		if j+1 <= n-2 {
			cur = append(cur, bends[j].Points...)
		}
	}
	return flush()
}
