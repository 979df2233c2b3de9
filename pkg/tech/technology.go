// Package tech holds the technology registry: the mask layer table and the
// waveguide cross-sections, loaded from KLayout-style XML descriptors.
package tech

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// Reserved layer names used by the generator itself.
const (
	LayerSi         = "Si"
	LayerPinRec     = "PinRec"
	LayerPinRecM    = "PinRecM"
	LayerDevRec     = "DevRec"
	LayerErrors     = "Errors"
	LayerFbrTgt     = "FbrTgt"
	LayerText       = "Text"
	LayerDeepTrench = "Deep Trench"
	LayerM1Heater   = "M1_heater"
	LayerM2Router   = "M2_router"
	LayerMOpen      = "M_Open"
)

// LayerInfo is one row of the layer table.
type LayerInfo struct {
	Index       int // position in the table
	Name        string
	Number      int
	Datatype    int
	FillColor   string
	FrameColor  string
	Description string
}

func (l LayerInfo) String() string {
	return fmt.Sprintf("%s (%d/%d)", l.Name, l.Number, l.Datatype)
}

type layerKey struct{ number, datatype int }

// Technology is read-only after loading and safe for concurrent readers.
type Technology struct {
	Name        string
	Description string
	DBU         float64 // µm per database unit

	layers   []LayerInfo
	byName   map[string]int
	byNumber map[layerKey]int

	waveguides []*WaveguideType
	wgByName   map[string]int
}

func newTechnology(name, desc string, dbu float64) *Technology {
	return &Technology{
		Name:        name,
		Description: desc,
		DBU:         dbu,
		byName:      make(map[string]int),
		byNumber:    make(map[layerKey]int),
		wgByName:    make(map[string]int),
	}
}

func (t *Technology) addLayer(l LayerInfo) error {
	if l.Name == "" {
		return loadErr("layer %d/%d has no name", l.Number, l.Datatype)
	}
	if _, dup := t.byName[l.Name]; dup {
		return loadErr("duplicate layer name %q", l.Name)
	}
	k := layerKey{l.Number, l.Datatype}
	if i, dup := t.byNumber[k]; dup {
		return loadErr("layers %q and %q share %d/%d", t.layers[i].Name, l.Name, l.Number, l.Datatype)
	}
	l.Index = len(t.layers)
	t.byName[l.Name] = l.Index
	t.byNumber[k] = l.Index
	t.layers = append(t.layers, l)
	return nil
}

func (t *Technology) addWaveguide(w *WaveguideType) error {
	if err := w.check(); err != nil {
		return loadErr("waveguide %q: %v", w.Name, err)
	}
	if _, dup := t.wgByName[w.Name]; dup {
		return loadErr("duplicate waveguide name %q", w.Name)
	}
	for _, l := range w.Layers {
		if _, ok := t.byName[l.Layer]; !ok {
			return loadErr("waveguide %q uses unknown layer %q", w.Name, l.Layer)
		}
	}
	w.ID = len(t.waveguides)
	t.wgByName[w.Name] = w.ID
	t.waveguides = append(t.waveguides, w)
	return nil
}

// link resolves compound references once the whole table is known.
func (t *Technology) link() error {
	for _, w := range t.waveguides {
		c := w.Compound
		if c == nil {
			continue
		}
		sm, err := t.Waveguide(c.SinglemodeName)
		if err != nil {
			return loadErr("compound %q: singlemode %q not defined", w.Name, c.SinglemodeName)
		}
		mm, err := t.Waveguide(c.MultimodeName)
		if err != nil {
			return loadErr("compound %q: multimode %q not defined", w.Name, c.MultimodeName)
		}
		if sm.IsCompound() || mm.IsCompound() {
			return loadErr("compound %q references another compound type", w.Name)
		}
		c.Singlemode, c.Multimode = sm, mm
	}
	return nil
}

// Layer looks a layer up by its case-sensitive name.
func (t *Technology) Layer(name string) (LayerInfo, error) {
	i, ok := t.byName[name]
	if !ok {
		return LayerInfo{}, fmt.Errorf("tech: layer %q not in %s: %w", name, t.Name, pdkerr.ErrLookup)
	}
	return t.layers[i], nil
}

// LayerByNumber looks a layer up by its number/datatype pair.
func (t *Technology) LayerByNumber(number, datatype int) (LayerInfo, error) {
	i, ok := t.byNumber[layerKey{number, datatype}]
	if !ok {
		return LayerInfo{}, fmt.Errorf("tech: layer %d/%d not in %s: %w", number, datatype, t.Name, pdkerr.ErrLookup)
	}
	return t.layers[i], nil
}

// Layers returns the layer table in file order.
func (t *Technology) Layers() []LayerInfo {
	return append([]LayerInfo(nil), t.layers...)
}

// Waveguide looks a waveguide type up by its case-sensitive name.
func (t *Technology) Waveguide(name string) (*WaveguideType, error) {
	i, ok := t.wgByName[name]
	if !ok {
		return nil, fmt.Errorf("tech: waveguide %q not in %s: %w", name, t.Name, pdkerr.ErrLookup)
	}
	return t.waveguides[i], nil
}

// WaveguideID maps a waveguide name to its integer identifier.
func (t *Technology) WaveguideID(name string) (int, error) {
	w, err := t.Waveguide(name)
	if err != nil {
		return -1, err
	}
	return w.ID, nil
}

// WaveguideByID is the O(1) lookup behind resolved PCell parameters.
func (t *Technology) WaveguideByID(id int) (*WaveguideType, error) {
	if id < 0 || id >= len(t.waveguides) {
		return nil, fmt.Errorf("tech: waveguide id %d not in %s: %w", id, t.Name, pdkerr.ErrLookup)
	}
	return t.waveguides[id], nil
}

// Waveguides lists the waveguide names in definition-file order.
func (t *Technology) Waveguides() []string {
	names := make([]string, len(t.waveguides))
	for i, w := range t.waveguides {
		names[i] = w.Name
	}
	return names
}
