package tech

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

// technologyXML mirrors the technology descriptor file.
type technologyXML struct {
	XMLName     xml.Name   `xml:"technology"`
	Name        string     `xml:"name"`
	Description string     `xml:"description"`
	DBU         float64    `xml:"dbu"`
	Layers      []layerXML `xml:"layers>layer"`
	Waveguides  string     `xml:"waveguides"`
}

type layerXML struct {
	Name        string `xml:"name"`
	Source      string `xml:"source"`
	FillColor   string `xml:"fill-color"`
	FrameColor  string `xml:"frame-color"`
	Description string `xml:"description"`
}

// waveguidesXML mirrors the waveguide definitions file.
type waveguidesXML struct {
	XMLName    xml.Name       `xml:"waveguides"`
	Waveguides []waveguideXML `xml:"waveguide"`
}

type waveguideXML struct {
	Name       string         `xml:"name"`
	Radius     float64        `xml:"radius"`
	Width      float64        `xml:"width"`
	Adiabatic  string         `xml:"adiabatic"`
	Bezier     string         `xml:"bezier"`
	EulerP     string         `xml:"euler_p"`
	BendStyle  string         `xml:"bend_style"`
	Components []componentXML `xml:"component"`
	Compound   *compoundXML   `xml:"compound_waveguide"`
	Model      string         `xml:"model"`
	CML        string         `xml:"CML"`
}

type componentXML struct {
	Layer  string  `xml:"layer"`
	Width  float64 `xml:"width"`
	Offset float64 `xml:"offset"`
}

type compoundXML struct {
	Singlemode  string  `xml:"singlemode"`
	Multimode   string  `xml:"multimode"`
	TaperLength float64 `xml:"taper_length"`
}

func loadErr(format string, args ...any) error {
	return fmt.Errorf("tech: "+format+": %w", append(args, pdkerr.ErrTechnologyLoad)...)
}

func decodeTechnology(r io.Reader) (*technologyXML, error) {
	var doc technologyXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("tech: decode technology: %w: %w", pdkerr.ErrTechnologyLoad, err)
	}
	return &doc, nil
}

func decodeWaveguides(r io.Reader) (*waveguidesXML, error) {
	var doc waveguidesXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("tech: decode waveguides: %w: %w", pdkerr.ErrTechnologyLoad, err)
	}
	return &doc, nil
}

// parseSource splits a "number/datatype" layer source.
func parseSource(s string) (int, int, error) {
	num, dt, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, loadErr("layer source %q is not number/datatype", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 0 {
		return 0, 0, loadErr("layer source %q has invalid number", s)
	}
	d, err := strconv.Atoi(strings.TrimSpace(dt))
	if err != nil || d < 0 {
		return 0, 0, loadErr("layer source %q has invalid datatype", s)
	}
	return n, d, nil
}

func optionalBool(field, s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, loadErr("%s %q is not a boolean", field, s)
	}
	return v, nil
}

func optionalFloat(field, s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, loadErr("%s %q is not a number", field, s)
	}
	return v, nil
}

// waveguideType converts one XML entry. Compound references are linked
// later, once every entry is known.
func (w waveguideXML) waveguideType() (*WaveguideType, error) {
	name := strings.TrimSpace(w.Name)
	adiabatic, err := optionalBool(name+": adiabatic", w.Adiabatic)
	if err != nil {
		return nil, err
	}
	bz, err := optionalFloat(name+": bezier", w.Bezier, DefaultBezier)
	if err != nil {
		return nil, err
	}
	ep, err := optionalFloat(name+": euler_p", w.EulerP, DefaultEulerP)
	if err != nil {
		return nil, err
	}
	var style BendStyle
	switch s := strings.TrimSpace(w.BendStyle); {
	case s != "":
		style, err = ParseBendStyle(s)
		if err != nil {
			return nil, loadErr("%s: %v", name, err)
		}
	case adiabatic && strings.TrimSpace(w.EulerP) != "":
		style = BendAdiabatic
	case adiabatic:
		style = BendBezier
	}

	wt := &WaveguideType{
		Name:   name,
		Width:  w.Width,
		Radius: w.Radius,
		Style:  style,
		Bezier: bz,
		EulerP: ep,
		Model:  strings.TrimSpace(w.Model),
		CML:    strings.TrimSpace(w.CML),
	}
	for _, c := range w.Components {
		wt.Layers = append(wt.Layers, WaveguideLayer{
			Layer:  strings.TrimSpace(c.Layer),
			Width:  c.Width,
			Offset: c.Offset,
		})
	}
	if w.Compound != nil {
		wt.Compound = &Compound{
			SinglemodeName: strings.TrimSpace(w.Compound.Singlemode),
			MultimodeName:  strings.TrimSpace(w.Compound.Multimode),
			TaperLength:    w.Compound.TaperLength,
		}
	}
	return wt, nil
}
