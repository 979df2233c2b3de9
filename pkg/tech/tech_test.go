package tech

import (
	"encoding/xml"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

func TestLoadDefaultLayers(t *testing.T) {
	tc, err := LoadDefault(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, "EBeam", tc.Name)
	assert.Equal(t, 0.001, tc.DBU)

	si, err := tc.Layer(LayerSi)
	require.NoError(t, err)
	assert.Equal(t, 1, si.Number)
	assert.Equal(t, 0, si.Datatype)

	pin, err := tc.LayerByNumber(1, 10)
	require.NoError(t, err)
	assert.Equal(t, LayerPinRec, pin.Name)

	for _, name := range []string{LayerPinRecM, LayerDevRec, LayerErrors, LayerFbrTgt, LayerText, LayerDeepTrench, LayerM1Heater, LayerM2Router, LayerMOpen} {
		_, err := tc.Layer(name)
		assert.NoError(t, err, name)
	}

	_, err = tc.Layer("si")
	assert.ErrorIs(t, err, pdkerr.ErrLookup, "names are case sensitive")
	_, err = tc.LayerByNumber(7, 7)
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
}

// Waveguide names come back in the same order as a plain decode of the
// definitions file.
func TestWaveguideListMatchesFile(t *testing.T) {
	tc, err := LoadDefault(DefaultName)
	require.NoError(t, err)

	raw, err := embedded.ReadFile("data/EBeam/WAVEGUIDES.xml")
	require.NoError(t, err)
	var doc struct {
		Entries []struct {
			Name string `xml:"name"`
		} `xml:"waveguide"`
	}
	require.NoError(t, xml.Unmarshal(raw, &doc))
	var want []string
	for _, e := range doc.Entries {
		want = append(want, e.Name)
	}
	require.NotEmpty(t, want)
	assert.Equal(t, want, tc.Waveguides())
	assert.Equal(t, tc.Waveguides(), tc.Waveguides())

	again, err := LoadDefault(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, tc.Waveguides(), again.Waveguides())
}

func TestWaveguideLookup(t *testing.T) {
	tc := MustLoadDefault(DefaultName)

	wg, err := tc.Waveguide("Strip TE 1550 nm, w=500 nm")
	require.NoError(t, err)
	assert.Equal(t, 0.5, wg.Width)
	assert.Equal(t, 5.0, wg.Radius)
	assert.Equal(t, BendCircular, wg.Style)
	require.Len(t, wg.Layers, 2)
	assert.Equal(t, LayerSi, wg.Layers[0].Layer)

	id, err := tc.WaveguideID(wg.Name)
	require.NoError(t, err)
	byID, err := tc.WaveguideByID(id)
	require.NoError(t, err)
	assert.Same(t, wg, byID)

	bz, err := tc.Waveguide("Strip TE 1550 nm, w=500 nm, Bezier")
	require.NoError(t, err)
	assert.Equal(t, BendBezier, bz.Style)
	assert.Equal(t, 0.2, bz.Bezier)

	eu, err := tc.Waveguide("Strip TE 1550 nm, w=500 nm, Euler")
	require.NoError(t, err)
	assert.Equal(t, BendAdiabatic, eu.Style)
	assert.Equal(t, 0.25, eu.EulerP)

	cp, err := tc.Waveguide("Strip TE 1550 nm, w=500 nm, compound")
	require.NoError(t, err)
	require.True(t, cp.IsCompound())
	assert.Same(t, wg, cp.Compound.Singlemode)
	assert.Equal(t, 2.0, cp.Compound.Multimode.Width)
	assert.Equal(t, 10.0, cp.Compound.TaperLength)

	_, err = tc.Waveguide("Strip TE 1550 nm, w=500nm")
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
	_, err = tc.WaveguideByID(len(tc.Waveguides()))
	assert.ErrorIs(t, err, pdkerr.ErrLookup)
}

const testLyt = `<technology><name>T</name><dbu>0.001</dbu>
<layers>
<layer><name>Si</name><source>1/0</source></layer>
<layer><name>DevRec</name><source>68/0</source></layer>
</layers>
<waveguides>wg.xml</waveguides></technology>`

func techFS(lyt, wg string) fstest.MapFS {
	return fstest.MapFS{
		"T/T.lyt":  {Data: []byte(lyt)},
		"T/wg.xml": {Data: []byte(wg)},
	}
}

func TestLoadErrors(t *testing.T) {
	okWG := `<waveguides><waveguide><name>a</name><radius>5</radius><width>0.5</width>
<component><layer>Si</layer><width>0.5</width><offset>0</offset></component></waveguide></waveguides>`

	tc, err := Load(techFS(testLyt, okWG), "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tc.Waveguides())

	cases := map[string]fstest.MapFS{
		"missing technology": {},
		"missing waveguides": {"T/T.lyt": {Data: []byte(testLyt)}},
		"malformed xml":      techFS(testLyt, `<waveguides><waveguide>`),
		"duplicate layer number": techFS(`<technology><name>T</name><layers>
<layer><name>A</name><source>1/0</source></layer>
<layer><name>B</name><source>1/0</source></layer></layers><waveguides>wg.xml</waveguides></technology>`, okWG),
		"bad source": techFS(`<technology><name>T</name><layers>
<layer><name>A</name><source>1</source></layer></layers><waveguides>wg.xml</waveguides></technology>`, okWG),
		"unknown layer": techFS(testLyt, `<waveguides><waveguide><name>a</name><radius>5</radius><width>0.5</width>
<component><layer>SiN</layer><width>0.5</width><offset>0</offset></component></waveguide></waveguides>`),
		"zero width": techFS(testLyt, `<waveguides><waveguide><name>a</name><radius>5</radius><width>0</width>
<component><layer>Si</layer><width>0.5</width><offset>0</offset></component></waveguide></waveguides>`),
		"radius below width": techFS(testLyt, `<waveguides><waveguide><name>a</name><radius>0.4</radius><width>0.5</width><bend_style>bezier</bend_style>
<component><layer>Si</layer><width>0.5</width><offset>0</offset></component></waveguide></waveguides>`),
		"duplicate waveguide": techFS(testLyt, `<waveguides>
<waveguide><name>a</name><radius>5</radius><width>0.5</width><component><layer>Si</layer><width>0.5</width><offset>0</offset></component></waveguide>
<waveguide><name>a</name><radius>5</radius><width>0.5</width><component><layer>Si</layer><width>0.5</width><offset>0</offset></component></waveguide>
</waveguides>`),
		"dangling compound": techFS(testLyt, `<waveguides><waveguide><name>c</name><radius>5</radius><width>0.5</width>
<compound_waveguide><singlemode>x</singlemode><multimode>y</multimode><taper_length>10</taper_length></compound_waveguide></waveguide></waveguides>`),
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(fsys, "T")
			require.Error(t, err)
			assert.True(t, errors.Is(err, pdkerr.ErrTechnologyLoad), "got %v", err)
		})
	}
}

func TestNewWaveguideType(t *testing.T) {
	wt, err := NewWaveguideType("rib", []string{"Si", "Si_p6nm"}, []float64{0.5, 3}, []float64{0, 0}, 10, BendCircular)
	require.NoError(t, err)
	assert.Equal(t, 0.5, wt.Width)
	assert.Len(t, wt.Layers, 2)

	_, err = NewWaveguideType("rib", []string{"Si", "Si_p6nm"}, []float64{0.5}, []float64{0, 0}, 10, BendCircular)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)

	_, err = NewWaveguideType("w", []string{"Si"}, []float64{0.5}, []float64{0}, 0.3, BendAdiabatic)
	assert.ErrorIs(t, err, pdkerr.ErrParameterDomain)
}

func TestEmbeddedNames(t *testing.T) {
	assert.Contains(t, Embedded(), DefaultName)
}
