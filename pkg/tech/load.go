package tech

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

//go:embed data
var embedded embed.FS

// DefaultName is the technology shipped with the module.
const DefaultName = "EBeam"

// Load reads <name>/<name>.lyt from fsys together with the waveguide
// definitions file it references, relative to the same directory.
func Load(fsys fs.FS, name string) (*Technology, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, loadErr("invalid technology name %q", name)
	}
	lytPath := path.Join(name, name+".lyt")
	f, err := fsys.Open(lytPath)
	if err != nil {
		return nil, fmt.Errorf("tech: open %s: %w: %w", lytPath, pdkerr.ErrTechnologyLoad, err)
	}
	doc, err := decodeTechnology(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	if doc.Name != "" && doc.Name != name {
		return nil, loadErr("%s declares technology %q", lytPath, doc.Name)
	}
	dbu := doc.DBU
	if dbu == 0 {
		dbu = 0.001
	}
	if dbu < 0 {
		return nil, loadErr("%s: dbu %g must be positive", lytPath, dbu)
	}

	t := newTechnology(name, strings.TrimSpace(doc.Description), dbu)
	for _, l := range doc.Layers {
		num, dt, err := parseSource(l.Source)
		if err != nil {
			return nil, err
		}
		err = t.addLayer(LayerInfo{
			Name:        strings.TrimSpace(l.Name),
			Number:      num,
			Datatype:    dt,
			FillColor:   l.FillColor,
			FrameColor:  l.FrameColor,
			Description: strings.TrimSpace(l.Description),
		})
		if err != nil {
			return nil, err
		}
	}

	wgFile := strings.TrimSpace(doc.Waveguides)
	if wgFile == "" {
		return nil, loadErr("%s does not reference a waveguide definitions file", lytPath)
	}
	wgPath := path.Join(name, wgFile)
	wf, err := fsys.Open(wgPath)
	if err != nil {
		return nil, fmt.Errorf("tech: open %s: %w: %w", wgPath, pdkerr.ErrTechnologyLoad, err)
	}
	wdoc, err := decodeWaveguides(wf)
	wf.Close()
	if err != nil {
		return nil, err
	}
	for _, w := range wdoc.Waveguides {
		wt, err := w.waveguideType()
		if err != nil {
			return nil, err
		}
		if err := t.addWaveguide(wt); err != nil {
			return nil, err
		}
	}
	if err := t.link(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadDir loads a technology from a directory tree on disk that contains
// <name>/<name>.lyt.
func LoadDir(dir, name string) (*Technology, error) {
	return Load(os.DirFS(dir), name)
}

// LoadDefault loads one of the technologies embedded in the binary.
func LoadDefault(name string) (*Technology, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("tech: embedded data: %w: %w", pdkerr.ErrTechnologyLoad, err)
	}
	return Load(sub, name)
}

// MustLoadDefault is LoadDefault for the technologies compiled into the
// binary, which are known to be valid.
func MustLoadDefault(name string) *Technology {
	t, err := LoadDefault(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Embedded lists the technology names compiled into the binary.
func Embedded() []string {
	entries, err := embedded.ReadDir("data")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
