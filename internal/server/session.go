// Package server exposes the component library over HTTP. Each client
// opens a layout session, produces cells into it, places and routes them,
// and fetches the result as an s-expression dump.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.jetify.com/typeid/v2"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/compose"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/geom"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pin"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// PrefixLayout is the typeid prefix of session ids.
const PrefixLayout = "layout"

// ErrSessionLimit is returned when every session slot is taken.
var ErrSessionLimit = errors.New("too many open layouts")

// Session is one in-memory layout. Its methods serialize on the session.
type Session struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`

	mu  sync.Mutex
	ctx *pcell.Context
}

// Service owns the sessions of a technology and its component library.
type Service struct {
	tech   *tech.Technology
	lib    *pcell.Library
	tol    kernel.Tolerance
	logger *slog.Logger
	max    int

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(t *tech.Technology, lib *pcell.Library, tol kernel.Tolerance, logger *slog.Logger, maxSessions int) *Service {
	return &Service{
		tech:     t,
		lib:      lib,
		tol:      tol,
		logger:   logger,
		max:      maxSessions,
		sessions: make(map[string]*Session),
	}
}

func (s *Service) Technology() *tech.Technology { return s.tech }
func (s *Service) Library() *pcell.Library      { return s.lib }

// Open starts an empty layout.
func (s *Service) Open() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.max {
		return nil, fmt.Errorf("server: %d sessions open: %w", len(s.sessions), ErrSessionLimit)
	}
	id := typeid.MustGenerate(PrefixLayout).String()
	ctx := pcell.NewContext(layout.New(s.tech), s.lib, s.logger.With("layout", id))
	ctx.Tol = s.tol
	sess := &Session{ID: id, Created: time.Now().UTC(), ctx: ctx}
	s.sessions[id] = sess
	s.logger.Info("layout opened", "layout", id, "open", len(s.sessions))
	return sess, nil
}

func validateID(id string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("server: invalid layout id %q: %w", id, pdkerr.ErrLookup)
	}
	if parsed.Prefix() != PrefixLayout {
		return fmt.Errorf("server: id %q is not a layout: %w", id, pdkerr.ErrLookup)
	}
	return nil
}

// Get returns an open session.
func (s *Service) Get(id string) (*Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("server: no layout %s: %w", id, pdkerr.ErrLookup)
	}
	return sess, nil
}

// Close drops a session and its layout.
func (s *Service) Close(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("server: no layout %s: %w", id, pdkerr.ErrLookup)
	}
	delete(s.sessions, id)
	s.logger.Info("layout closed", "layout", id, "open", len(s.sessions))
	return nil
}

// PinInfo is a pin in µm.
type PinInfo struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
	Angle int     `json:"angle"`
	Kind  string  `json:"kind"`
}

// CellInfo summarizes a cell.
type CellInfo struct {
	Name      string            `json:"name"`
	BBox      []float64         `json:"bbox,omitempty"` // x1 y1 x2 y2 in µm
	Shapes    map[string]int    `json:"shapes"`
	Instances int               `json:"instances"`
	Pins      []PinInfo         `json:"pins"`
	Component string            `json:"component,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
}

func pinInfo(ly *layout.Layout, p pin.Pin) PinInfo {
	return PinInfo{
		Name:  p.Name,
		X:     ly.ToMicrons(p.Pos.X),
		Y:     ly.ToMicrons(p.Pos.Y),
		Width: ly.ToMicrons(p.Width),
		Angle: p.Angle,
		Kind:  p.Kind.String(),
	}
}

func describeCell(c *layout.Cell) CellInfo {
	ly := c.Layout()
	info := CellInfo{
		Name:      c.Name(),
		Shapes:    make(map[string]int),
		Instances: len(c.Instances()),
		Pins:      []PinInfo{},
	}
	if bb := c.BBox(); !bb.IsEmpty() {
		info.BBox = []float64{ly.ToMicrons(bb.Min.X), ly.ToMicrons(bb.Min.Y), ly.ToMicrons(bb.Max.X), ly.ToMicrons(bb.Max.Y)}
	}
	c.Each(func(l tech.LayerInfo, _ layout.Shape) { info.Shapes[l.Name]++ })
	for _, p := range pin.FindAll(c) {
		info.Pins = append(info.Pins, pinInfo(ly, p))
	}
	if rec, err := devrec.Extract(c); err == nil {
		info.Component = rec.Component
		info.Params = make(map[string]string, len(rec.Params))
		for _, p := range rec.Params {
			s := p.String()
			info.Params[p.Key] = s[len(p.Key)+1:]
		}
	}
	return info
}

// Produce creates a cell from a library component. On a failed produce the
// cell holds the error marker and is described alongside the error.
func (s *Session) Produce(component string, params map[string]any) (CellInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, err := s.ctx.Library.Create(s.ctx, component, params)
	if cell == nil {
		return CellInfo{}, err
	}
	return describeCell(cell), err
}

// NewCell creates an empty cell for composing instances into.
func (s *Session) NewCell(name string) CellInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return describeCell(s.ctx.Layout.CreateCell(name))
}

// Cell describes an existing cell.
func (s *Session) Cell(name string) (CellInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.ctx.Layout.Cell(name)
	if err != nil {
		return CellInfo{}, err
	}
	return describeCell(c), nil
}

// Cells lists the cell names in creation order.
func (s *Session) Cells() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, c := range s.ctx.Layout.Cells() {
		names = append(names, c.Name())
	}
	return names
}

// With runs fn while holding the session, for callers that need the cell
// tree itself.
func (s *Session) With(fn func(ctx *pcell.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctx)
}

// Placement asks for a child instance in a parent cell. With a Port the
// child's pin is snapped onto AnchorPort of the Anchor-th instance of the
// parent, or of the parent itself when Anchor is nil. Otherwise the child
// is placed by Angle, Mirror, X and Y (µm).
type Placement struct {
	Child      string  `json:"child"`
	Port       string  `json:"port,omitempty"`
	Anchor     *int    `json:"anchor,omitempty"`
	AnchorPort string  `json:"anchor_port,omitempty"`
	Angle      int     `json:"angle,omitempty"`
	Mirror     bool    `json:"mirror,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
}

// InstanceInfo is a placed instance and its pins in parent coordinates.
type InstanceInfo struct {
	Index     int       `json:"index"`
	Cell      string    `json:"cell"`
	Transform string    `json:"transform"`
	Pins      []PinInfo `json:"pins"`
}

func instanceRef(parent *layout.Cell, idx *int) (*layout.Instance, error) {
	if idx == nil {
		return nil, nil
	}
	insts := parent.Instances()
	if *idx < 0 || *idx >= len(insts) {
		return nil, fmt.Errorf("server: %s has no instance %d: %w", parent.Name(), *idx, pdkerr.ErrLookup)
	}
	return insts[*idx], nil
}

func describeInstance(parent *layout.Cell, inst *layout.Instance) InstanceInfo {
	ly := parent.Layout()
	info := InstanceInfo{Index: len(parent.Instances()) - 1, Cell: inst.Cell.Name(), Transform: inst.Trans.String(), Pins: []PinInfo{}}
	for _, p := range pin.FindAll(inst.Cell) {
		info.Pins = append(info.Pins, pinInfo(ly, p.Transformed(inst.Trans)))
	}
	return info
}

// Place instantiates a child cell into parent.
func (s *Session) Place(parentName string, pl Placement) (InstanceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ly := s.ctx.Layout
	parent, err := ly.Cell(parentName)
	if err != nil {
		return InstanceInfo{}, err
	}
	child, err := ly.Cell(pl.Child)
	if err != nil {
		return InstanceInfo{}, err
	}
	var inst *layout.Instance
	if pl.Port != "" {
		anchor, err := instanceRef(parent, pl.Anchor)
		if err != nil {
			return InstanceInfo{}, err
		}
		inst, err = compose.ConnectCell(parent, anchor, pl.AnchorPort, child, pl.Port)
		if err != nil {
			return InstanceInfo{}, err
		}
	} else {
		tr, err := geom.NewTransform(pl.Angle, pl.Mirror, geom.Vector{X: ly.ToDBU(pl.X), Y: ly.ToDBU(pl.Y)})
		if err != nil {
			return InstanceInfo{}, fmt.Errorf("server: placement: %w: %w", pdkerr.ErrParameterDomain, err)
		}
		inst, err = parent.AddInstance(child, tr)
		if err != nil {
			return InstanceInfo{}, err
		}
	}
	return describeInstance(parent, inst), nil
}

// Endpoint names a pin of an instance, or of the parent when Instance is
// nil.
type Endpoint struct {
	Instance *int   `json:"instance,omitempty"`
	Port     string `json:"port"`
}

// RouteRequest asks for a waveguide between two pins of a parent cell.
type RouteRequest struct {
	From      Endpoint  `json:"from"`
	To        Endpoint  `json:"to"`
	Waveguide string    `json:"waveguide"`
	TurtleA   []float64 `json:"turtle_a,omitempty"`
	TurtleB   []float64 `json:"turtle_b,omitempty"`
}

// RouteInfo describes a drawn route.
type RouteInfo struct {
	Cell   string       `json:"cell"`
	Points [][2]float64 `json:"points"`
	Length float64      `json:"length"`
}

// Route draws a waveguide inside parent.
func (s *Session) Route(parentName string, req RouteRequest) (RouteInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, err := s.ctx.Layout.Cell(parentName)
	if err != nil {
		return RouteInfo{}, err
	}
	a, err := instanceRef(parent, req.From.Instance)
	if err != nil {
		return RouteInfo{}, err
	}
	b, err := instanceRef(parent, req.To.Instance)
	if err != nil {
		return RouteInfo{}, err
	}
	ta, err := compose.ParseTurtle(req.TurtleA)
	if err != nil {
		return RouteInfo{}, err
	}
	tb, err := compose.ParseTurtle(req.TurtleB)
	if err != nil {
		return RouteInfo{}, err
	}
	r, err := compose.ConnectPinsWithWaveguide(s.ctx, parent, a, req.From.Port, b, req.To.Port, req.Waveguide, ta, tb)
	if err != nil {
		return RouteInfo{}, err
	}
	info := RouteInfo{Cell: r.Instance.Cell.Name(), Length: r.Length}
	for _, p := range r.Points {
		info.Points = append(info.Points, [2]float64{p.X, p.Y})
	}
	return info, nil
}
