package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/lysexp"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
)

const maxBodySize = 1 << 20 // 1MB

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrSessionLimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, pdkerr.ErrComposition):
		return http.StatusConflict
	case errors.Is(err, pdkerr.ErrLookup):
		return http.StatusNotFound
	case errors.Is(err, pdkerr.ErrParameterDomain), errors.Is(err, pdkerr.ErrGeometry):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Cell  string `json:"cell,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error(), Kind: pdkerr.Kind(err)}
	var pe *pcell.ProduceError
	if errors.As(err, &pe) {
		body.Cell = pe.Cell
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFromContext(r.Context()))
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := h.service.Get(mux.Vars(r)["layoutId"])
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type layerInfo struct {
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Datatype int    `json:"datatype"`
}

type waveguideInfo struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Radius float64 `json:"radius"`
	Bend   string  `json:"bend"`
}

func (h *Handler) Technology(w http.ResponseWriter, r *http.Request) {
	t := h.service.Technology()
	out := struct {
		Name       string          `json:"name"`
		DBU        float64         `json:"dbu"`
		Layers     []layerInfo     `json:"layers"`
		Waveguides []waveguideInfo `json:"waveguides"`
	}{Name: t.Name, DBU: t.DBU}
	for _, l := range t.Layers() {
		out.Layers = append(out.Layers, layerInfo{l.Name, l.Number, l.Datatype})
	}
	for _, name := range t.Waveguides() {
		wt, err := t.Waveguide(name)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		out.Waveguides = append(out.Waveguides, waveguideInfo{wt.Name, wt.Width, wt.Radius, wt.Style.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Library().Names())
}

func (h *Handler) DescribeComponent(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Library().Describe(mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) OpenLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Open()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) CloseLayout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(mux.Vars(r)["layoutId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCells(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Cells())
}

type createCellRequest struct {
	Component string         `json:"component"`
	Name      string         `json:"name"`
	Params    map[string]any `json:"params"`
}

// CreateCell produces a component, or makes an empty cell when only a name
// is given.
func (h *Handler) CreateCell(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req createCellRequest
	if !h.decode(w, r, &req) {
		return
	}
	switch {
	case req.Component != "":
		info, err := sess.Produce(req.Component, req.Params)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, info)
	case req.Name != "":
		writeJSON(w, http.StatusCreated, sess.NewCell(req.Name))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "component or name is required"})
	}
}

func (h *Handler) GetCell(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	info, err := sess.Cell(mux.Vars(r)["cell"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) PlaceInstance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var pl Placement
	if !h.decode(w, r, &pl) {
		return
	}
	info, err := sess.Place(mux.Vars(r)["cell"], pl)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) RouteWaveguide(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req RouteRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := sess.Route(mux.Vars(r)["cell"], req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// DumpCell streams the cell tree as an s-expression document.
func (h *Handler) DumpCell(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := sess.With(func(ctx *pcell.Context) error {
		c, err := ctx.Layout.Cell(mux.Vars(r)["cell"])
		if err != nil {
			return err
		}
		return lysexp.Write(&buf, c)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-lysexp")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// NewRouter wires the routes and middleware.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.logger))
	r.Use(Recovery(h.logger))

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/technology", h.Technology).Methods("GET")
	r.HandleFunc("/components", h.ListComponents).Methods("GET")
	r.HandleFunc("/components/{name}", h.DescribeComponent).Methods("GET")

	r.HandleFunc("/layouts", h.OpenLayout).Methods("POST")
	r.HandleFunc("/layouts/{layoutId}", h.CloseLayout).Methods("DELETE")
	r.HandleFunc("/layouts/{layoutId}/cells", h.ListCells).Methods("GET")
	r.HandleFunc("/layouts/{layoutId}/cells", h.CreateCell).Methods("POST")
	r.HandleFunc("/layouts/{layoutId}/cells/{cell}", h.GetCell).Methods("GET")
	r.HandleFunc("/layouts/{layoutId}/cells/{cell}/instances", h.PlaceInstance).Methods("POST")
	r.HandleFunc("/layouts/{layoutId}/cells/{cell}/routes", h.RouteWaveguide).Methods("POST")
	r.HandleFunc("/layouts/{layoutId}/cells/{cell}/dump", h.DumpCell).Methods("GET")
	return r
}
