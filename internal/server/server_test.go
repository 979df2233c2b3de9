package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/catalog"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/lysexp"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

func newTestServer(t *testing.T, maxSessions int) *httptest.Server {
	t.Helper()
	tc := tech.MustLoadDefault(tech.DefaultName)
	lib, err := catalog.NewLibrary(tc)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(tc, lib, kernel.DefaultTolerance(), logger, maxSessions)
	srv := httptest.NewServer(NewRouter(NewHandler(svc, logger)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func openLayout(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, srv, "POST", "/layouts", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[map[string]any](t, resp)
	return sess["id"].(string)
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, 4)
	resp := do(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest("GET", srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

func TestTechnologyAndComponents(t *testing.T) {
	srv := newTestServer(t, 4)

	resp := do(t, srv, "GET", "/technology", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tc := decode[struct {
		Name   string      `json:"name"`
		DBU    float64     `json:"dbu"`
		Layers []layerInfo `json:"layers"`
	}](t, resp)
	assert.Equal(t, tech.DefaultName, tc.Name)
	assert.Equal(t, 0.001, tc.DBU)
	assert.Contains(t, tc.Layers, layerInfo{Name: tech.LayerSi, Number: 1, Datatype: 0})

	resp = do(t, srv, "GET", "/components", nil)
	names := decode[[]string](t, resp)
	assert.Contains(t, names, "Waveguide_Straight")
	assert.Contains(t, names, "Ring_Double_Bus")

	resp = do(t, srv, "GET", "/components/Waveguide_Straight", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[pcell.Descriptor](t, resp)
	assert.Equal(t, "Waveguide_Straight", d.Name)
	assert.NotEmpty(t, d.Params)

	resp = do(t, srv, "GET", "/components/Nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "LookupError", decode[errorBody](t, resp).Kind)
}

func TestComposeAndDump(t *testing.T) {
	srv := newTestServer(t, 4)
	id := openLayout(t, srv)
	base := "/layouts/" + id

	resp := do(t, srv, "POST", base+"/cells", map[string]any{
		"component": "Waveguide_Straight",
		"params":    map[string]any{"length": 10},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	wg := decode[CellInfo](t, resp)
	assert.Equal(t, "Waveguide_Straight", wg.Name)
	assert.Len(t, wg.Pins, 2)
	assert.Equal(t, "10.000u", wg.Params["wg_length"])
	require.Len(t, wg.BBox, 4)
	assert.InDelta(t, 10, wg.BBox[2]-wg.BBox[0], 0.5)

	resp = do(t, srv, "POST", base+"/cells", map[string]any{"name": "top"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, "POST", base+"/cells/top/instances", Placement{Child: wg.Name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 0, decode[InstanceInfo](t, resp).Index)

	zero := 0
	resp = do(t, srv, "POST", base+"/cells/top/instances", Placement{Child: wg.Name, Port: "opt1", Anchor: &zero, AnchorPort: "opt2"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decode[InstanceInfo](t, resp)
	assert.Equal(t, 1, second.Index)
	for _, p := range second.Pins {
		if p.Name == "opt2" {
			assert.InDelta(t, 20, p.X, 1e-9)
			assert.Equal(t, 0, p.Angle)
		}
	}

	resp = do(t, srv, "POST", base+"/cells/top/instances", Placement{Child: wg.Name, X: 40})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	one, two := 1, 2
	resp = do(t, srv, "POST", base+"/cells/top/routes", RouteRequest{
		From:      Endpoint{Instance: &one, Port: "opt2"},
		To:        Endpoint{Instance: &two, Port: "opt1"},
		Waveguide: catalog.DefaultWaveguide,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	route := decode[RouteInfo](t, resp)
	assert.InDelta(t, 20, route.Length, 1e-6)
	assert.Equal(t, [][2]float64{{20, 0}, {40, 0}}, route.Points)
	assert.Equal(t, "Waveguide", route.Cell)

	resp = do(t, srv, "GET", base+"/cells/top", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, decode[CellInfo](t, resp).Instances)

	resp = do(t, srv, "GET", base+"/cells", nil)
	assert.Equal(t, []string{"Waveguide_Straight", "top", route.Cell}, decode[[]string](t, resp))

	resp = do(t, srv, "GET", base+"/cells/top/dump", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, top, err := lysexp.Read(resp.Body, tech.MustLoadDefault(tech.DefaultName))
	require.NoError(t, err)
	assert.Equal(t, "top", top.Name())
	assert.Len(t, top.Instances(), 4)

	resp = do(t, srv, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, srv, "GET", base+"/cells", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t, 1)
	id := openLayout(t, srv)
	base := "/layouts/" + id

	resp := do(t, srv, "POST", "/layouts", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, srv, "GET", "/layouts/proj_01h455vb4pex5vsknk084sn02q/cells", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, srv, "GET", "/layouts/garbage/cells", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, "POST", base+"/cells", map[string]any{
		"component": "Waveguide_Straight",
		"params":    map[string]any{"length": -1},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "ParameterDomainError", body.Kind)
	assert.Equal(t, "Waveguide_Straight", body.Cell)

	req, err := http.NewRequest("POST", srv.URL+base+"/cells", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp = do(t, srv, "POST", base+"/cells", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, "POST", base+"/cells", map[string]any{
		"component": "Bragg_Grating",
		"params":    map[string]any{"number_of_periods": 1e8},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ParameterDomainError", decode[errorBody](t, resp).Kind)

	resp = do(t, srv, "POST", base+"/cells", map[string]any{"component": "Waveguide_Heater"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	heater := decode[CellInfo](t, resp)
	resp = do(t, srv, "POST", base+"/cells", map[string]any{"component": "Waveguide_Straight"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	wg := decode[CellInfo](t, resp)

	resp = do(t, srv, "POST", base+"/cells/"+heater.Name+"/instances", Placement{Child: wg.Name, Port: "opt1", AnchorPort: "elec1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CompositionError", decode[errorBody](t, resp).Kind)

	seven := 7
	resp = do(t, srv, "POST", base+"/cells/"+heater.Name+"/routes", RouteRequest{
		From: Endpoint{Instance: &seven, Port: "opt1"},
		To:   Endpoint{Port: "opt2"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, "POST", base+"/cells/"+heater.Name+"/instances", Placement{Child: wg.Name, Angle: 45})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, srv, "GET", base+"/cells/missing/dump", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecodeLimitsBodySize(t *testing.T) {
	h := NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	big := `{"name":"` + strings.Repeat("a", maxBodySize) + `"}`

	rec := httptest.NewRecorder()
	var v map[string]string
	ok := h.decode(rec, httptest.NewRequest("POST", "/layouts/x/cells", strings.NewReader(big)), &v)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	ok = h.decode(rec, httptest.NewRequest("POST", "/layouts/x/cells", strings.NewReader(`{"name":"top"}`)), &v)
	assert.True(t, ok)
	assert.Equal(t, "top", v["name"])
}
