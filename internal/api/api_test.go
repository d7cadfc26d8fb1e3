package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/service"
	"github.com/joeblew999/plat-geoview/internal/style"
	"github.com/joeblew999/plat-geoview/internal/viewer"
)

const statesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"rate":8}},
{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[2,2],[3,2],[3,3],[2,2]]]},"properties":{"rate":30}}
]}`

const stationsJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Point","coordinates":[-95.3,29.7]},"properties":{"kw":10}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[-118.2,34.0]},"properties":{"kw":20000}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[-90.1,30.0]},"properties":{}}
]}`

func testServices(t *testing.T) *Services {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "sources")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{
		"states.geojson":   statesJSON,
		"stations.geojson": stationsJSON,
		"broken.geojson":   "{",
	} {
		if err := os.WriteFile(filepath.Join(src, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := catalog.New([]catalog.Entry{
		{Name: "Hydrogen Stations", Source: "stations.geojson", Color: "red", Group: "point", Category: "refuel",
			Label: "Capacity (kW)", Gradient: &catalog.Gradient{Attribute: "kw", Kind: "size"}},
		{Name: "States", Source: "states.geojson", Group: "area", Label: "Electricity rate (cents/kWh)",
			Gradient: &catalog.Gradient{Attribute: "rate"}},
		{Name: "Broken", Source: "broken.geojson", Group: "area"},
	})
	if err != nil {
		t.Fatal(err)
	}

	sources := service.NewSourceService(dir, c)
	return &Services{
		Catalog: service.NewCatalogService(c),
		Source:  sources,
		Sessions: viewer.NewStore(func(id string) *viewer.Session {
			return viewer.NewSession(id, sources, c, style.DefaultRules())
		}, 0),
	}
}

func testAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	return testAPIWith(t, testServices(t))
}

func testAPIWith(t *testing.T, svc *Services) humatest.TestAPI {
	t.Helper()
	config := huma.DefaultConfig("plat-geoview test", Version)
	config.Transformers = append(config.Transformers, LinkTransformer())
	_, api := humatest.New(t, config)
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler("testdata", 3).RegisterRoutes(api)
	return api
}

func decode[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %s: %v", body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	api := testAPI(t)
	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	body := decode[HealthBody](t, resp.Body)
	if body.Status != "ok" || body.Version != Version {
		t.Fatalf("body=%+v", body)
	}
}

func TestLayers(t *testing.T) {
	api := testAPI(t)
	resp := api.Get("/api/v1/layers")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	body := decode[LayersBody](t, resp.Body)
	if len(body.Layers) != 3 || body.Layers[0].Name != "Hydrogen Stations" {
		t.Fatalf("layers=%+v", body.Layers)
	}
	if body.Sources["States"] != "states.geojson" {
		t.Fatalf("sources=%v", body.Sources)
	}
	if got := body.Groups["point/refuel"]; len(got) != 1 || got[0] != "Hydrogen Stations" {
		t.Fatalf("groups=%v", body.Groups)
	}
}

func TestGetLayer(t *testing.T) {
	api := testAPI(t)

	resp := api.Get("/api/v1/layers/" + url.PathEscape("Hydrogen Stations"))
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	e := decode[catalog.Entry](t, resp.Body)
	if e.Gradient == nil || e.Gradient.Attribute != "kw" {
		t.Fatalf("entry=%+v", e)
	}

	if resp := api.Get("/api/v1/layers/Nope"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown layer status=%d", resp.Code)
	}
}

func TestLayerGeoJSON(t *testing.T) {
	api := testAPI(t)

	resp := api.Get("/api/v1/layers/States/geojson")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(resp.Body.String(), `"FeatureCollection"`) {
		t.Fatalf("body=%s", resp.Body)
	}

	if resp := api.Get("/api/v1/layers/Nope/geojson"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown layer status=%d", resp.Code)
	}
	if resp := api.Get("/api/v1/layers/Broken/geojson"); resp.Code != http.StatusInternalServerError {
		t.Fatalf("broken layer status=%d", resp.Code)
	}
}

func TestSelection(t *testing.T) {
	api := testAPI(t)

	resp := api.Post("/api/v1/selection", map[string]any{
		"layers": []string{"Hydrogen Stations", "Broken", "States", "Nope"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	session := resp.Header().Get("X-Session")
	if session == "" {
		t.Fatal("missing X-Session")
	}

	body := decode[SelectionBody](t, resp.Body)
	if strings.Join(body.Order, ",") != "States,Hydrogen Stations" {
		t.Fatalf("order=%v", body.Order)
	}
	if _, ok := body.Failed["Broken"]; !ok {
		t.Fatalf("failed=%v, want Broken", body.Failed)
	}
	if _, ok := body.Failed["Nope"]; !ok {
		t.Fatalf("failed=%v, want Nope", body.Failed)
	}
	if len(body.Legend.Entries) != 2 || body.Legend.Entries[0].MinLabel != "8.0" {
		t.Fatalf("legend=%+v", body.Legend)
	}

	// Same session sees the same selection.
	resp = api.Get("/api/v1/selection", "X-Session: "+session)
	body = decode[SelectionBody](t, resp.Body)
	if resp.Header().Get("X-Session") != session || len(body.Order) != 2 {
		t.Fatalf("session=%q order=%v", resp.Header().Get("X-Session"), body.Order)
	}

	// Another session starts empty.
	resp = api.Get("/api/v1/selection")
	body = decode[SelectionBody](t, resp.Body)
	if resp.Header().Get("X-Session") == session || len(body.Order) != 0 {
		t.Fatalf("fresh session leaked state: order=%v", body.Order)
	}

	resp = api.Delete("/api/v1/selection", "X-Session: "+session)
	body = decode[SelectionBody](t, resp.Body)
	if len(body.Order) != 0 || !body.Legend.Empty() {
		t.Fatalf("after clear order=%v legend=%+v", body.Order, body.Legend)
	}
}

func TestStyledAndGradient(t *testing.T) {
	api := testAPI(t)
	path := "/api/v1/layers/" + url.PathEscape("Hydrogen Stations")

	session := api.Get("/api/v1/selection").Header().Get("X-Session")
	resp := api.Get(path+"/styled", "X-Session: "+session)
	if resp.Code != http.StatusConflict {
		t.Fatalf("styled before selection status=%d", resp.Code)
	}

	api.Post("/api/v1/selection", "X-Session: "+session, map[string]any{"layers": []string{"Hydrogen Stations"}})

	resp = api.Get(path+"/styled", "X-Session: "+session)
	if resp.Code != http.StatusOK {
		t.Fatalf("styled status=%d body=%s", resp.Code, resp.Body)
	}
	if !strings.Contains(resp.Body.String(), `"_style"`) || !strings.Contains(resp.Body.String(), `"radius":10`) {
		t.Fatalf("styled=%s", resp.Body)
	}

	resp = api.Put(path+"/gradient", "X-Session: "+session, map[string]any{"attribute": ""})
	if resp.Code != http.StatusOK {
		t.Fatalf("gradient status=%d body=%s", resp.Code, resp.Body)
	}

	resp = api.Get("/api/v1/legend", "X-Session: "+session)
	lg := decode[struct {
		Entries []struct {
			MinLabel string `json:"minLabel"`
		} `json:"entries"`
	}](t, resp.Body)
	if len(lg.Entries) != 1 || lg.Entries[0].MinLabel != "" {
		t.Fatalf("legend after removing gradient=%+v", lg)
	}

	if resp := api.Put("/api/v1/layers/States/gradient", "X-Session: "+session, map[string]any{"attribute": "rate"}); resp.Code != http.StatusConflict {
		t.Fatalf("gradient on unloaded layer status=%d", resp.Code)
	}
}

func TestLegendImages(t *testing.T) {
	api := testAPI(t)

	resp := api.Get("/api/v1/legend.svg?layers=States,Hydrogen%20Stations")
	if resp.Code != http.StatusOK {
		t.Fatalf("svg status=%d body=%s", resp.Code, resp.Body)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(resp.Body.String(), "Electricity rate (cents/kWh)") {
		t.Fatal("svg legend missing title")
	}

	resp = api.Get("/api/v1/legend.png?layers=States")
	if resp.Code != http.StatusOK {
		t.Fatalf("png status=%d", resp.Code)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Fatalf("decoding png: %v", err)
	}
}

// Browsers cannot set X-Session on <img> or map fetches, so the session
// travels as a query parameter instead.
func TestSessionQueryParam(t *testing.T) {
	svc := testServices(t)
	api := testAPIWith(t, svc)

	session := api.Post("/api/v1/selection", map[string]any{"layers": []string{"Hydrogen Stations"}}).Header().Get("X-Session")
	if session == "" {
		t.Fatal("no session issued")
	}
	q := "?session=" + url.QueryEscape(session)

	for range 3 {
		resp := api.Get("/api/v1/legend.svg" + q + "&layers=" + url.QueryEscape("Hydrogen Stations"))
		if resp.Code != http.StatusOK {
			t.Fatalf("svg status=%d", resp.Code)
		}
		if got := resp.Header().Get("X-Session"); got != session {
			t.Fatalf("legend.svg session=%q, want %q", got, session)
		}
	}

	resp := api.Get("/api/v1/layers/" + url.PathEscape("Hydrogen Stations") + "/styled" + q)
	if resp.Code != http.StatusOK {
		t.Fatalf("styled via query status=%d body=%s", resp.Code, resp.Body)
	}
	if got := resp.Header().Get("X-Session"); got != session {
		t.Fatalf("styled session=%q, want %q", got, session)
	}

	if n := svc.Sessions.Len(); n != 1 {
		t.Fatalf("sessions=%d, want 1", n)
	}

	// header wins over the query parameter
	other := api.Get("/api/v1/selection").Header().Get("X-Session")
	resp = api.Get("/api/v1/selection"+q, "X-Session: "+other)
	if got := resp.Header().Get("X-Session"); got != other {
		t.Fatalf("session=%q, want header value %q", got, other)
	}
}

func TestInfoAndLinks(t *testing.T) {
	api := testAPI(t)

	resp := api.Get("/api/v1/info")
	info := decode[InfoBody](t, resp.Body)
	if info.Name != "plat-geoview" || info.Layers != 3 {
		t.Fatalf("info=%+v", info)
	}

	links := strings.Join(api.Get("/health").Header().Values("Link"), ", ")
	if !strings.Contains(links, `</api/v1/legend>; rel="legend"`) {
		t.Fatalf("health links=%s", links)
	}

	links = strings.Join(api.Get("/api/v1/layers/States").Header().Values("Link"), ", ")
	if !strings.Contains(links, `rel="collection"`) || !strings.Contains(links, `</api/v1/layers/States>; rel="self"`) {
		t.Fatalf("item links=%s", links)
	}
}
