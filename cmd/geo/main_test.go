package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/joeblew999/plat-geoview/internal/legend"
	"github.com/joeblew999/plat-geoview/internal/logging"
	"github.com/joeblew999/plat-geoview/internal/server"
)

const catalogTOML = `[[layers]]
name = "Refinery"
source = "refinery.geojson"
color = "red"
label = "Refinery capacity (bbl/day)"
group = "point"

[layers.gradient]
attribute = "capacity"
kind = "color"
`

const refineryJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Point","coordinates":[-95,29]},"properties":{"capacity":1000}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[-90,30]},"properties":{"capacity":500000}}
]}`

func TestRunLegend(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.toml")
	if err := os.WriteFile(catalogPath, []byte(catalogTOML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sources"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sources", "refinery.geojson"), []byte(refineryJSON), 0644); err != nil {
		t.Fatal(err)
	}

	logger := logging.New(&bytes.Buffer{}, log.DebugLevel)
	srv, err := server.New(server.Config{DataDir: dir, Catalog: catalogPath, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	out := filepath.Join(dir, "legend.svg")
	if err := runLegend(context.Background(), logger, catalogPath, ts.URL, 1, []string{"Refinery"}, "svg", out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<svg", "Refinery capacity (bbl/day)", "1.0e+3", "5.0e+5"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("legend missing %q", want)
		}
	}
}

func TestRunLegendNeedsLayers(t *testing.T) {
	if err := runLegend(context.Background(), log.Default(), "", "http://localhost:0", 0, nil, "json", ""); err == nil {
		t.Fatal("want error without layers")
	}
}

func TestWriteLegendFormats(t *testing.T) {
	lg := legend.Legend{}
	for _, format := range []string{"json", "svg", "png", "term"} {
		var buf bytes.Buffer
		if err := writeLegend(&buf, lg, format); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("%s: no output", format)
		}
	}
	if err := writeLegend(&bytes.Buffer{}, lg, "gif"); err == nil {
		t.Fatal("want error for unknown format")
	}
}
