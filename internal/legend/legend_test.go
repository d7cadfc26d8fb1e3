package legend

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geoview/internal/style"
)

func graded(attr string, kind style.EncodingKind, min, max float64) *style.Encoding {
	return &style.Encoding{Attribute: attr, Kind: kind, Bounds: style.Bounds{Min: min, Max: max}}
}

func TestBuildOrder(t *testing.T) {
	lg := Build(style.DefaultRules(), []Layer{
		{Name: "stations", Kind: style.Point, Base: style.Red},
		{Name: "broken", Kind: style.Unknown},
		{Name: "corridor", Kind: style.Line, Base: style.Blue},
		{Name: "states", Kind: style.Polygon, Base: style.Blue},
		{Name: "ports", Kind: style.Point, Base: style.Blue},
	})

	var got []string
	for _, e := range lg.Entries {
		got = append(got, e.Name)
	}
	want := "states,corridor,stations,ports"
	if strings.Join(got, ",") != want {
		t.Fatalf("order=%v, want %s", got, want)
	}
}

func TestTitleFallback(t *testing.T) {
	lg := Build(style.DefaultRules(), []Layer{
		{Name: "a", Label: "Alpha (units)", Kind: style.Point},
		{Name: "b", Kind: style.Point},
	})
	if lg.Entries[0].Title != "Alpha (units)" || lg.Entries[1].Title != "b" {
		t.Fatalf("titles=%q,%q", lg.Entries[0].Title, lg.Entries[1].Title)
	}
}

func TestPolygonGradient(t *testing.T) {
	enc := graded("v", style.Constant, 10, 30)
	lg := Build(style.DefaultRules(), []Layer{{Name: "p", Kind: style.Polygon, Base: style.Blue, Encoding: enc}})
	e := lg.Entries[0]

	if len(e.Swatches) != GradientStops {
		t.Fatalf("swatches=%d, want %d", len(e.Swatches), GradientStops)
	}
	if e.Bounds != enc.Bounds {
		t.Fatalf("bounds=%+v, want %+v", e.Bounds, enc.Bounds)
	}
	if e.MinLabel != "10.0" || e.MaxLabel != "30.0" {
		t.Fatalf("labels=%q,%q", e.MinLabel, e.MaxLabel)
	}

	mid := e.Swatches[GradientStops/2]
	if mid.Value != 20 {
		t.Fatalf("mid value=%v, want 20", mid.Value)
	}
	if got := mid.Visual.Fill.String(); got != "rgb(255, 128, 128)" {
		t.Fatalf("mid fill=%s, want rgb(255, 128, 128)", got)
	}
	if *e.Swatches[0].Visual.Fill != style.White || *e.Swatches[GradientStops-1].Visual.Fill != style.Red {
		t.Fatal("gradient endpoints should be white and red")
	}
}

func TestLineWidthRamp(t *testing.T) {
	lg := Build(style.DefaultRules(), []Layer{{Name: "l", Kind: style.Line, Base: style.Blue, Encoding: graded("tons", style.Constant, 0, 1e6)}})
	sw := lg.Entries[0].Swatches
	if sw[0].Visual.Stroke.Width != 1 || sw[len(sw)-1].Visual.Stroke.Width != 10 {
		t.Fatalf("width range=%v..%v, want 1..10", sw[0].Visual.Stroke.Width, sw[len(sw)-1].Visual.Stroke.Width)
	}
	for i := 1; i < len(sw); i++ {
		if sw[i].Visual.Stroke.Width < sw[i-1].Visual.Stroke.Width {
			t.Fatalf("width not monotonic at stop %d", i)
		}
	}
	if lg.Entries[0].MaxLabel != "1.0e+6" {
		t.Fatalf("max label=%q", lg.Entries[0].MaxLabel)
	}
}

func TestPointSamples(t *testing.T) {
	lg := Build(style.DefaultRules(), []Layer{
		{Name: "size", Kind: style.Point, Base: style.Red, Encoding: graded("kw", style.BySize, 0, 100)},
		{Name: "color", Kind: style.Point, Base: style.Red, Encoding: graded("cap", style.ByColor, 0, 100)},
	})

	size := lg.Entries[0]
	if len(size.Swatches) != 2 || size.Swatches[0].Visual.Radius != 2 || size.Swatches[1].Visual.Radius != 10 {
		t.Fatalf("size swatches=%+v", size.Swatches)
	}
	if size.Encoding != style.BySize {
		t.Fatalf("encoding=%q", size.Encoding)
	}

	color := lg.Entries[1]
	if *color.Swatches[0].Visual.Fill != style.Blue || *color.Swatches[1].Visual.Fill != style.Red {
		t.Fatalf("color swatches=%v,%v", color.Swatches[0].Visual.Fill, color.Swatches[1].Visual.Fill)
	}
}

func TestConstantAndFallback(t *testing.T) {
	tests := []struct {
		name string
		enc  *style.Encoding
	}{
		{"no encoding", nil},
		{"no values", &style.Encoding{Attribute: "v", Bounds: style.EmptyBounds()}},
		{"point without kind", graded("v", style.Constant, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := Build(style.DefaultRules(), []Layer{{Name: "x", Kind: style.Point, Base: style.Red, Encoding: tt.enc}})
			e := lg.Entries[0]
			if e.Graded() {
				t.Fatal("constant entry should have no range labels")
			}
			if len(e.Swatches) != 1 || e.Swatches[0].Visual.Radius != 3 || *e.Swatches[0].Visual.Fill != style.Red {
				t.Fatalf("swatches=%+v", e.Swatches)
			}
		})
	}
}

func TestDegenerateBounds(t *testing.T) {
	lg := Build(style.DefaultRules(), []Layer{{Name: "x", Kind: style.Point, Encoding: graded("v", style.BySize, 5, 5)}})
	e := lg.Entries[0]
	if len(e.Swatches) != 1 || e.Swatches[0].Visual.Radius != 6 {
		t.Fatalf("swatches=%+v", e.Swatches)
	}
	if e.MinLabel != e.MaxLabel {
		t.Fatalf("labels=%q,%q", e.MinLabel, e.MaxLabel)
	}
}

// Each swatch must be what the live style function draws for its value.
func TestSwatchesMatchStyleFunc(t *testing.T) {
	rules := style.DefaultRules()
	layers := []Layer{
		{Name: "p", Kind: style.Polygon, Base: style.Blue, Encoding: graded("v", style.Constant, -3, 7)},
		{Name: "l", Kind: style.Line, Base: style.Blue, Encoding: graded("v", style.Constant, 0, 40)},
		{Name: "s", Kind: style.Point, Base: style.Red, Encoding: graded("v", style.BySize, 1, 2)},
		{Name: "c", Kind: style.Point, Base: style.Red, Encoding: graded("v", style.ByColor, 1, 2)},
	}
	geoms := map[style.GeometryKind]orb.Geometry{
		style.Polygon: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		style.Line:    orb.LineString{{0, 0}, {1, 1}},
		style.Point:   orb.Point{0, 0},
	}

	lg := Build(rules, layers)
	for i, e := range lg.Entries {
		l := layers[i]
		fn := rules.Func(l.Encoding, l.Base)
		for _, s := range e.Swatches {
			f := geojson.NewFeature(geoms[l.Kind])
			f.Properties["v"] = s.Value
			v, ok := fn(f)
			if !ok {
				t.Fatalf("%s: style func suppressed value %v", e.Name, s.Value)
			}
			if v.Radius != s.Visual.Radius || !sameColor(v.Fill, s.Visual.Fill) || !sameStroke(v.Stroke, s.Visual.Stroke) {
				t.Fatalf("%s: swatch %+v drifted from map visual %+v", e.Name, s.Visual, v)
			}
		}
	}
}

func TestRampOverride(t *testing.T) {
	ramp := style.Ramp{From: style.White, To: style.Blue}
	lg := Build(style.DefaultRules(), []Layer{{Name: "p", Kind: style.Polygon, Encoding: graded("v", style.Constant, 0, 1), Ramp: &ramp}})
	sw := lg.Entries[0].Swatches
	if *sw[len(sw)-1].Visual.Fill != style.Blue {
		t.Fatalf("ramp override ignored: %v", sw[len(sw)-1].Visual.Fill)
	}
}

func sampleLegend() Legend {
	return Build(style.DefaultRules(), []Layer{
		{Name: "states", Label: "Electricity rate (cents/kWh)", Kind: style.Polygon, Base: style.Blue, Encoding: graded("c", style.Constant, 8, 30)},
		{Name: "corridor", Kind: style.Line, Base: style.Blue},
		{Name: "electrolyzers", Kind: style.Point, Base: style.Red, Encoding: graded("kw", style.BySize, 10, 2e4)},
	})
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, sampleLegend()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "Electricity rate (cents/kWh)", "corridor", "#ff0000", "2.0e+4", "</svg>"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestWriteSVGEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, Legend{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No layers selected") {
		t.Fatal("empty legend should say so")
	}
}

func TestWritePNG(t *testing.T) {
	lg := sampleLegend()
	var buf bytes.Buffer
	if err := WritePNG(&buf, lg); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height(lg) {
		t.Fatalf("size=%v, want %dx%d", b, Width, Height(lg))
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleLegend()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"kind": "polygon"`) || !strings.Contains(out, `"minLabel": "8.0"`) {
		t.Fatalf("json=%s", out)
	}
	// Constant layers have no bounds.
	if !strings.Contains(out, `"bounds": null`) {
		t.Fatal("empty bounds should encode as null")
	}
}

func TestRenderTerminal(t *testing.T) {
	out := RenderTerminal(sampleLegend())
	for _, want := range []string{"Electricity rate (cents/kWh)", "corridor", "electrolyzers", "8.0", "30.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal legend missing %q", want)
		}
	}
	if !strings.Contains(RenderTerminal(Legend{}), "No layers selected") {
		t.Error("empty terminal legend should say so")
	}
}

func TestWidthGlyph(t *testing.T) {
	if widthGlyph(1) != widthGlyphs[0] || widthGlyph(10) != widthGlyphs[len(widthGlyphs)-1] {
		t.Fatal("width glyph endpoints")
	}
}

func sameColor(a, b *style.Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameStroke(a, b *style.Stroke) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
