// Package legend builds the visual key for the visible layers. Every swatch
// is produced by style.Rules.Resolve at a sampled value, so the legend shows
// exactly what the map draws for that value.
package legend

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/joeblew999/plat-geoview/internal/style"
)

// GradientStops is the number of samples taken across polygon and line
// gradients.
const GradientStops = 11

// Layer is the legend's view of one visible layer.
type Layer struct {
	Name     string
	Label    string
	Kind     style.GeometryKind
	Base     style.Color
	Encoding *style.Encoding
	Ramp     *style.Ramp
}

// Swatch is one resolved sample. T is the normalized position the value maps
// to; Visual is what the map draws for a feature carrying Value.
type Swatch struct {
	T      float64      `json:"t"`
	Value  float64      `json:"value"`
	Visual style.Visual `json:"visual"`
}

// Row is one legend entry: a layer label with its swatch or graded scale.
type Row struct {
	Name      string             `json:"name" doc:"Layer name"`
	Title     string             `json:"title" doc:"Legend label"`
	Kind      style.GeometryKind `json:"kind" doc:"Geometry kind"`
	Attribute string             `json:"attribute,omitempty" doc:"Attribute driving the encoding"`
	Encoding  style.EncodingKind `json:"encoding,omitempty" doc:"Point encoding kind"`
	Bounds    style.Bounds       `json:"bounds" doc:"Bounds shared with the layer style function"`
	MinLabel  string             `json:"minLabel,omitempty"`
	MaxLabel  string             `json:"maxLabel,omitempty"`
	Swatches  []Swatch           `json:"swatches"`
}

// Graded reports whether the entry shows a min/max range.
func (e Row) Graded() bool {
	return e.MinLabel != ""
}

// Legend is the ordered list of entries, polygons first and points last.
type Legend struct {
	Entries []Row `json:"entries"`
}

// Empty reports whether no layer is shown.
func (lg Legend) Empty() bool {
	return len(lg.Entries) == 0
}

// Build resolves one entry per layer. Layers of unknown kind are skipped;
// the rest keep their relative order within each geometry kind.
func Build(rules style.Rules, layers []Layer) Legend {
	kept := make([]Layer, 0, len(layers))
	for _, l := range layers {
		if l.Kind != style.Unknown {
			kept = append(kept, l)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Kind.DrawRank() < kept[j].Kind.DrawRank()
	})

	lg := Legend{Entries: make([]Row, 0, len(kept))}
	for _, l := range kept {
		r := rules
		if l.Ramp != nil {
			r = r.WithRamp(l.Kind, *l.Ramp)
		}
		lg.Entries = append(lg.Entries, entryFor(r, l))
	}
	return lg
}

func entryFor(r style.Rules, l Layer) Row {
	e := Row{
		Name:   l.Name,
		Title:  l.Label,
		Kind:   l.Kind,
		Bounds: style.EmptyBounds(),
	}
	if e.Title == "" {
		e.Title = l.Name
	}

	if l.Encoding != nil {
		e.Attribute = l.Encoding.Attribute
		e.Bounds = l.Encoding.Bounds
	}

	// Point layers with no size or colour kind draw every valued feature
	// alike, so they get the constant swatch.
	if !l.Encoding.Active() || (l.Kind == style.Point && l.Encoding.Kind == style.Constant) {
		v, _ := r.Resolve(l.Kind, nil, style.Missing, l.Base)
		e.Swatches = []Swatch{{T: 0.5, Visual: v}}
		return e
	}

	enc := *l.Encoding
	e.MinLabel = style.FormatValue(enc.Bounds.Min)
	e.MaxLabel = style.FormatValue(enc.Bounds.Max)
	if l.Kind == style.Point {
		e.Encoding = enc.Kind
	}

	for _, t := range stops(l.Kind, enc) {
		value := style.Lerp(enc.Bounds.Min, enc.Bounds.Max, t)
		v, ok := r.Resolve(l.Kind, &enc, style.Num(value), l.Base)
		if !ok {
			continue
		}
		e.Swatches = append(e.Swatches, Swatch{
			T:      style.Normalize(value, enc.Bounds),
			Value:  value,
			Visual: v,
		})
	}
	return e
}

// stops returns the normalized sample positions for a graded layer.
func stops(kind style.GeometryKind, enc style.Encoding) []float64 {
	if enc.Bounds.Degenerate() {
		return []float64{0}
	}
	if kind == style.Point {
		return []float64{0, 1}
	}
	ts := make([]float64, GradientStops)
	for i := range ts {
		ts[i] = float64(i) / float64(GradientStops-1)
	}
	return ts
}

// WriteJSON encodes the legend as indented JSON.
func WriteJSON(w io.Writer, lg Legend) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(lg)
}
