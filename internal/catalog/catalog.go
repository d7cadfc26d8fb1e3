// Package catalog holds the per-layer presentation table: where each layer's
// GeoJSON lives, its base colour, legend label, selection group and optional
// gradient attribute.
package catalog

import (
	"errors"
	"fmt"

	"github.com/joeblew999/plat-geoview/internal/style"
)

// ErrNotFound is returned when a layer name is not in the catalog.
var ErrNotFound = errors.New("layer not in catalog")

// DefaultColor is used for layers without a configured colour.
const DefaultColor = "blue"

// Gradient names the attribute that drives a layer's encoding.
type Gradient struct {
	Attribute string   `json:"attribute" yaml:"attribute" toml:"attribute" doc:"Attribute driving the gradient"`
	Kind      string   `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind" enum:"size,color," doc:"Point encoding: size or color"`
	Options   []string `json:"options,omitempty" yaml:"options,omitempty" toml:"options" doc:"Alternative attributes offered to the user"`
}

// Entry is one layer's presentation metadata.
type Entry struct {
	Name     string      `json:"name" yaml:"name" toml:"name" doc:"Display name, unique" example:"Highway Flows (Interstate)"`
	Source   string      `json:"source" yaml:"source" toml:"source" doc:"GeoJSON resource identifier" example:"highway_assignment_links_interstate.geojson"`
	Label    string      `json:"label,omitempty" yaml:"label,omitempty" toml:"label" doc:"Legend label"`
	Color    string      `json:"color,omitempty" yaml:"color,omitempty" toml:"color" doc:"Base colour (CSS)" example:"black"`
	Group    string      `json:"group,omitempty" yaml:"group,omitempty" toml:"group" enum:"area,highway,point," doc:"Selection group"`
	Category string      `json:"category,omitempty" yaml:"category,omitempty" toml:"category" doc:"Sub-group within highway/point layers" example:"flow"`
	Gradient *Gradient   `json:"gradient,omitempty" yaml:"gradient,omitempty" toml:"gradient" doc:"Gradient encoding"`
	Ramp     *style.Ramp `json:"ramp,omitempty" yaml:"ramp,omitempty" toml:"ramp" doc:"Colour ramp override"`
}

// SourceRef is one entry of the name → resource mapping.
type SourceRef struct {
	Name   string `json:"name" doc:"Layer name"`
	Source string `json:"source" doc:"GeoJSON resource identifier"`
}

// Catalog is an ordered set of entries keyed by name.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New builds a catalog, validating names, colours and gradient kinds.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[e.Name]; dup {
			return nil, fmt.Errorf("duplicate layer %q", e.Name)
		}
		c.index[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

func (e Entry) validate() error {
	if e.Name == "" {
		return errors.New("layer without name")
	}
	if e.Source == "" {
		return fmt.Errorf("layer %q: source is required", e.Name)
	}
	if e.Color != "" {
		if _, err := style.ParseColor(e.Color); err != nil {
			return fmt.Errorf("layer %q: %w", e.Name, err)
		}
	}
	if e.Gradient != nil {
		if _, err := style.ParseEncodingKind(e.Gradient.Kind); err != nil {
			return fmt.Errorf("layer %q: %w", e.Name, err)
		}
	}
	return nil
}

// Entries returns the entries in declaration order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry for name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.index[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Get is Lookup returning ErrNotFound.
func (c *Catalog) Get(name string) (Entry, error) {
	e, ok := c.Lookup(name)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// Sources returns the ordered name → resource mapping.
func (c *Catalog) Sources() []SourceRef {
	refs := make([]SourceRef, len(c.entries))
	for i, e := range c.entries {
		refs[i] = SourceRef{Name: e.Name, Source: e.Source}
	}
	return refs
}

// Label returns the legend label for name, falling back to the name.
func (c *Catalog) Label(name string) string {
	if e, ok := c.Lookup(name); ok && e.Label != "" {
		return e.Label
	}
	return name
}

// BaseColor returns the layer colour, or DefaultColor when none is set.
func (c *Catalog) BaseColor(name string) style.Color {
	if e, ok := c.Lookup(name); ok && e.Color != "" {
		if col, err := style.ParseColor(e.Color); err == nil {
			return col
		}
	}
	return style.MustParseColor(DefaultColor)
}

// Encoding returns the configured gradient for name with empty bounds, or
// nil when the layer has no gradient.
func (c *Catalog) Encoding(name string) *style.Encoding {
	e, ok := c.Lookup(name)
	if !ok || e.Gradient == nil || e.Gradient.Attribute == "" {
		return nil
	}
	kind, _ := style.ParseEncodingKind(e.Gradient.Kind)
	return &style.Encoding{
		Attribute: e.Gradient.Attribute,
		Kind:      kind,
		Bounds:    style.EmptyBounds(),
	}
}

// Groups returns entry names bucketed by "group/category" ("area",
// "highway/flow", "point/refuel"), preserving declaration order.
func (c *Catalog) Groups() map[string][]string {
	groups := make(map[string][]string)
	for _, e := range c.entries {
		key := e.GroupKey()
		groups[key] = append(groups[key], e.Name)
	}
	return groups
}

// GroupKey is the entry's "group/category" bucket; entries without a group
// fall under "other".
func (e Entry) GroupKey() string {
	key := e.Group
	if key == "" {
		key = "other"
	}
	if e.Category != "" {
		key += "/" + e.Category
	}
	return key
}
