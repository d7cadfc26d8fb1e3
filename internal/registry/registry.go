// Package registry owns the loaded layers of one viewer session. It
// reconciles a selection against its cache, loading new layers concurrently
// and hiding deselected ones without discarding them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/legend"
	"github.com/joeblew999/plat-geoview/internal/service"
	"github.com/joeblew999/plat-geoview/internal/style"
)

// ErrUnknownLayer is returned for names the catalog does not list.
var ErrUnknownLayer = errors.New("unknown layer")

// ErrNotLoaded is returned when an operation needs a layer's features before
// it has been selected at least once.
var ErrNotLoaded = errors.New("layer not loaded")

// Fetcher retrieves a layer's features by catalog name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*geojson.FeatureCollection, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) (*geojson.FeatureCollection, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	return f(ctx, name)
}

// Publisher receives layer lifecycle events. *service.EventBus satisfies it.
type Publisher interface {
	Publish(service.Event)
}

// Event actions published under the "layers" resource.
const (
	ActionLoaded   = "loaded"
	ActionFailed   = "failed"
	ActionShown    = "shown"
	ActionHidden   = "hidden"
	ActionRestyled = "restyled"
)

// LoadError records why one layer could not be loaded.
type LoadError struct {
	Layer string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading layer %q: %v", e.Layer, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Descriptor is the registry's record of a loaded layer. It is fixed at load
// time apart from Visible and, through SetGradient, Encoding.
type Descriptor struct {
	Name     string             `json:"name"`
	Label    string             `json:"label"`
	Kind     style.GeometryKind `json:"kind"`
	Base     style.Color        `json:"baseColor"`
	Encoding *style.Encoding    `json:"encoding,omitempty"`
	Ramp     *style.Ramp        `json:"ramp,omitempty"`
	Features int                `json:"features"`
	Visible  bool               `json:"visible"`
}

// Result summarises one Reconcile call.
type Result struct {
	// Order lists the visible selected layers in draw order. Layers whose
	// kind could not be determined are left out.
	Order []string
	// Loaded lists layers fetched by this call.
	Loaded []string
	// Failed maps layer name to its *LoadError.
	Failed map[string]error
}

type entry struct {
	desc Descriptor
	fc   *geojson.FeatureCollection
}

// Registry is safe for concurrent use.
type Registry struct {
	fetcher Fetcher
	catalog *catalog.Catalog
	rules   style.Rules
	logger  *log.Logger
	events  Publisher
	limit   int

	loads singleflight.Group

	mu       sync.RWMutex
	layers   map[string]*entry
	selected map[string]bool
	order    []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger that receives load failures.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithEvents publishes layer lifecycle events to p.
func WithEvents(p Publisher) Option {
	return func(r *Registry) { r.events = p }
}

// WithConcurrency caps simultaneous fetches per Reconcile. Zero means no cap.
func WithConcurrency(n int) Option {
	return func(r *Registry) { r.limit = n }
}

// New creates an empty registry.
func New(f Fetcher, c *catalog.Catalog, rules style.Rules, opts ...Option) *Registry {
	r := &Registry{
		fetcher:  f,
		catalog:  c,
		rules:    rules,
		logger:   log.Default(),
		layers:   make(map[string]*entry),
		selected: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile makes selected the visible set. Cached layers are shown or
// hidden without refetching; uncached ones are fetched concurrently and the
// call returns once all of them settle. A layer that fails to load is
// reported in Result.Failed and does not affect the others. The returned
// error is non-nil only when ctx is done.
func (r *Registry) Reconcile(ctx context.Context, selected []string) (Result, error) {
	res := Result{Failed: make(map[string]error)}

	want := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, name := range selected {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := r.catalog.Lookup(name); !ok {
			res.Failed[name] = &LoadError{Layer: name, Err: ErrUnknownLayer}
			continue
		}
		want = append(want, name)
	}

	var misses []string
	r.mu.Lock()
	r.order = want
	r.selected = make(map[string]bool, len(want))
	for _, name := range want {
		r.selected[name] = true
	}
	for name, e := range r.layers {
		if show := r.selected[name]; show != e.desc.Visible {
			e.desc.Visible = show
			r.publish(visibilityAction(show), name)
		}
	}
	for _, name := range want {
		if _, ok := r.layers[name]; !ok {
			misses = append(misses, name)
		}
	}
	r.mu.Unlock()

	var (
		g     errgroup.Group
		resMu sync.Mutex
	)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, name := range misses {
		g.Go(func() error {
			fetched, err := r.load(ctx, name)
			resMu.Lock()
			defer resMu.Unlock()
			switch {
			case err != nil:
				res.Failed[name] = err
			case fetched:
				res.Loaded = append(res.Loaded, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}

	r.mu.RLock()
	for _, name := range want {
		if e, ok := r.layers[name]; ok && e.desc.Visible && e.desc.Kind != style.Unknown {
			res.Order = append(res.Order, name)
		}
	}
	r.mu.RUnlock()
	sortByDrawRank(res.Order, r.kindOf)
	sort.Strings(res.Loaded)
	return res, nil
}

// load fetches and caches name. Concurrent loads of one name share a single
// fetch; fetched is false when the layer was already cached. The shared
// fetch is detached from any one caller's cancellation, so a caller that
// gives up neither fails the others nor stops the cache being filled. The
// layer becomes visible only if it is still selected when the fetch
// completes.
func (r *Registry) load(ctx context.Context, name string) (fetched bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(name, func() (any, error) {
		r.mu.RLock()
		_, cached := r.layers[name]
		r.mu.RUnlock()
		if cached {
			return false, nil
		}

		fc, err := r.fetcher.Fetch(fetchCtx, name)
		if err == nil && fc == nil {
			err = errors.New("empty response")
		}
		if err != nil {
			lerr := &LoadError{Layer: name, Err: err}
			r.logger.Error("layer load failed", "layer", name, "err", err)
			r.publish(ActionFailed, name)
			return false, lerr
		}

		d := r.describe(name, fc)
		r.mu.Lock()
		d.Visible = r.selected[name]
		r.layers[name] = &entry{desc: d, fc: fc}
		r.mu.Unlock()

		r.logger.Debug("layer loaded", "layer", name, "kind", d.Kind, "features", d.Features, "visible", d.Visible)
		r.publish(ActionLoaded, name)
		if d.Visible {
			r.publish(ActionShown, name)
		}
		return true, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// describe derives the descriptor from the catalog and the loaded features.
// Kind comes from the first feature; a layer with no features has no kind
// and no encoding.
func (r *Registry) describe(name string, fc *geojson.FeatureCollection) Descriptor {
	d := Descriptor{
		Name:     name,
		Label:    r.catalog.Label(name),
		Base:     r.catalog.BaseColor(name),
		Features: len(fc.Features),
	}
	if e, ok := r.catalog.Lookup(name); ok {
		d.Ramp = e.Ramp
	}
	if len(fc.Features) == 0 {
		return d
	}
	if f := fc.Features[0]; f != nil && f.Geometry != nil {
		d.Kind = style.KindOf(f.Geometry)
	}
	if enc := r.catalog.Encoding(name); enc != nil {
		enc.Bounds = style.ComputeBounds(fc.Features, enc.Attribute)
		d.Encoding = enc
	}
	return d
}

// SetGradient replaces the attribute and kind driving name's encoding and
// recomputes its bounds from the cached features. An empty attribute removes
// the encoding. Other layers are untouched.
func (r *Registry) SetGradient(name, attribute string, kind style.EncodingKind) (Descriptor, error) {
	if _, ok := r.catalog.Lookup(name); !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}

	r.mu.Lock()
	e, ok := r.layers[name]
	if !ok {
		r.mu.Unlock()
		return Descriptor{}, fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}
	if attribute == "" || len(e.fc.Features) == 0 {
		e.desc.Encoding = nil
	} else {
		e.desc.Encoding = &style.Encoding{
			Attribute: attribute,
			Kind:      kind,
			Bounds:    style.ComputeBounds(e.fc.Features, attribute),
		}
	}
	d := e.desc
	r.mu.Unlock()

	r.logger.Debug("layer restyled", "layer", name, "attribute", attribute, "kind", kind)
	r.publish(ActionRestyled, name)
	return d, nil
}

// Descriptor returns the record of a loaded layer.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.layers[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Features returns the cached features of a loaded layer.
func (r *Registry) Features(name string) (*geojson.FeatureCollection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.layers[name]
	if !ok {
		return nil, false
	}
	return e.fc, true
}

// Style returns the style function for a loaded layer. It closes over the
// same encoding the legend reads, so both agree until the next SetGradient.
func (r *Registry) Style(name string) (style.StyleFunc, error) {
	d, ok := r.Descriptor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}
	return r.rulesFor(d).Func(d.Encoding, d.Base), nil
}

func (r *Registry) rulesFor(d Descriptor) style.Rules {
	if d.Ramp != nil {
		return r.rules.WithRamp(d.Kind, *d.Ramp)
	}
	return r.rules
}

// Rules returns the styling constants shared by map and legend.
func (r *Registry) Rules() style.Rules {
	return r.rules
}

// Visible returns the visible layers of the current selection in draw order.
// Layers of unknown kind are left out.
func (r *Registry) Visible() []string {
	r.mu.RLock()
	var names []string
	for _, name := range r.order {
		if e, ok := r.layers[name]; ok && e.desc.Visible && e.desc.Kind != style.Unknown {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()
	sortByDrawRank(names, r.kindOf)
	return names
}

// Selected returns the current selection as given to Reconcile, minus names
// the catalog does not list.
func (r *Registry) Selected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// LegendLayers returns the legend input for the visible layers.
func (r *Registry) LegendLayers() []legend.Layer {
	names := r.Visible()
	layers := make([]legend.Layer, 0, len(names))
	for _, name := range names {
		d, ok := r.Descriptor(name)
		if !ok {
			continue
		}
		layers = append(layers, legend.Layer{
			Name:     d.Name,
			Label:    d.Label,
			Kind:     d.Kind,
			Base:     d.Base,
			Encoding: d.Encoding,
			Ramp:     d.Ramp,
		})
	}
	return layers
}

// Legend builds the legend for the visible layers.
func (r *Registry) Legend() legend.Legend {
	return legend.Build(r.rules, r.LegendLayers())
}

func (r *Registry) kindOf(name string) style.GeometryKind {
	d, _ := r.Descriptor(name)
	return d.Kind
}

func (r *Registry) publish(action, name string) {
	if r.events == nil {
		return
	}
	r.events.Publish(service.Event{Resource: "layers", Action: action, ID: name})
}

func visibilityAction(show bool) string {
	if show {
		return ActionShown
	}
	return ActionHidden
}

// sortByDrawRank orders polygons, lines, then points, keeping selection order
// within each kind.
func sortByDrawRank(names []string, kind func(string) style.GeometryKind) {
	ranks := make(map[string]int, len(names))
	for _, n := range names {
		ranks[n] = kind(n).DrawRank()
	}
	sort.SliceStable(names, func(i, j int) bool {
		return ranks[names[i]] < ranks[names[j]]
	})
}
