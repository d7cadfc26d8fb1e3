// Package viewer holds viewer sessions. A session owns one layer registry,
// so selections, cached layers and gradient choices never leak between
// users or tests.
package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/legend"
	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/style"
)

// StyleProperty is the feature property that carries the resolved visual in
// styled output.
const StyleProperty = "_style"

// Session is one viewer's state.
type Session struct {
	ID string

	reg     *registry.Registry
	catalog *catalog.Catalog

	mu       sync.Mutex
	lastSeen time.Time
}

// NewSession creates a session with an empty registry.
func NewSession(id string, f registry.Fetcher, c *catalog.Catalog, rules style.Rules, opts ...registry.Option) *Session {
	return &Session{
		ID:       id,
		reg:      registry.New(f, c, rules, opts...),
		catalog:  c,
		lastSeen: time.Now(),
	}
}

// Apply reconciles the selection. See registry.Registry.Reconcile.
func (s *Session) Apply(ctx context.Context, selected []string) (registry.Result, error) {
	return s.reg.Reconcile(ctx, selected)
}

// Clear deselects every layer. Cached layers stay loaded.
func (s *Session) Clear(ctx context.Context) (registry.Result, error) {
	return s.reg.Reconcile(ctx, nil)
}

// Legend returns the legend of the visible layers.
func (s *Session) Legend() legend.Legend {
	return s.reg.Legend()
}

// SetGradient changes the attribute behind one layer's encoding.
func (s *Session) SetGradient(name, attribute string, kind style.EncodingKind) (registry.Descriptor, error) {
	return s.reg.SetGradient(name, attribute, kind)
}

// Styled returns a copy of a loaded layer's features with the resolved
// visual in StyleProperty. Suppressed features are left out.
func (s *Session) Styled(name string) (*geojson.FeatureCollection, error) {
	fn, err := s.reg.Style(name)
	if err != nil {
		return nil, err
	}
	fc, ok := s.reg.Features(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrNotLoaded, name)
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		v, ok := fn(f)
		if !ok {
			continue
		}
		styled := geojson.NewFeature(f.Geometry)
		styled.ID = f.ID
		for k, p := range f.Properties {
			styled.Properties[k] = p
		}
		styled.Properties[StyleProperty] = v
		out.Append(styled)
	}
	return out, nil
}

// Registry exposes the session's registry.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Catalog returns the presentation table the session was built on.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
