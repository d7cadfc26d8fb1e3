package panel

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/logging"
	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/service"
	"github.com/joeblew999/plat-geoview/internal/templates"
	"github.com/joeblew999/plat-geoview/internal/viewer"
)

// Element IDs patched by the panel.
const (
	LayerListID = "#layer-list"
	LegendID    = "#legend"
	FailuresID  = "#load-failures"
)

// Handler serves the panel's SSE endpoints.
type Handler struct {
	catalog  *catalog.Catalog
	sessions *viewer.Store
	events   *service.EventBus
	renderer *templates.Renderer
}

func NewHandler(c *catalog.Catalog, sessions *viewer.Store, events *service.EventBus, renderer *templates.Renderer) *Handler {
	return &Handler{catalog: c, sessions: sessions, events: events, renderer: renderer}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/layers", h.ListLayers, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/apply", h.Apply, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/clear", h.Clear, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
}

// SessionInput names the session on GET requests. Datastar sends signals
// for GETs as JSON in the datastar query parameter rather than the body.
type SessionInput struct {
	Session  string `header:"X-Session" doc:"Viewer session ID"`
	Datastar string `query:"datastar" doc:"Datastar signals as JSON"`
}

// session prefers the header and falls back to the "session" signal.
func (i *SessionInput) session() string {
	if i.Session != "" || i.Datastar == "" {
		return i.Session
	}
	signals, err := ParseSignals([]byte(i.Datastar))
	if err != nil {
		return ""
	}
	return signals.String("session")
}

// ListLayers patches the grouped layer checklist and hands the client its
// session ID.
func (h *Handler) ListLayers(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	sess := h.sessions.Session(input.session())
	return Stream(func(sse SSE) {
		html, err := h.renderer.Render("layer-list.html", map[string]any{
			"Groups": h.groups(sess.Registry().Selected()),
		})
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Patch(html, LayerListID)
		sse.Signals(map[string]any{"session": sess.ID})
	}), nil
}

// Apply reconciles the session against the checked layers and patches the
// legend, the draw order and any load failures.
func (h *Handler) Apply(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess := h.sessions.Session(input.session(signals))
	layers := signals.Strings("layers")

	return Stream(func(sse SSE) {
		res, err := sess.Apply(ctx, layers)
		if err != nil {
			logging.FromContext(ctx).Warn("apply interrupted", "session", sess.ID, "err", err)
			sse.Error(err.Error())
			return
		}
		h.patchResult(sse, sess, res)
	}), nil
}

// Clear deselects every layer.
func (h *Handler) Clear(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess := h.sessions.Session(input.session(signals))

	return Stream(func(sse SSE) {
		res, err := sess.Clear(ctx)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		h.patchResult(sse, sess, res)
	}), nil
}

func (h *Handler) patchResult(sse SSE, sess *viewer.Session, res registry.Result) {
	legendHTML, err := h.renderer.Render("legend.html", sess.Legend())
	if err != nil {
		sse.Error(err.Error())
		return
	}
	sse.Patch(legendHTML, LegendID)

	failed := make(map[string]string, len(res.Failed))
	for name, err := range res.Failed {
		failed[name] = err.Error()
	}
	failuresHTML, err := h.renderer.Render("failures.html", failed)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	sse.Patch(failuresHTML, FailuresID)

	order := res.Order
	if order == nil {
		order = []string{}
	}
	sse.Signals(map[string]any{
		"session":    sess.ID,
		"layers":     sess.Registry().Selected(),
		"layerOrder": order,
		"failed":     failed,
		"error":      "",
	})
}

// Events streams layer lifecycle events until the client disconnects.
func (h *Handler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return Stream(func(sse SSE) {
		ch := h.events.SubscribeContext(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := sse.DispatchCustomEvent("layer-changed", ev); err != nil {
					return
				}
			}
		}
	}), nil
}

// Types

// Group is one fieldset of the layer checklist.
type Group struct {
	Key    string
	Title  string
	Layers []Option
}

// Option is one checkbox.
type Option struct {
	Name     string
	Color    string
	Gradient string
	Selected bool
}

// groups buckets the catalog, ordering groups by first appearance.
func (h *Handler) groups(selected []string) []Group {
	isSelected := make(map[string]bool, len(selected))
	for _, name := range selected {
		isSelected[name] = true
	}

	buckets := h.catalog.Groups()
	keys := make([]string, 0, len(buckets))
	seen := make(map[string]bool, len(buckets))
	for _, e := range h.catalog.Entries() {
		if key := e.GroupKey(); !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	out := make([]Group, 0, len(keys))
	for _, key := range keys {
		g := Group{Key: key, Title: groupTitle(key)}
		for _, name := range buckets[key] {
			opt := Option{Name: name, Color: h.catalog.BaseColor(name).Hex(), Selected: isSelected[name]}
			if e, ok := h.catalog.Lookup(name); ok && e.Gradient != nil {
				opt.Gradient = e.Gradient.Attribute
			}
			g.Layers = append(g.Layers, opt)
		}
		out = append(out, g)
	}
	return out
}

// groupTitle turns "highway/flow" into "Highway: flow".
func groupTitle(key string) string {
	group, category, _ := strings.Cut(key, "/")
	title := strings.ToUpper(group[:1]) + group[1:]
	if category != "" {
		title += ": " + category
	}
	return title
}
