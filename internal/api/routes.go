// Package api defines the Huma REST routes: the layer catalog, the GeoJSON
// behind it, per-session selection and styling, and the legend.
package api

import (
	"context"
	"errors"
	"os"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/service"
	"github.com/joeblew999/plat-geoview/internal/viewer"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.2.0"

// Services holds the dependencies of the API handlers.
type Services struct {
	Catalog  *service.CatalogService
	Source   *service.SourceService
	Sessions *viewer.Store
}

// Types

// NameInput addresses one catalog layer.
type NameInput struct {
	Name string `path:"name" doc:"Layer name" example:"Hydrogen Stations"`
}

// SessionInput carries the viewer session. An empty or expired session is
// replaced by a new one whose ID comes back in the X-Session header. The
// session query parameter serves clients that cannot set headers, such as
// an <img> or a map tile layer; the header wins when both are present.
type SessionInput struct {
	Session      string `header:"X-Session" doc:"Viewer session ID"`
	SessionParam string `query:"session" doc:"Viewer session ID, used when X-Session is absent"`
}

// ID returns the session the caller named, header first.
func (in SessionInput) ID() string {
	if in.Session != "" {
		return in.Session
	}
	return in.SessionParam
}

// SessionOutput echoes the session that served the request.
type SessionOutput struct {
	Session string `header:"X-Session" doc:"Viewer session ID"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.2.0"`
}

type LayersBody struct {
	Layers  []catalog.SourceRef `json:"layers" doc:"Layer name to GeoJSON resource, in catalog order"`
	Sources map[string]string   `json:"sources" doc:"Same mapping keyed by name"`
	Groups  map[string][]string `json:"groups" doc:"Layer names by group/category"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers catalog and GeoJSON routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{name}", h.GetLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{name}/geojson", h.GetLayerGeoJSON, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{name}/styled", h.GetLayerStyled, huma.OperationTags("layers", "session"))
	huma.Put(api, "/api/v1/layers/{name}/gradient", h.PutLayerGradient, huma.OperationTags("layers", "session"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterSelection registers the session selection routes.
func (h *APIHandler) RegisterSelection(api huma.API) {
	huma.Get(api, "/api/v1/selection", h.GetSelection, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/selection", h.PostSelection, huma.OperationTags("session"))
	huma.Delete(api, "/api/v1/selection", h.DeleteSelection, huma.OperationTags("session"))
}

// RegisterLegend registers legend routes.
func (h *APIHandler) RegisterLegend(api huma.API) {
	huma.Get(api, "/api/v1/legend", h.GetLegend, huma.OperationTags("legend", "session"))
	huma.Get(api, "/api/v1/legend.svg", h.GetLegendSVG, huma.OperationTags("legend", "session"))
	huma.Get(api, "/api/v1/legend.png", h.GetLegendPNG, huma.OperationTags("legend", "session"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body LayersBody }, error) {
	refs := h.svc.Catalog.Sources()
	sources := make(map[string]string, len(refs))
	for _, ref := range refs {
		sources[ref.Name] = ref.Source
	}
	return &struct{ Body LayersBody }{Body: LayersBody{
		Layers:  refs,
		Sources: sources,
		Groups:  h.svc.Catalog.Groups(),
	}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *NameInput) (*struct{ Body catalog.Entry }, error) {
	e, err := h.svc.Catalog.Get(input.Name)
	if err != nil {
		return nil, layerError(err)
	}
	return &struct{ Body catalog.Entry }{Body: e}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

// session resolves the caller's session.
func (h *APIHandler) session(in SessionInput) *viewer.Session {
	return h.svc.Sessions.Session(in.ID())
}

// layerError maps domain errors onto HTTP errors.
func layerError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, registry.ErrUnknownLayer):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, registry.ErrNotLoaded):
		return huma.Error409Conflict(err.Error() + "; select the layer first")
	case errors.Is(err, service.ErrInvalidName):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, os.ErrNotExist):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
