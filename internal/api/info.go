package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	layers  int
}

func NewInfoHandler(dataDir string, layers int) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, layers: layers}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Layers   int      `json:"layers" doc:"Number of catalog layers"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-geoview",
		Version:  Version,
		DataDir:  h.dataDir,
		Layers:   h.layers,
		Features: []string{"geojson", "styling", "legend-svg", "legend-png", "sessions"},
	}}, nil
}
