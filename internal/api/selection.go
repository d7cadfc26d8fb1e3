package api

import (
	"context"

	"github.com/joeblew999/plat-geoview/internal/legend"
	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/viewer"
)

type SelectionRequest struct {
	Layers []string `json:"layers" doc:"Selected layer names" example:"[\"Hydrogen Stations\"]"`
}

type SelectionInput struct {
	SessionInput
	Body SelectionRequest
}

type SelectionBody struct {
	Selected []string          `json:"selected" doc:"Selected layers known to the catalog"`
	Order    []string          `json:"order" doc:"Visible layers in draw order: polygons, lines, points"`
	Loaded   []string          `json:"loaded,omitempty" doc:"Layers fetched by this request"`
	Failed   map[string]string `json:"failed,omitempty" doc:"Layers that could not be loaded, with the reason"`
	Legend   legend.Legend     `json:"legend" doc:"Legend of the visible layers"`
}

type SelectionOutput struct {
	SessionOutput
	Body SelectionBody
}

func (h *APIHandler) GetSelection(ctx context.Context, input *SessionInput) (*SelectionOutput, error) {
	sess := h.session(*input)
	return selectionOutput(sess, registry.Result{Order: sess.Registry().Visible()}), nil
}

// PostSelection reconciles the session against the posted selection. Layers
// that fail to load are reported and left out; the rest are shown.
func (h *APIHandler) PostSelection(ctx context.Context, input *SelectionInput) (*SelectionOutput, error) {
	sess := h.session(input.SessionInput)
	res, err := sess.Apply(ctx, input.Body.Layers)
	if err != nil {
		return nil, layerError(err)
	}
	return selectionOutput(sess, res), nil
}

// DeleteSelection deselects everything. Loaded layers stay cached.
func (h *APIHandler) DeleteSelection(ctx context.Context, input *SessionInput) (*SelectionOutput, error) {
	sess := h.session(*input)
	res, err := sess.Clear(ctx)
	if err != nil {
		return nil, layerError(err)
	}
	return selectionOutput(sess, res), nil
}

func selectionOutput(sess *viewer.Session, res registry.Result) *SelectionOutput {
	body := SelectionBody{
		Selected: sess.Registry().Selected(),
		Order:    res.Order,
		Loaded:   res.Loaded,
		Legend:   sess.Legend(),
	}
	if body.Selected == nil {
		body.Selected = []string{}
	}
	if body.Order == nil {
		body.Order = []string{}
	}
	if len(res.Failed) > 0 {
		body.Failed = make(map[string]string, len(res.Failed))
		for name, err := range res.Failed {
			body.Failed[name] = err.Error()
		}
	}
	return &SelectionOutput{SessionOutput: SessionOutput{Session: sess.ID}, Body: body}
}
