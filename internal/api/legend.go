package api

import (
	"bytes"
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/legend"
	"github.com/joeblew999/plat-geoview/internal/viewer"
)

type LegendInput struct {
	SessionInput
	Layers []string `query:"layers" doc:"Apply this selection before rendering (comma-separated)"`
}

type LegendOutput struct {
	SessionOutput
	Body legend.Legend
}

type ImageOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Session      string `header:"X-Session" doc:"Viewer session ID"`
	Body         []byte
}

// legendFor resolves the session and, when layers are given, applies them as
// the selection first so an <img> can request a legend in one round trip.
func (h *APIHandler) legendFor(ctx context.Context, input *LegendInput) (*viewer.Session, legend.Legend, error) {
	sess := h.session(input.SessionInput)
	if len(input.Layers) > 0 {
		if _, err := sess.Apply(ctx, input.Layers); err != nil {
			return nil, legend.Legend{}, layerError(err)
		}
	}
	return sess, sess.Legend(), nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *LegendInput) (*LegendOutput, error) {
	sess, lg, err := h.legendFor(ctx, input)
	if err != nil {
		return nil, err
	}
	return &LegendOutput{SessionOutput: SessionOutput{Session: sess.ID}, Body: lg}, nil
}

func (h *APIHandler) GetLegendSVG(ctx context.Context, input *LegendInput) (*ImageOutput, error) {
	sess, lg, err := h.legendFor(ctx, input)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := legend.WriteSVG(&buf, lg); err != nil {
		return nil, huma.Error500InternalServerError("rendering legend", err)
	}
	return &ImageOutput{ContentType: "image/svg+xml", CacheControl: "no-store", Session: sess.ID, Body: buf.Bytes()}, nil
}

func (h *APIHandler) GetLegendPNG(ctx context.Context, input *LegendInput) (*ImageOutput, error) {
	sess, lg, err := h.legendFor(ctx, input)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := legend.WritePNG(&buf, lg); err != nil {
		return nil, huma.Error500InternalServerError("rendering legend", err)
	}
	return &ImageOutput{ContentType: "image/png", CacheControl: "no-store", Session: sess.ID, Body: buf.Bytes()}, nil
}
