package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/style"
)

// GeoJSONOutput is a raw FeatureCollection.
type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Session     string `header:"X-Session" doc:"Viewer session ID"`
	Body        []byte
}

type StyledInput struct {
	NameInput
	SessionInput
}

type GradientBody struct {
	Attribute string `json:"attribute" doc:"Attribute driving the gradient; empty removes it" example:"Power_kW"`
	Kind      string `json:"kind,omitempty" enum:"size,color," doc:"Point encoding kind"`
}

type GradientInput struct {
	NameInput
	SessionInput
	Body GradientBody
}

type DescriptorOutput struct {
	SessionOutput
	Body registry.Descriptor
}

func (h *APIHandler) GetLayerGeoJSON(ctx context.Context, input *NameInput) (*GeoJSONOutput, error) {
	fc, err := h.svc.Source.Read(ctx, input.Name)
	if err != nil {
		return nil, layerError(err)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding geojson", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}

// GetLayerStyled returns the session's copy of a selected layer with each
// feature's resolved visual in the "_style" property.
func (h *APIHandler) GetLayerStyled(ctx context.Context, input *StyledInput) (*GeoJSONOutput, error) {
	sess := h.session(input.SessionInput)
	fc, err := sess.Styled(input.Name)
	if err != nil {
		return nil, layerError(err)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding geojson", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Session: sess.ID, Body: data}, nil
}

// PutLayerGradient changes which attribute drives a selected layer's
// encoding. Only that layer's bounds are recomputed.
func (h *APIHandler) PutLayerGradient(ctx context.Context, input *GradientInput) (*DescriptorOutput, error) {
	kind, err := style.ParseEncodingKind(input.Body.Kind)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	sess := h.session(input.SessionInput)
	d, err := sess.SetGradient(input.Name, input.Body.Attribute, kind)
	if err != nil {
		return nil, layerError(err)
	}
	return &DescriptorOutput{SessionOutput: SessionOutput{Session: sess.ID}, Body: d}, nil
}
