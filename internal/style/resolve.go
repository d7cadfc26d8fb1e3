package style

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// EncodingKind selects how a point layer encodes its attribute. Lines always
// encode as stroke width and polygons as fill, whatever the kind says.
type EncodingKind string

const (
	BySize   EncodingKind = "size"
	ByColor  EncodingKind = "color"
	Constant EncodingKind = ""
)

// ParseEncodingKind accepts "size", "color"/"colour" and the empty string.
func ParseEncodingKind(s string) (EncodingKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size", "radius":
		return BySize, nil
	case "color", "colour":
		return ByColor, nil
	case "":
		return Constant, nil
	default:
		return Constant, fmt.Errorf("unknown encoding kind %q", s)
	}
}

// Encoding binds an attribute to a visual property through its bounds.
type Encoding struct {
	Attribute string       `json:"attribute"`
	Kind      EncodingKind `json:"kind,omitempty"`
	Bounds    Bounds       `json:"bounds"`
}

// Active reports whether the encoding drives styling. Encodings whose bounds
// never saw a value fall back to the constant style.
func (e *Encoding) Active() bool {
	return e != nil && e.Attribute != "" && e.Bounds.Valid()
}

// Stroke is an outline colour and width.
type Stroke struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// Visual is the resolved presentation of one feature.
type Visual struct {
	Kind   GeometryKind `json:"kind"`
	Fill   *Color       `json:"fill,omitempty"`
	Stroke *Stroke      `json:"stroke,omitempty"`
	Radius float64      `json:"radius,omitempty"`
	ZIndex int          `json:"zIndex"`
}

// Rules holds the constants of the styling scheme. DefaultRules is the
// canonical set; layers may substitute ramps.
type Rules struct {
	MinRadius     float64
	MaxRadius     float64
	DefaultRadius float64
	MinWidth      float64
	MaxWidth      float64
	PolygonStroke Stroke
	PointRamp     Ramp
	FillRamp      Ramp
}

// DefaultRules returns the canonical styling constants.
func DefaultRules() Rules {
	return Rules{
		MinRadius:     2,
		MaxRadius:     10,
		DefaultRadius: 3,
		MinWidth:      1,
		MaxWidth:      10,
		PolygonStroke: Stroke{Color: Gray, Width: 1},
		PointRamp:     Ramp{From: Blue, To: Red},
		FillRamp:      Ramp{From: White, To: Red},
	}
}

// WithRamp returns a copy of r whose gradient ramp for kind is replaced.
// Only points and polygons have colour ramps.
func (r Rules) WithRamp(kind GeometryKind, ramp Ramp) Rules {
	switch kind {
	case Point:
		r.PointRamp = ramp
	case Polygon:
		r.FillRamp = ramp
	}
	return r
}

// Sample is an attribute value read from one feature.
type Sample struct {
	Value   float64
	Present bool
}

// Num is a present sample.
func Num(v float64) Sample { return Sample{Value: v, Present: true} }

// Missing is the sample of a feature lacking the attribute.
var Missing = Sample{}

// Resolve computes the visual for a feature of the given kind. The boolean
// is false when the feature must not be drawn: its kind is unknown, or an
// active encoding is configured and the feature has no value.
func (r Rules) Resolve(kind GeometryKind, enc *Encoding, s Sample, base Color) (Visual, bool) {
	if kind == Unknown {
		return Visual{}, false
	}
	active := enc.Active()
	if active && !s.Present {
		return Visual{}, false
	}

	v := Visual{Kind: kind, ZIndex: kind.ZIndex()}
	switch kind {
	case Point:
		fill := base
		v.Radius = r.DefaultRadius
		if active {
			t := Normalize(s.Value, enc.Bounds)
			switch enc.Kind {
			case BySize:
				v.Radius = Lerp(r.MinRadius, r.MaxRadius, t)
			case ByColor:
				fill = r.PointRamp.At(t)
			}
		}
		v.Fill = &fill

	case Line:
		width := r.MinWidth
		if active {
			width = Lerp(r.MinWidth, r.MaxWidth, Normalize(s.Value, enc.Bounds))
		}
		v.Stroke = &Stroke{Color: base, Width: width}

	case Polygon:
		fill := base
		if active {
			fill = r.FillRamp.At(Normalize(s.Value, enc.Bounds))
		}
		stroke := r.PolygonStroke
		v.Fill = &fill
		v.Stroke = &stroke
	}
	return v, true
}

// StyleFunc styles one feature; false means the feature is not drawn.
type StyleFunc func(f *geojson.Feature) (Visual, bool)

// Func closes over a layer's encoding and base colour. The feature's own
// geometry decides the branch, as a renderer would see it on repaint.
func (r Rules) Func(enc *Encoding, base Color) StyleFunc {
	return func(f *geojson.Feature) (Visual, bool) {
		if f == nil || f.Geometry == nil {
			return Visual{}, false
		}
		s := Missing
		if enc != nil && enc.Attribute != "" {
			if v, ok := Value(f.Properties, enc.Attribute); ok {
				s = Num(v)
			}
		}
		return r.Resolve(KindOf(f.Geometry), enc, s, base)
	}
}
