// Package style maps a feature's geometry kind and attribute value to a
// visual encoding, and computes the attribute bounds those encodings are
// normalised against.
//
// The same functions back the map style and the legend, so a legend swatch
// is always produced by exactly the rule that styles the features it
// describes.
package style

import (
	"strings"

	"github.com/paulmach/orb"
)

// GeometryKind is the coarse geometry class a layer or feature belongs to.
type GeometryKind int

const (
	Unknown GeometryKind = iota
	Polygon
	Line
	Point
)

// String returns the short lowercase name of the kind.
func (k GeometryKind) String() string {
	switch k {
	case Polygon:
		return "polygon"
	case Line:
		return "line"
	case Point:
		return "point"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k GeometryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *GeometryKind) UnmarshalText(b []byte) error {
	*k = ParseGeometryKind(string(b))
	return nil
}

// ZIndex is the stacking order used on the map. Points are always drawn on
// top of lines, lines on top of polygons.
func (k GeometryKind) ZIndex() int {
	switch k {
	case Polygon:
		return 1
	case Line:
		return 5
	case Point:
		return 10
	default:
		return 0
	}
}

// DrawRank orders layers for drawing and for the legend: polygons first,
// then lines, then points. Unknown kinds sort last.
func (k GeometryKind) DrawRank() int {
	switch k {
	case Polygon:
		return 0
	case Line:
		return 1
	case Point:
		return 2
	default:
		return 3
	}
}

// ParseGeometryKind accepts GeoJSON geometry type names as well as the
// short names used in layer catalogs.
func ParseGeometryKind(s string) GeometryKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "multipoint":
		return Point
	case "line", "linestring", "multilinestring", "highway":
		return Line
	case "polygon", "multipolygon", "area":
		return Polygon
	default:
		return Unknown
	}
}

// KindOf classifies an orb geometry. Collections, rings and bounds have no
// single kind and report Unknown.
func KindOf(g orb.Geometry) GeometryKind {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return Point
	case orb.LineString, orb.MultiLineString:
		return Line
	case orb.Polygon, orb.MultiPolygon:
		return Polygon
	default:
		return Unknown
	}
}
