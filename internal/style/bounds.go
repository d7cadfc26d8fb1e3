package style

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Bounds is the [Min, Max] range of an attribute across a layer.
//
// EmptyBounds (Min=+Inf, Max=-Inf) signals that no feature carried a usable
// value; such bounds are not Valid and encodings built on them fall back to
// a constant style.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EmptyBounds returns the identity element for Extend.
func EmptyBounds() Bounds {
	return Bounds{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Valid reports whether at least one value has been folded into b.
func (b Bounds) Valid() bool {
	return b.Min <= b.Max
}

// Degenerate reports whether the range collapses to a single value.
func (b Bounds) Degenerate() bool {
	return b.Valid() && b.Min == b.Max
}

// Extend returns b widened to include v.
func (b Bounds) Extend(v float64) Bounds {
	if v < b.Min {
		b.Min = v
	}
	if v > b.Max {
		b.Max = v
	}
	return b
}

// MarshalJSON encodes invalid bounds as null; JSON has no infinities.
func (b Bounds) MarshalJSON() ([]byte, error) {
	if !b.Valid() {
		return []byte("null"), nil
	}
	type plain Bounds
	return json.Marshal(plain(b))
}

// UnmarshalJSON decodes null as EmptyBounds.
func (b *Bounds) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = EmptyBounds()
		return nil
	}
	type plain Bounds
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = Bounds(p)
	return nil
}

// Value reads attr from props as a finite number. Absent, null, boolean and
// non-numeric values report false, as do NaN and infinities.
func Value(props geojson.Properties, attr string) (float64, bool) {
	raw, ok := props[attr]
	if !ok || raw == nil {
		return 0, false
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint:
		v = float64(n)
	case uint32:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ComputeBounds folds attr over every feature. Features without a usable
// value are excluded from the extremum rather than counted as zero.
func ComputeBounds(features []*geojson.Feature, attr string) Bounds {
	b := EmptyBounds()
	for _, f := range features {
		if f == nil {
			continue
		}
		if v, ok := Value(f.Properties, attr); ok {
			b = b.Extend(v)
		}
	}
	return b
}

// Normalize maps v into [0, 1] relative to b. Invalid or degenerate bounds
// map every value to the midpoint 0.5.
func Normalize(v float64, b Bounds) float64 {
	if !b.Valid() || b.Max == b.Min {
		return 0.5
	}
	t := (v - b.Min) / (b.Max - b.Min)
	switch {
	case math.IsNaN(t):
		return 0.5
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
