package style

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Color is an opaque 8-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// Common colours used by the canonical rules.
var (
	White = Color{255, 255, 255}
	Red   = Color{255, 0, 0}
	Blue  = Color{0, 0, 255}
	Gray  = Color{128, 128, 128}
)

// ParseColor accepts CSS colour names ("red", "cyan"), hex ("#f00",
// "#ff0000") and functional "rgb(r, g, b)" notation.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Color{}, fmt.Errorf("empty colour")
	}

	if c, ok := colornames.Map[s]; ok {
		return Color{c.R, c.G, c.B}, nil
	}

	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return Color{}, fmt.Errorf("parsing colour %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return Color{r, g, b}, nil
	}

	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		var r, g, b int
		inner := strings.ReplaceAll(s[4:len(s)-1], " ", "")
		if _, err := fmt.Sscanf(inner, "%d,%d,%d", &r, &g, &b); err != nil {
			return Color{}, fmt.Errorf("parsing colour %q: %w", s, err)
		}
		if r < 0 || r > 255 || g < 0 || g > 255 || b < 0 || b > 255 {
			return Color{}, fmt.Errorf("colour %q out of range", s)
		}
		return Color{uint8(r), uint8(g), uint8(b)}, nil
	}

	return Color{}, fmt.Errorf("unknown colour %q", s)
}

// MustParseColor is ParseColor for literals known to be valid.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the colour as CSS "rgb(r, g, b)".
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders the colour as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Ramp interpolates each channel linearly from From (t=0) to To (t=1).
type Ramp struct {
	From Color `json:"from" yaml:"from" toml:"from"`
	To   Color `json:"to" yaml:"to" toml:"to"`
}

// At returns the ramp colour at t, clamped to [0, 1]. Channels are rounded
// half away from zero, so the midpoint of a 255→0 channel is 128.
func (r Ramp) At(t float64) Color {
	t = math.Max(0, math.Min(1, t))
	return Color{
		R: channel(r.From.R, r.To.R, t),
		G: channel(r.From.G, r.To.G, t),
		B: channel(r.From.B, r.To.B, t),
	}
}

func channel(from, to uint8, t float64) uint8 {
	return uint8(math.Round(Lerp(float64(from), float64(to), t)))
}
