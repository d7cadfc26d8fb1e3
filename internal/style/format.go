package style

import (
	"math"
	"strconv"
	"strings"
)

// FormatValue renders a bound for a legend label. Magnitudes below 0.01 or
// above 100 use exponential notation with one fractional digit ("1.5e+3");
// everything else is fixed-point with one decimal ("42.0").
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	abs := math.Abs(v)
	if abs < 0.01 || abs > 100 {
		return trimExponent(strconv.FormatFloat(v, 'e', 1, 64))
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// trimExponent turns Go's "1.5e+03" into the shorter "1.5e+3".
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	mantissa, sign, digits := s[:i], s[i+1], strings.TrimLeft(s[i+2:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + string(sign) + digits
}
