// Package colors parses user-supplied color strings and converts between
// RGB and HSV. Hue is always expressed in degrees on [0,360).
package colors

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// Fallback is returned for any color string that cannot be parsed.
var Fallback = RGB{R: 255, G: 0, B: 0}

var functionalRe = regexp.MustCompile(`(?i)^rgba?\s*\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)`)

// Parse accepts "#rrggbb", "rrggbb", 8-digit hex forms (trailing digits are
// ignored) and CSS rgb()/rgba(). Functional components that are all <= 1 are
// treated as normalized. Anything else yields Fallback.
func Parse(value string) RGB {
	s := strings.TrimSpace(value)
	if s == "" {
		return Fallback
	}
	// Some pickers emit "#rgba(...)".
	if strings.HasPrefix(s, "#") && strings.Contains(strings.ToLower(s), "rgba") {
		s = strings.TrimSpace(strings.TrimLeft(s, "#"))
	}

	if c, ok := parseHex(strings.TrimPrefix(s, "#")); ok {
		return c
	}

	m := functionalRe.FindStringSubmatch(s)
	if m == nil {
		return Fallback
	}
	var comps [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return Fallback
		}
		comps[i] = v
	}
	if comps[0] <= 1 && comps[1] <= 1 && comps[2] <= 1 {
		for i := range comps {
			comps[i] *= 255
		}
	}
	return RGB{R: toByte(comps[0]), G: toByte(comps[1]), B: toByte(comps[2])}
}

func parseHex(s string) (RGB, bool) {
	if len(s) != 6 && len(s) != 8 {
		return RGB{}, false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return RGB{}, false
		}
	}
	v, err := strconv.ParseUint(s[:6], 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Min(255, math.Max(0, v))))
}

// Normalize returns the "#rrggbb" form of any accepted color string.
func Normalize(value string) string {
	return Parse(value).Hex()
}

// Hex formats the color as lower-case "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HSV returns hue in degrees [0,360), saturation and value in [0,1].
func (c RGB) HSV() (h, s, v float64) {
	return ToHSV(c.R, c.G, c.B)
}

// ToHSV converts 8-bit RGB to hue in degrees, saturation and value.
func ToHSV(r, g, b uint8) (h, s, v float64) {
	col := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return col.Hsv()
}

// FromHSV converts hue in degrees, saturation and value back to RGB on the
// 0..1 scale, clamped.
func FromHSV(h, s, v float64) (r, g, b float64) {
	col := colorful.Hsv(WrapHue(h), s, v).Clamped()
	return col.R, col.G, col.B
}

// WrapHue maps any angle into [0,360).
func WrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// HueDelta returns the signed shortest rotation from one hue to another, in
// (-180,180].
func HueDelta(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// HueDistance returns the unsigned circular distance between two hues, in
// [0,180].
func HueDistance(a, b float64) float64 {
	return math.Abs(HueDelta(a, b))
}
