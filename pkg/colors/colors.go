// Package colors converts between hex strings and RGB triples and measures
// perceptual color difference in CIE Lab space.
package colors

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/visual-assert/pkg/types"
)

// VisuallySameThreshold is the largest CIEDE2000 distance at which two
// colors are considered indistinguishable to a human observer.
const VisuallySameThreshold = 2.0

// ErrInvalidHex is returned when a string is not a #rgb or #rrggbb color.
var ErrInvalidHex = errors.New("invalid color hex")

var hexPattern = regexp.MustCompile(`(?i)^#([a-f\d]{2})([a-f\d]{2})([a-f\d]{2})$`)

// ParseHex parses "#rgb" or "#rrggbb", case-insensitively.
// The boolean is false when the input matches none of these forms.
func ParseHex(hex string) (types.Color, bool) {
	if len(hex) == 4 && hex[0] == '#' {
		hex = string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}

	m := hexPattern.FindStringSubmatch(hex)
	if m == nil {
		return types.Color{}, false
	}

	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(m[i+1], 16, 8)
		if err != nil {
			return types.Color{}, false
		}
		channels[i] = uint8(v)
	}
	return types.Color{R: channels[0], G: channels[1], B: channels[2]}, true
}

// ToHex formats r, g, b as "#rrggbb", each channel zero-padded to two digits.
func ToHex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Hex formats c as "#rrggbb".
func Hex(c types.Color) string {
	return ToHex(c.R, c.G, c.B)
}

// FromFloat rounds and clamps engine-reported channel values into a Color.
func FromFloat(r, g, b float64) types.Color {
	return types.Color{R: channel(r), G: channel(g), B: channel(b)}
}

func channel(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// Lab returns the CIE Lab coordinates of c (D65, L in [0,100]).
func Lab(c types.Color) (l, a, b float64) {
	l, a, b = toColorful(c).Lab()
	return l * 100, a * 100, b * 100
}

// Difference returns the CIEDE2000 distance between two colors on the
// 0-100 Lab scale.
func Difference(a, b types.Color) float64 {
	return toColorful(a).DistanceCIEDE2000(toColorful(b)) * 100
}

// Distance parses both hex strings and returns their CIEDE2000 distance.
// The error names the argument that failed to parse.
func Distance(colorA, colorB string) (float64, error) {
	a, ok := ParseHex(colorA)
	if !ok {
		return 0, fmt.Errorf("colorA: %s is not a valid color hex: %w", colorA, ErrInvalidHex)
	}
	b, ok := ParseHex(colorB)
	if !ok {
		return 0, fmt.Errorf("colorB: %s is not a valid color hex: %w", colorB, ErrInvalidHex)
	}
	return Difference(a, b), nil
}

// VisuallySame reports whether the two colors are within VisuallySameThreshold.
func VisuallySame(colorA, colorB string) (bool, error) {
	d, err := Distance(colorA, colorB)
	if err != nil {
		return false, err
	}
	return d <= VisuallySameThreshold, nil
}

func toColorful(c types.Color) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}
