package report

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Brand palette
const (
	ColorPrimary   = "#001749"
	ColorSecondary = "#e48410"
	ColorAccent1   = "#3787c6"
	ColorAccent2   = "#015cd0"

	ColorStarOn  = "#fbbf24"
	ColorStarOff = "#d1d5db"
	ColorText    = "#1f2937"
	ColorMuted   = "#6b7280"
	ColorBorder  = "#e5e7eb"
	ColorRowAlt  = "#f9fafb"
	ColorWhite   = "#ffffff"
)

// LogoURL is the brand logo shown on the cover
const LogoURL = "https://lh3.googleusercontent.com/d/1idgiPohtekZVIYJ-pmza9PSQqEamUvfH=w2048"

// Delinquency levels
const (
	DelinquencyOK   = "ok"
	DelinquencyWarn = "warn"
	DelinquencyHigh = "high"
)

var scoreColors = map[int]string{
	5: "#22c55e",
	4: "#3b82f6",
	3: "#f59e0b",
	2: "#f97316",
	1: "#ef4444",
}

var advisorSeriesColors = []string{"#22c55e", "#3b82f6", "#f59e0b", "#ef4444", "#8b5cf6"}

// ScoreColor returns the badge colour of a tier (gray when out of range)
func ScoreColor(score int) string {
	if c, ok := scoreColors[score]; ok {
		return c
	}
	return ColorMuted
}

// SeriesColor cycles through the chart colours by advisor index
func SeriesColor(i int) string {
	if i < 0 {
		i = -i
	}
	return advisorSeriesColors[i%len(advisorSeriesColors)]
}

// DelinquencyLevel classifies a delinquency percentage: >10 high, >5 warn
func DelinquencyLevel(pct float64) string {
	switch {
	case pct > 10:
		return DelinquencyHigh
	case pct > 5:
		return DelinquencyWarn
	default:
		return DelinquencyOK
	}
}

// DelinquencyColor is the text colour of a delinquency percentage
func DelinquencyColor(pct float64) string {
	switch DelinquencyLevel(pct) {
	case DelinquencyHigh:
		return "#ef4444"
	case DelinquencyWarn:
		return "#f59e0b"
	default:
		return "#22c55e"
	}
}

// ParseHex converts "#rrggbb" (or "#rgb") into an opaque colour
func ParseHex(hex string) (color.RGBA, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustHex is ParseHex for the compile-time palette
func MustHex(hex string) color.RGBA {
	c, err := ParseHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}
