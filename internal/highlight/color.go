// Package highlight maps keywords to colors and computes the column
// intervals that each keyword match paints.
package highlight

import "fmt"

// ColorType selects a role within Colors.
type ColorType uint8

const (
	// Background is the fill behind the highlighted text.
	Background ColorType = iota
)

// String returns the role name.
func (t ColorType) String() string {
	switch t {
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// Color is an RGBA color with 8-bit channels.
type Color struct {
	R, G, B, A uint8
}

// DefaultBackground is used when a keyword has no configured background.
var DefaultBackground = Color{R: 134, G: 134, B: 134, A: 255}

// RGBA creates a color from its channels.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// String returns the color as #RRGGBBAA.
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// Colors is a keyword's palette entry.
type Colors struct {
	Background Color
}

// DefaultColors returns the entry used for keywords without explicit colors.
func DefaultColors() Colors {
	return Colors{Background: DefaultBackground}
}

// Get projects out the color for the given role.
func (c Colors) Get(t ColorType) (Color, bool) {
	switch t {
	case Background:
		return c.Background, true
	default:
		return Color{}, false
	}
}
