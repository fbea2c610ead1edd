package config

import (
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/todols/internal/highlight"
)

// ParseHexColor parses #RGB, #RGBA, #RRGGBB or #RRGGBBAA. The alpha channel
// defaults to 255.
func ParseHexColor(s string) (highlight.Color, error) {
	if len(s) == 0 || s[0] != '#' {
		return highlight.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	rgb, alpha := s, "ff"
	switch len(s) {
	case 4, 7:
	case 5:
		rgb, alpha = s[:4], s[4:]+s[4:]
	case 9:
		rgb, alpha = s[:7], s[7:]
	default:
		return highlight.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	c, err := colorful.Hex(rgb)
	if err != nil {
		return highlight.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	a, err := strconv.ParseUint(alpha, 16, 8)
	if err != nil {
		return highlight.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	r, g, b := c.RGB255()
	return highlight.RGBA(r, g, b, uint8(a)), nil
}
