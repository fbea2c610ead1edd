package highlight

import "sort"

// Palette resolves matched keyword text to colors.
type Palette interface {
	// Lookup returns the color for the matched text in the given role.
	Lookup(text string, t ColorType) (Color, bool)

	// Update merges entries into the palette. Existing keywords are
	// overwritten; keywords absent from entries are kept.
	Update(entries map[string]Colors)

	// Keywords returns the configured keywords in sorted order.
	Keywords() []string
}

// ColorProvider is the map-backed Palette.
//
// ColorProvider is not safe for concurrent mutation; callers serialize
// Update against Lookup.
type ColorProvider struct {
	colors map[string]Colors
}

// NewColorProvider creates a palette seeded with entries.
func NewColorProvider(entries map[string]Colors) *ColorProvider {
	p := &ColorProvider{colors: make(map[string]Colors, len(entries))}
	p.Update(entries)
	return p
}

// Lookup returns the color for text. The lookup is exact and case-sensitive.
func (p *ColorProvider) Lookup(text string, t ColorType) (Color, bool) {
	colors, ok := p.colors[text]
	if !ok {
		return Color{}, false
	}
	return colors.Get(t)
}

// Update merges entries into the palette.
func (p *ColorProvider) Update(entries map[string]Colors) {
	for keyword, colors := range entries {
		p.colors[keyword] = colors
	}
}

// Keywords returns the configured keywords in sorted order.
func (p *ColorProvider) Keywords() []string {
	keywords := make([]string, 0, len(p.colors))
	for keyword := range p.colors {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return keywords
}

// Len returns the number of palette entries.
func (p *ColorProvider) Len() int {
	return len(p.colors)
}

// Ensure ColorProvider implements Palette.
var _ Palette = (*ColorProvider)(nil)
