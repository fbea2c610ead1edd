package config

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/todols/internal/highlight"
)

// DefaultKeyword is highlighted when no configuration names any keyword.
const DefaultKeyword = "TODO"

// Config is the decoded initialization options.
type Config struct {
	// Highlights maps keyword text to its colors. Never empty.
	Highlights map[string]highlight.Colors
}

// DefaultHighlights returns the built-in keyword table.
func DefaultHighlights() map[string]highlight.Colors {
	return map[string]highlight.Colors{DefaultKeyword: highlight.DefaultColors()}
}

// Default returns the configuration used when nothing is supplied.
func Default() Config {
	return Config{Highlights: DefaultHighlights()}
}

// Parse decodes initialization options, falling back to DefaultHighlights.
func Parse(raw json.RawMessage) Config {
	return ParseWithDefaults(raw, DefaultHighlights())
}

// ParseWithDefaults decodes initialization options. When raw is absent,
// null, has no highlights, or contains any malformed entry, the result is a
// copy of defaults. Parsing never fails.
func ParseWithDefaults(raw json.RawMessage, defaults map[string]highlight.Colors) Config {
	if hl, ok := decodeHighlights(raw); ok {
		return Config{Highlights: hl}
	}

	hl := make(map[string]highlight.Colors, len(defaults))
	for k, v := range defaults {
		hl[k] = v
	}
	return Config{Highlights: hl}
}

// decodeHighlights is the strict stage: every entry must be an object whose
// optional background is a valid hex string.
func decodeHighlights(raw json.RawMessage) (map[string]highlight.Colors, bool) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, false
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, false
	}
	table := root.Get("highlights")
	if !table.IsObject() {
		return nil, false
	}

	out := make(map[string]highlight.Colors)
	valid := true
	table.ForEach(func(key, entry gjson.Result) bool {
		colors, ok := decodeColors(entry)
		if !ok {
			valid = false
			return false
		}
		out[key.String()] = colors
		return true
	})

	if !valid || len(out) == 0 {
		return nil, false
	}
	return out, true
}

func decodeColors(entry gjson.Result) (highlight.Colors, bool) {
	if !entry.IsObject() {
		return highlight.Colors{}, false
	}

	colors := highlight.DefaultColors()
	bg := entry.Get("background")
	if !bg.Exists() {
		return colors, true
	}
	if bg.Type != gjson.String {
		return highlight.Colors{}, false
	}
	c, err := ParseHexColor(bg.String())
	if err != nil {
		return highlight.Colors{}, false
	}
	colors.Background = c
	return colors, true
}

// Keywords returns the configured keywords in sorted order.
func (c Config) Keywords() []string {
	keywords := make([]string, 0, len(c.Highlights))
	for k := range c.Highlights {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	return keywords
}

// String renders the table as "KW=#RRGGBBAA" pairs in keyword order.
func (c Config) String() string {
	var b strings.Builder
	b.WriteString("highlights:")
	for _, k := range c.Keywords() {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(c.Highlights[k].Background.String())
	}
	return b.String()
}
