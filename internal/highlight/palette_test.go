package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorProvider_Lookup(t *testing.T) {
	p := NewColorProvider(map[string]Colors{
		"TODO":  DefaultColors(),
		"FIXME": {Background: RGBA(184, 184, 14, 255)},
	})

	c, ok := p.Lookup("FIXME", Background)
	assert.True(t, ok)
	assert.Equal(t, RGBA(184, 184, 14, 255), c)

	c, ok = p.Lookup("TODO", Background)
	assert.True(t, ok)
	assert.Equal(t, DefaultBackground, c)

	_, ok = p.Lookup("todo", Background)
	assert.False(t, ok, "lookup is case-sensitive")

	_, ok = p.Lookup("FIXME", ColorType(42))
	assert.False(t, ok)
}

func TestColorProvider_UpdateMerges(t *testing.T) {
	p := NewColorProvider(map[string]Colors{"TODO": DefaultColors()})

	p.Update(map[string]Colors{
		"TODO": {Background: RGBA(255, 255, 255, 255)},
		"BUG":  {Background: RGBA(255, 0, 0, 255)},
	})

	assert.Equal(t, []string{"BUG", "TODO"}, p.Keywords())
	assert.Equal(t, 2, p.Len())

	c, _ := p.Lookup("TODO", Background)
	assert.Equal(t, RGBA(255, 255, 255, 255), c)
}

func TestColor_String(t *testing.T) {
	assert.Equal(t, "#868686FF", DefaultBackground.String())
	assert.Equal(t, "background", Background.String())
}
