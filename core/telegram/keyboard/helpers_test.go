package keyboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	m := Inline(
		[]Button{{Text: "A", Unique: "view", Data: "a@x.io"}},
		nil,
		[]Button{{Text: "B", Unique: "prev"}, {Text: "C", Unique: "next", Data: "b@x.io"}},
	)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "A", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "view", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "a@x.io", m.InlineKeyboard[0][0].Data)
	require.Len(t, m.InlineKeyboard[1], 2)
	assert.Empty(t, m.InlineKeyboard[1][0].Data)
	assert.Equal(t, "next", m.InlineKeyboard[1][1].Unique)
}

func TestCallbackLen(t *testing.T) {
	assert.Equal(t, 5, Button{Unique: "back"}.CallbackLen())
	assert.Equal(t, len("\fview|a@x.io"), Button{Unique: "view", Data: "a@x.io"}.CallbackLen())

	long := Button{Unique: "msg", Data: strings.Repeat("x", 60)}
	assert.Greater(t, long.CallbackLen(), MaxCallbackData)
}
