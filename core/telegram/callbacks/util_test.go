package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseData(t *testing.T) {
	u, p := ParseData("\fread|a@x.io|m1")
	assert.Equal(t, "read", u)
	assert.Equal(t, "a@x.io|m1", p)

	u, p = ParseData("\fgenerate")
	assert.Equal(t, "generate", u)
	assert.Empty(t, p)

	u, p = ParseData("view_a@x.io")
	assert.Equal(t, "view_a@x.io", u)
	assert.Empty(t, p)
}

func TestParseCallbackDataPrefersUnique(t *testing.T) {
	u, p := ParseCallbackData(&tele.Callback{Unique: "check", Data: "a@x.io"})
	assert.Equal(t, "check", u)
	assert.Equal(t, "a@x.io", p)

	u, p = ParseCallbackData(nil)
	assert.Empty(t, u)
	assert.Empty(t, p)
}

func TestIsLegacy(t *testing.T) {
	assert.True(t, IsLegacy("delete_a@x.io"))
	assert.False(t, IsLegacy("\fdelete|a@x.io"))
	assert.False(t, IsLegacy(""))
}
