package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisible(t *testing.T) {
	assert.True(t, Command{}.Visible())
	assert.False(t, Command{Hidden: true}.Visible())
	assert.False(t, Command{AdminOnly: true}.Visible())
}

func TestMatches(t *testing.T) {
	cmd := Command{Aliases: []string{"menu", "/home"}}

	assert.True(t, cmd.Matches("menu"))
	assert.True(t, cmd.Matches("/menu"))
	assert.True(t, cmd.Matches("home"))
	assert.False(t, cmd.Matches("/start"))
	assert.False(t, Command{}.Matches("menu"))
}
