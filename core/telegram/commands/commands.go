// Package commands describes slash commands kept in the registry.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a registered slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin id.
	AdminOnly bool
	// Hidden commands work but are not published to Telegram.
	Hidden  bool
	Aliases []string
}

// Visible reports whether the command belongs in the published command list.
func (c Command) Visible() bool {
	return !c.Hidden && !c.AdminOnly
}

// Matches reports whether name is one of the aliases, with or without the
// leading slash.
func (c Command) Matches(name string) bool {
	name = strings.TrimPrefix(name, "/")
	for _, alias := range c.Aliases {
		if strings.TrimPrefix(alias, "/") == name {
			return true
		}
	}
	return false
}
