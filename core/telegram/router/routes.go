package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tempmail-bot/core/telegram"
)

// Fallbacks answers updates that no registered command or callback matches.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Options configures All.
type Options struct {
	Fallbacks Fallbacks
	// Deferred is passed to CallbackRoute.
	Deferred map[string]bool
	Commands CommandRouteOptions
}

// All returns the callback, command and text routes for reg.
func All(reg *tg.Registry, opts Options) []tg.Route {
	var cbOpts CallbackOptions
	var textOpts TextOptions
	if fb := opts.Fallbacks; fb != nil {
		cbOpts.NotFound = fb.UnknownCallback()
		textOpts.UnknownText = fb.UnknownText()
		textOpts.UnknownDocument = fb.UnknownDocument()
	}
	cbOpts.Deferred = opts.Deferred

	routes := []tg.Route{CallbackRoute(reg, cbOpts)}
	routes = append(routes, CommandRoutes(reg, opts.Commands)...)
	return append(routes, TextRoutes(reg, textOpts)...)
}
