package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tempmail-bot/core/telegram"
	"github.com/m3rciful/tempmail-bot/core/telegram/callbacks"
	"github.com/m3rciful/tempmail-bot/core/telegram/middleware"
)

// CallbackOptions configures CallbackRoute.
type CallbackOptions struct {
	// NotFound handles keys missing from the registry. Defaults to the
	// registry fallback.
	NotFound tele.HandlerFunc
	// Deferred lists keys whose handlers answer the callback themselves,
	// e.g. to show an alert. Every other key is answered before its handler
	// runs so the client spinner stops at once.
	Deferred map[string]bool
}

// CallbackRoute dispatches every inline button press through reg.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	notFound := opts.NotFound
	if notFound == nil {
		notFound = reg.CallbackNotFound()
	}

	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		s := summary{
			handler: "callback." + handlerName(key),
			start:   time.Now(),
			extras:  []slog.Attr{slog.String("cb_key", key)},
		}

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			s.extras = append(s.extras, slog.String("reason", "not_found"))
			if notFound == nil {
				return s.run(c, func() error { return c.Respond() })
			}
			return s.run(c, func() error { return notFound(c) })
		}
		if !opts.Deferred[key] {
			_ = c.Respond()
		}
		return s.run(c, func() error { return h(c) })
	}

	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
