package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tempmail-bot/core/telegram"
	"github.com/m3rciful/tempmail-bot/core/telegram/middleware"
)

// TextOptions holds the handlers for text and documents nobody claimed.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// fallbackHandler runs h under name, or only logs a skip when h is nil.
func fallbackHandler(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := summary{handler: name, start: time.Now()}
		if h == nil {
			s.status = "skip"
			s.log(c, nil)
			return nil
		}
		return s.run(c, func() error { return h(c) })
	}
}

// TextRoutes handles plain text and documents. Text equal to a public
// command or one of its aliases runs that command; admin commands are only
// reachable through their own endpoint.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	unknown := fallbackHandler("unknown_text", opts.UnknownText)

	text := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				s := summary{handler: handlerName(key), start: time.Now()}
				return s.run(c, func() error { return cmd.Handler(c) })
			}
		}
		return unknown(c)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(fallbackHandler("unexpected_document", opts.UnknownDocument))},
	}
}
