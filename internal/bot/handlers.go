// Package bot binds the navigation engine to Telegram.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tempmail-bot/core/logger"
	tg "github.com/m3rciful/tempmail-bot/core/telegram"
	"github.com/m3rciful/tempmail-bot/core/telegram/callbacks"
	"github.com/m3rciful/tempmail-bot/core/telegram/commands"
	tghelpers "github.com/m3rciful/tempmail-bot/core/telegram/helpers"
	"github.com/m3rciful/tempmail-bot/core/telegram/keyboard"
	"github.com/m3rciful/tempmail-bot/core/telegram/router"
	"github.com/m3rciful/tempmail-bot/internal/navigation"
	"github.com/m3rciful/tempmail-bot/internal/session"
)

const component = "tg"

const (
	startHint       = "Send /start to open the menu."
	unsupported     = "Unsupported action"
	documentsIgnore = "Files are not supported. Send /start to open the menu."
)

// StatsSource reports storage totals for the admin command.
type StatsSource interface {
	Stats(ctx context.Context) (session.Stats, error)
}

// Handlers renders navigation screens as Telegram messages.
type Handlers struct {
	engine *navigation.Engine
	stats  StatsSource
}

var _ router.Fallbacks = (*Handlers)(nil)

// New returns handlers driving engine. stats may be nil, which disables /stats.
func New(engine *navigation.Engine, stats StatsSource) *Handlers {
	return &Handlers{engine: engine, stats: stats}
}

// Register adds the bot commands and one callback per action kind to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start": {Handler: h.Start, Description: "Open the main menu", Aliases: []string{"menu"}},
		"/help":  {Handler: h.Help, Description: "How to use the bot"},
	}
	if h.stats != nil {
		cmds["/stats"] = commands.Command{Handler: h.Stats, Description: "Storage statistics", AdminOnly: true, Hidden: true}
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}

	for _, kind := range navigation.Kinds {
		if err := reg.RegisterCallback(string(kind), h.Callback); err != nil {
			return fmt.Errorf("registering %s callback: %w", kind, err)
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	return nil
}

// DeferredCallbacks lists callback keys answered by the handler itself.
func DeferredCallbacks() map[string]bool {
	return map[string]bool{string(navigation.KindCopy): true}
}

// Start sends the main menu as a new message.
func (h *Handlers) Start(c tele.Context) error {
	return h.send(c, h.engine.Start())
}

// Help sends the help screen as a new message.
func (h *Handlers) Help(c tele.Context) error {
	return h.send(c, navigation.HelpScreen())
}

// Stats reports how many users and addresses the store holds.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := h.stats.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	text := fmt.Sprintf("📊 *Stats*\n\nUsers: %d\nEmails: %d", st.Users, st.Sessions)
	return tghelpers.SendMD(c, text)
}

// Callback decodes a structured button press and applies it.
func (h *Handlers) Callback(c tele.Context) error {
	unique, payload := callbacks.ParseCallbackData(c.Callback())
	a, err := navigation.ParseAction(unique, payload)
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), component, "callback.malformed",
			slog.String("cb_key", unique),
			slog.String("payload", logger.SanitizeLimit(payload, 128)),
		)
		if DeferredCallbacks()[unique] {
			_ = c.Respond(&tele.CallbackResponse{Text: unsupported})
		}
		return nil
	}
	return h.apply(c, a)
}

// UnknownCallback handles callback data no registered key matched, which
// covers keyboards sent before the structured encoding.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		var (
			a  navigation.Action
			ok bool
		)
		if callbacks.IsLegacy(cb.Data) {
			a, ok = navigation.ParseLegacy(cb.Data)
		}
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: unsupported})
		}
		if a.Kind != navigation.KindCopy {
			_ = c.Respond()
		}
		return h.apply(c, a)
	}
}

// UnknownText answers free text with a hint.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, startHint)
	}
}

// UnknownDocument answers uploads with a hint.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, documentsIgnore)
	}
}

func (h *Handlers) apply(c tele.Context, a navigation.Action) error {
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	if user == nil {
		return nil
	}

	if text := h.engine.Interim(a); text != "" {
		if err := tghelpers.EditText(c, text); err != nil && !tghelpers.IsNotModified(err) {
			renderFailed(ctx, a, err)
		}
	}

	reply := h.engine.Handle(ctx, user.ID, a)
	if reply.Popup != "" {
		if err := tghelpers.Alert(c, reply.Popup); err != nil {
			logger.Warn(ctx, component, "popup.fail",
				slog.String("cb_key", a.Unique()),
				slog.String("err", err.Error()),
			)
		}
	}
	if reply.Screen != nil {
		if err := tghelpers.EditMD(c, reply.Screen.Text, Markup(reply.Screen)); err != nil && !tghelpers.IsNotModified(err) {
			renderFailed(ctx, a, err)
		}
	}
	return nil
}

func (h *Handlers) send(c tele.Context, s *navigation.Screen) error {
	return tghelpers.SendMD(c, s.Text, Markup(s))
}

// renderFailed logs a failed edit; the user keeps the previous screen.
func renderFailed(ctx context.Context, a navigation.Action, err error) {
	logger.Warn(ctx, component, "render.fail",
		slog.String("status", "fail"),
		slog.String("cb_key", a.Unique()),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// Markup converts a screen keyboard to telebot inline buttons. Buttons
// whose callback data would exceed Telegram's limit are logged; Telegram
// rejects the whole message in that case.
func Markup(s *navigation.Screen) *tele.ReplyMarkup {
	if s == nil || len(s.Rows) == 0 {
		return nil
	}
	rows := make([][]keyboard.Button, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = make([]keyboard.Button, len(r))
		for j, b := range r {
			btn := keyboard.Button{Text: b.Text, Unique: b.Action.Unique(), Data: b.Action.Payload()}
			if btn.CallbackLen() > keyboard.MaxCallbackData {
				logger.Warn(context.Background(), component, "callback.too_long",
					slog.String("cb_key", btn.Unique),
					slog.Int("count", btn.CallbackLen()),
				)
			}
			rows[i][j] = btn
		}
	}
	return keyboard.Inline(rows...)
}
