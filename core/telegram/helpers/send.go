package helpers

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tempmail-bot/core/logger"
	"github.com/m3rciful/tempmail-bot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes new messages sent through this package via d. Nil
// makes them synchronous again.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands run to the dispatcher. A full or closed queue degrades to
// sending inline rather than dropping the message.
func enqueue(c tele.Context, action string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, "sendMessage", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// markdown builds fresh send options around a copy of the keyboard.
// telebot encodes callback data into the buttons in place, so a retried
// send must not see the already encoded rows.
func markdown(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) == 0 || markup[0] == nil {
		return opts
	}
	rm := *markup[0]
	rm.InlineKeyboard = make([][]tele.InlineButton, len(markup[0].InlineKeyboard))
	for i, row := range markup[0].InlineKeyboard {
		rm.InlineKeyboard[i] = slices.Clone(row)
	}
	opts.ReplyMarkup = &rm
	return opts
}

// SendText sends text without a parse mode.
func SendText(c tele.Context, text string) error {
	return enqueue(c, "send.text", func() error { return c.Send(text) })
}

// SendMD sends Markdown text with an optional inline keyboard.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return enqueue(c, "send.md", func() error { return c.Send(text, markdown(markup)) })
}

// EditMD replaces the callback message with Markdown text and keyboard.
// Edits are synchronous so the caller can react to "not modified".
func EditMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Edit(text, markdown(markup))
}

// EditText replaces the callback message with plain text. Telegram drops
// the inline keyboard when an edit carries no markup.
func EditText(c tele.Context, text string) error {
	return c.Edit(text)
}

// Alert answers the current callback with a popup the user must dismiss.
func Alert(c tele.Context, text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}

// IsNotModified reports whether Telegram refused an edit that would leave
// the message unchanged.
func IsNotModified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, tele.ErrSameMessageContent) || strings.Contains(err.Error(), "message is not modified")
}
