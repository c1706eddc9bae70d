// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// MaxCallbackData is Telegram's limit on the callback data of one button,
// counted over the encoded "\f<unique>|<data>" form.
const MaxCallbackData = 64

// Button is an inline button that reports Unique as its callback key and
// Data as the payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// CallbackLen is the encoded callback data length of b.
func (b Button) CallbackLen() int {
	n := 1 + len(b.Unique)
	if b.Data != "" {
		n += 1 + len(b.Data)
	}
	return n
}

// Inline lays rows out as an inline keyboard. Empty rows are skipped.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	kb := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data})
		}
		kb = append(kb, line)
	}
	return &tele.ReplyMarkup{InlineKeyboard: kb}
}
