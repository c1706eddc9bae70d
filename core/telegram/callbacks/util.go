package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits Telebot's \f<unique>|<payload> encoding.
// Only the first separator is significant; the payload may contain more.
func ParseData(data string) (string, string) {
	raw := strings.TrimPrefix(data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// ParseCallbackData returns unique and payload of cb. Telebot fills
// cb.Unique only when a handler is registered for that exact unique.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// IsLegacy reports whether data lacks the \f marker, as produced by
// keyboards built with plain callback strings.
func IsLegacy(data string) bool {
	return data != "" && !strings.HasPrefix(data, "\f")
}
