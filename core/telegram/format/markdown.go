// Package format holds text helpers for Telegram's legacy Markdown mode.
package format

import (
	"regexp"
	"strings"
)

var mdSpecials = regexp.MustCompile("([_*`\\[])")

// Escape escapes text for the legacy Markdown parse mode.
// Use it for user-controlled text placed outside entities.
func Escape(text string) string {
	return mdSpecials.ReplaceAllString(text, `\$1`)
}

// Code wraps text in a legacy Markdown code entity. Backticks cannot be
// escaped inside an entity, so they are dropped.
func Code(text string) string {
	return "`" + strings.ReplaceAll(text, "`", "") + "`"
}
