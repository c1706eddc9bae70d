package logger

import (
	"log/slog"
	"strings"
)

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

type enumRule struct {
	values map[string]bool
	// keepUnknown leaves unrecognised values in place instead of dropping them.
	keepUnknown bool
}

func oneOf(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

var enums = map[string]enumRule{
	"status":  {values: oneOf("ok", "fail", "skip", "retry", "rate_limited", "cancelled"), keepUnknown: true},
	"outcome": {values: oneOf("ok", "fail", "cancelled", "rate_limited")},
	"cache":   {values: oneOf("hit", "miss", "refresh")},
}

func (e entry) checkEnums() {
	for key, rule := range enums {
		raw, ok := e[key].(string)
		if !ok || raw == "" {
			continue
		}
		switch v := strings.ToLower(strings.TrimSpace(raw)); {
		case rule.values[v]:
			e[key] = v
		case !rule.keepUnknown:
			delete(e, key)
		}
	}
}

// secretKeys are replaced before encoding, whatever group they sit in.
// Mailbox passwords and bearer tokens pass through several layers.
var secretKeys = map[string]struct{}{
	"token":         {},
	"password":      {},
	"authorization": {},
	"bot_token":     {},
}

const redacted = "[redacted]"

var defaultKeyOrder = strings.Fields(`
	ts level component event status rid rid_full ts_unix_nano
	update_id user_id chat_id chat_type handler operation op cb_key outcome duration_ms
	messages kb count page pages cache payload lang username
	mode listen public_url http_code db host port driver
	address domain message_id total users sessions shared
	err err_code error_kind cause retryable attempts backoff_ms
	rate_limited collapsed repeats pending_count
`)
