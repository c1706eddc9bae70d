package navigation

import (
	"errors"
	"strings"
)

// Kind names a button action. The value doubles as the callback unique key.
type Kind string

const (
	KindStart    Kind = "start"
	KindGenerate Kind = "generate"
	KindMyEmails Kind = "my_emails"
	KindView     Kind = "view"
	KindPrev     Kind = "prev"
	KindNext     Kind = "next"
	KindNoop     Kind = "noop"
	KindCheck    Kind = "check"
	KindRead     Kind = "read"
	KindCopy     Kind = "copy"
	KindDelete   Kind = "delete"
	KindHelp     Kind = "help"
	KindBack     Kind = "back"
)

// Kinds lists every callback kind in registration order.
var Kinds = []Kind{
	KindGenerate, KindMyEmails, KindView, KindPrev, KindNext, KindNoop,
	KindCheck, KindRead, KindCopy, KindDelete, KindHelp, KindBack,
}

const payloadSep = "|"

// ErrBadAction is returned for callback data that does not decode to an Action.
var ErrBadAction = errors.New("navigation: malformed action")

// Action is a decoded button press.
type Action struct {
	Kind      Kind
	Address   string
	MessageID string
}

func (k Kind) needsAddress() bool {
	switch k {
	case KindView, KindPrev, KindNext, KindCheck, KindRead, KindCopy, KindDelete:
		return true
	}
	return false
}

// Unique returns the callback unique key.
func (a Action) Unique() string { return string(a.Kind) }

// Payload returns the callback payload.
func (a Action) Payload() string {
	if a.Kind == KindRead {
		return a.Address + payloadSep + a.MessageID
	}
	if a.Kind.needsAddress() {
		return a.Address
	}
	return ""
}

// ParseAction decodes a unique key and payload produced by Unique and Payload.
// The read payload is split at the last separator; message ids never contain it.
func ParseAction(unique, payload string) (Action, error) {
	kind := Kind(unique)
	switch kind {
	case KindStart, KindGenerate, KindMyEmails, KindNoop, KindHelp, KindBack:
		return Action{Kind: kind}, nil
	case KindRead:
		i := strings.LastIndex(payload, payloadSep)
		if i <= 0 || i == len(payload)-1 {
			return Action{}, ErrBadAction
		}
		return Action{Kind: kind, Address: payload[:i], MessageID: payload[i+1:]}, nil
	}
	if !kind.needsAddress() || payload == "" {
		return Action{}, ErrBadAction
	}
	return Action{Kind: kind, Address: payload}, nil
}

var legacyPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"check_", KindCheck},
	{"read_", KindRead},
	{"prev_", KindPrev},
	{"next_", KindNext},
	{"view_", KindView},
	{"copy_", KindCopy},
	{"delete_", KindDelete},
}

// ParseLegacy decodes the flat action codes used by older keyboards,
// e.g. "view_a@b.c" or "read_a@b.c_<id>". The read code is split at the last
// underscore, so addresses containing underscores still resolve.
func ParseLegacy(data string) (Action, bool) {
	switch Kind(data) {
	case KindGenerate, KindMyEmails, KindHelp, KindBack, KindNoop:
		return Action{Kind: Kind(data)}, true
	}
	for _, p := range legacyPrefixes {
		rest, ok := strings.CutPrefix(data, p.prefix)
		if !ok || rest == "" {
			continue
		}
		if p.kind != KindRead {
			return Action{Kind: p.kind, Address: rest}, true
		}
		i := strings.LastIndex(rest, "_")
		if i <= 0 || i == len(rest)-1 {
			return Action{}, false
		}
		return Action{Kind: KindRead, Address: rest[:i], MessageID: rest[i+1:]}, true
	}
	return Action{}, false
}
