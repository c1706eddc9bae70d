package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type handlerOptions struct {
	level  slog.Leveler
	writer *asyncWriter
	format logFormat
	order  []string
}

type field struct {
	key string
	val any
}

// handler flattens every record into a single map keyed by dotted attr
// names and hands it to the encoder for the configured format.
type handler struct {
	opts   handlerOptions
	preset []field
	prefix string
}

func newHandler(opts handlerOptions) *handler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = defaultKeyOrder
	}
	return &handler{opts: opts}
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.opts.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append([]field(nil), h.preset...)
	for _, a := range attrs {
		flatten(h.prefix, a, func(f field) { clone.preset = append(clone.preset, f) })
	}
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	isJSON := h.opts.format == formatJSON

	e := make(entry, 16+len(h.preset))
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	e["level"] = levelName(r.Level)
	if isJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}
	for _, f := range h.preset {
		e[f.key] = f.val
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, func(f field) { e[f.key] = f.val })
		return true
	})
	e.fillContext(ctx)
	e.finish(r.Message, isJSON)

	var (
		line []byte
		err  error
	)
	if isJSON {
		line, err = encodeJSON(e, h.opts.order)
	} else {
		line = encodeKV(e, h.opts.order)
	}
	if err != nil {
		return err
	}
	return h.opts.writer.Write(append(line, '\n'))
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// flatten walks groups depth first and emits one field per leaf.
func flatten(prefix string, a slog.Attr, emit func(field)) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(key, child, emit)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := normalize(key, v); ok {
		emit(field{k, val})
	}
}

// normalize converts v into a JSON friendly value. Durations become integer
// milliseconds under a key ending in _ms.
func normalize(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u > math.MaxInt64 {
			return key, u, true
		}
		return key, int64(v.Uint64()), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

type entry map[string]any

func (e entry) str(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (e entry) setDefault(key string, val any, present bool) {
	if _, ok := e[key]; present && !ok {
		e[key] = val
	}
}

func (e entry) fillContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	m := metaFrom(ctx)
	e.setDefault("rid", m.rid, m.rid != "")
	e.setDefault("update_id", m.updateID, m.updateID != 0)
	e.setDefault("user_id", m.userID, m.userID != 0)
	e.setDefault("chat_id", m.chatID, m.chatID != 0)
	e.setDefault("handler", m.handler, m.handler != "")
}

// finish applies the line schema: compact rid, mandatory event and
// component, enum checks, secret redaction, and dropping empty values.
func (e entry) finish(msg string, keepFullRID bool) {
	if rid := e.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if keepFullRID {
				e.setDefault("rid_full", rid, true)
			}
			e["rid"] = compact
		}
	}
	if e.str("event") == "" {
		e["event"] = msg
		if msg == "" {
			e["event"] = "unknown"
		}
	}
	if e.str("component") == "" {
		e["component"] = "app"
	}
	e.checkEnums()
	e.redact()
	for k, v := range e {
		if v == nil || v == "" {
			delete(e, k)
		}
	}
}

func (e entry) redact() {
	for k := range e {
		leaf := k
		if i := strings.LastIndexByte(k, '.'); i >= 0 {
			leaf = k[i+1:]
		}
		if _, ok := secretKeys[strings.ToLower(leaf)]; ok {
			e[k] = redacted
		}
	}
}
