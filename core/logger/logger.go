// Package logger emits one structured line per event. Every line carries a
// component and an event name plus whatever correlation data the context
// holds for the Telegram update being served.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/tempmail-bot/core/buildinfo"
	coreconfig "github.com/m3rciful/tempmail-bot/core/config"
)

var (
	mu      sync.Mutex
	started bool
	stopped bool
	out     *asyncWriter
	files   []io.Closer

	level        slog.LevelVar
	debugSampler = newRatioSampler(1, 50)
	traceAll     bool

	// L is the base logger. It stays nil until InitLogger runs, and every
	// helper in this package is a no-op until then.
	L *slog.Logger
)

type settings struct {
	format  logFormat
	level   slog.Level
	order   []string
	profile string
	// debug sampling ratio, 0/0 lets everything through
	sampleNum, sampleDen int
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		level:     slog.LevelInfo,
		order:     defaultKeyOrder,
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.sampleNum, s.sampleDen = parseRatioSpec(spec)
	}
	return s
}

// InitLogger installs the process logger from cfg. Only the first call has
// an effect.
func InitLogger(cfg *coreconfig.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return nil
	}
	started = true

	s := settingsFrom(cfg)
	level.Set(s.level)
	debugSampler.Set(s.sampleNum, s.sampleDen)
	traceAll = envFlag("LOG_TRACE") || envFlag("TRACE")

	sinks, closers := openSinks(cfg)
	files = closers
	out = newAsyncWriter(sinks, 64<<10)

	L = slog.New(newHandler(handlerOptions{
		level:  &level,
		writer: out,
		format: s.format,
		order:  s.order,
	}))
	slog.SetDefault(L)

	startup := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		startup = append(startup, slog.String("mode", cfg.Telegram.RunMode))
	}
	LogEvent(context.Background(), L.With("component", "app"), slog.LevelInfo, "startup", startup...)
	return nil
}

// openSinks always writes to stdout. A log file is added when both dir and
// bot_file are set; failing to open it is reported but not fatal.
func openSinks(cfg *coreconfig.Config) ([]io.Writer, []io.Closer) {
	sinks := []io.Writer{os.Stdout}
	if cfg == nil {
		return sinks, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	name := strings.TrimSpace(cfg.Logging.BotFile)
	if dir == "" || name == "" {
		return sinks, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create %s: %v", dir, err)
		return sinks, nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open %s: %v", path, err)
		return sinks, nil
	}
	return append(sinks, f), []io.Closer{f}
}

// Shutdown drains pending lines and closes the log file.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if stopped {
		return nil
	}
	stopped = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Component returns L tagged with component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes event at lvl. A nil log falls back to the context logger.
func LogEvent(ctx context.Context, lg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if lg == nil {
		lg = FromContext(ctx)
	}
	if lg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	lg.LogAttrs(ctx, lvl, "", attrs...)
}

func emit(ctx context.Context, component string, lvl slog.Level, event string, attrs []slog.Attr) {
	lg := Component(component)
	if lg == nil {
		if lg = FromContext(ctx); lg != nil && strings.TrimSpace(component) != "" {
			lg = lg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, lg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelDebug, event, attrs)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelInfo, event, attrs)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelWarn, event, attrs)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelError, event, attrs)
}

// ShouldSampleDebug reports whether a high volume debug event should be
// written. LOG_TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
