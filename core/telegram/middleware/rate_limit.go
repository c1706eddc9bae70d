package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tempmail-bot/core/logger"
	tghelpers "github.com/m3rciful/tempmail-bot/core/telegram/helpers"
)

const (
	// idle users are forgotten after staleAfter once the map grows past sweepAt
	staleAfter = 10 * time.Minute
	sweepAt    = 1024
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds that bypass the limit: callback, message,
	// inline_query or other.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// intervalLimiter admits one update per user per interval.
type intervalLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	last map[int64]time.Time
}

func newIntervalLimiter(interval time.Duration) *intervalLimiter {
	return &intervalLimiter{interval: interval, last: make(map[int64]time.Time)}
}

func (l *intervalLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.last[userID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	l.last[userID] = now
	if len(l.last) > sweepAt {
		for id, at := range l.last {
			if now.Sub(at) > staleAfter {
				delete(l.last, id)
			}
		}
	}
	return true
}

func updateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	case u.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates that arrive from the same user faster
// than opts.Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := newIntervalLimiter(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip || lim.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
