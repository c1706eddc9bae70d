package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tempmail-bot/core/logger"
)

const (
	ctxKey = "logger_ctx"
	ridKey = "rid"
)

// UpdateIDs returns the update id and the chat and user ids of c. Missing
// parts are zero.
func UpdateIDs(c tele.Context) (updateID int, chatID, userID int64) {
	updateID = c.Update().ID
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	return updateID, chatID, userID
}

// Attach builds the request context for the update behind c and stores it,
// together with its rid, on c. Handlers and services log through it.
func Attach(c tele.Context) (context.Context, string) {
	updateID, chatID, userID := UpdateIDs(c)
	rid := logger.BuildRID(updateID, chatID, userID)

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	c.Set(ridKey, rid)
	c.Set(ctxKey, ctx)
	return ctx, rid
}

// BuildContext returns the context stored by Attach, attaching one first
// when the update has none yet.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	ctx, _ := Attach(c)
	return ctx
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		c.Set(ctxKey, ctx)
	}
	return ctx
}
