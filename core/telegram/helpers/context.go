package helpers

import (
	"context"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/minerva/core/logger"
)

const (
	contextKey = "logger_ctx"
	// KeyUpdateStart holds the time.Time at which the update entered the middleware chain.
	KeyUpdateStart = "update_start"
	// Channel is the channel name Telegram requests carry in logs and journal rows.
	Channel = "telegram"
)

// UserID returns the session key of the update sender ("tg:<id>"), or "" without a sender.
func UserID(c tele.Context) string {
	if c == nil || c.Sender() == nil {
		return ""
	}
	return "tg:" + strconv.FormatInt(c.Sender().ID, 10)
}

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by BuildContext, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx, true
	}
	return nil, false
}

// BuildContext constructs a context.Context from tele.Context, enriching it with
// rid, user and channel metadata for consistent service logging. The result is cached on c.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	ctx := context.Background()
	if c == nil {
		return ctx
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}

	ctx = logger.WithRID(ctx, logger.BuildRID(c.Update().ID, chatID, userID))
	ctx = logger.WithRequestMeta(ctx, UserID(c), Channel)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches stored context with handler metadata for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

// UpdateStart returns when the update entered the middleware chain, or fallback.
func UpdateStart(c tele.Context, fallback time.Time) time.Time {
	if c != nil {
		if t, ok := c.Get(KeyUpdateStart).(time.Time); ok {
			return t
		}
	}
	return fallback
}
