package helpers

import (
	"context"

	"github.com/m3rciful/walkbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Keys under which per-update values live in tele.Context.
const (
	keyContext = "walkbot.ctx"
	keyRID     = "walkbot.rid"
)

// Meta derives logging metadata from the update behind c.
func Meta(c tele.Context) logger.Meta {
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	meta := logger.UpdateMeta(c.Update().ID, userID, chatID)
	if rid, _ := c.Get(keyRID).(string); rid != "" {
		meta.RID = rid
	}
	return meta
}

// NewUpdateContext starts the context of an update: fresh metadata, the TG logger and the rid
// pinned for the rest of the chain. It replaces anything stored before.
func NewUpdateContext(c tele.Context) context.Context {
	meta := Meta(c)
	c.Set(keyRID, meta.RID)
	ctx := logger.WithLogger(logger.WithMeta(context.Background(), meta), logger.TG)
	c.Set(keyContext, ctx)
	return ctx
}

// BuildContext returns the context stored for this update, creating it on first use.
func BuildContext(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(keyContext).(context.Context); ok && ctx != nil {
		return ctx
	}
	return NewUpdateContext(c)
}

// WithHandler tags the update context with the handler name for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" || c == nil {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(keyContext, ctx)
	return ctx
}
