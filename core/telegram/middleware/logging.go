package middleware

import (
	"log/slog"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const keyReceived = "walkbot.received"

// LoggerMiddleware opens the update context and writes one sampled debug line per update.
// Applying it twice to the same update logs once.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Get(keyReceived) != nil {
			return next(c)
		}
		c.Set(keyReceived, true)
		ctx := tghelpers.NewUpdateContext(c)
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	upd := c.Update()
	attrs = append(attrs, slog.String("kind", UpdateKind(upd)))
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil && upd.Message.Text != "":
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 256)))
	}
	return attrs
}

func messageKind(m *tele.Message) string {
	switch {
	case m.Voice != nil:
		return "voice"
	case m.Location != nil:
		return "location"
	case m.Photo != nil:
		return "photo"
	case m.Document != nil:
		return "document"
	case m.Text != "":
		return "text"
	}
	return "other"
}
