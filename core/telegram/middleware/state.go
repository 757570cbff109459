package middleware

import (
	"log/slog"
	"slices"

	"github.com/m3rciful/walkbot/core/logger"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// StateGetter resolves the dialogue state of the update's sender.
type StateGetter interface {
	GetState(c tele.Context) string
}

// State returns a middleware that lets the update through only when the sender is in one of
// the allowed states. onMismatch may be nil to drop the update silently.
func State(mgr StateGetter, onMismatch tele.HandlerFunc, allowed ...string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			current := mgr.GetState(c)
			ctx := tghelpers.BuildContext(c)
			if slices.Contains(allowed, current) {
				logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "fsm.match",
					slog.String("state", current),
				)
				return next(c)
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "fsm.skip",
				slog.String("state", current),
				slog.Any("expected", allowed),
			)
			if onMismatch != nil {
				return onMismatch(c)
			}
			return nil
		}
	}
}
