package router

import (
	"log/slog"

	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/callbacks"
	"github.com/m3rciful/walkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		_ = c.Respond()

		sum := newSummary("callback."+normalizeHandlerName(key), slog.String("cb_key", key))
		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			sum.extras = append(sum.extras, slog.String("reason", "not_found"))
			if h = reg.CallbackNotFound(); h == nil {
				h = opts.NotFound
			}
		}
		if h == nil {
			sum.skip(c)
			return nil
		}
		return sum.run(c, func() error { return h(c) })
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
