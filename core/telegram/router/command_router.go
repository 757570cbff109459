package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/walkbot/core/logger"
	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	Moderators        middleware.ModeratorOptions
	OnModeratorReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	modOpts := opts.Moderators
	if opts.OnModeratorReject != nil {
		modOpts.OnReject = opts.OnModeratorReject
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := summarized("cmd."+normalizeHandlerName(cmd), def.Handler)
		if def.ModeratorOnly {
			h = middleware.ModeratorOnlyMiddleware(modOpts)(h)
		}
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "routes",
		slog.Int("commands", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func summarized(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return newSummary(name).run(c, func() error { return h(c) })
	}
}
