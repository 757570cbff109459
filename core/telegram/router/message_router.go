package router

import (
	"strings"

	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for a dialogue manager.
type FSM interface {
	InProgress(c tele.Context) bool
	ManagerHandler(c tele.Context) error
}

// Interceptor claims messages before any other routing, e.g. a reply the bot explicitly asked for.
type Interceptor interface {
	Intercepts(c tele.Context) bool
	Intercept(c tele.Context) error
}

// MessageOptions controls fallback behaviour for message updates.
type MessageOptions struct {
	Interceptor  Interceptor
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// MessageRoutes builds handlers for text, voice, location, photo and document updates.
// Priority: interceptor, command alias, active dialogue, fallback.
func MessageRoutes(fsmMgr FSM, reg *tg.Registry, opts MessageOptions) []tg.Route {
	text := func(c tele.Context) error {
		if opts.Interceptor != nil && opts.Interceptor.Intercepts(c) {
			return newSummary("intercept").run(c, func() error { return opts.Interceptor.Intercept(c) })
		}

		msg := strings.TrimSpace(c.Text())
		if strings.HasPrefix(msg, "/") {
			return unknown(c, "unknown_command", reg, opts.UnknownText)
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupAlias(msg); ok && cmd.Handler != nil {
				return newSummary("alias."+normalizeHandlerName(key)).run(c, func() error { return cmd.Handler(c) })
			}
		}

		if fsmMgr != nil && fsmMgr.InProgress(c) {
			return newSummary("fsm").run(c, func() error { return fsmMgr.ManagerHandler(c) })
		}

		return unknown(c, "unknown_text", reg, opts.UnknownText)
	}

	media := func(c tele.Context) error {
		if opts.Interceptor != nil && opts.Interceptor.Intercepts(c) {
			return newSummary("intercept").run(c, func() error { return opts.Interceptor.Intercept(c) })
		}
		if fsmMgr != nil && fsmMgr.InProgress(c) {
			return newSummary("fsm_media").run(c, func() error { return fsmMgr.ManagerHandler(c) })
		}
		sum := newSummary("unexpected_media")
		if opts.UnknownMedia == nil {
			sum.skip(c)
			return nil
		}
		return sum.run(c, func() error { return opts.UnknownMedia(c) })
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnVoice, Handler: wrap(media)},
		{Endpoint: tele.OnLocation, Handler: wrap(media)},
		{Endpoint: tele.OnPhoto, Handler: wrap(media)},
		{Endpoint: tele.OnDocument, Handler: wrap(media)},
	}
}

func unknown(c tele.Context, name string, reg *tg.Registry, fallback tele.HandlerFunc) error {
	if reg != nil {
		if fb := reg.TextFallback(); fb != nil {
			fallback = fb
		}
	}
	sum := newSummary(name)
	if fallback == nil {
		sum.skip(c)
		return nil
	}
	return sum.run(c, func() error { return fallback(c) })
}
