package router

import (
	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/ui"
)

// Options assembles the per-router options.
type Options struct {
	Commands    CommandRouteOptions
	Interceptor Interceptor
	// Fallbacks answers updates no command, callback or dialogue claimed. Optional.
	Fallbacks ui.FallbackProvider
}

// Routes returns command, callback and message routes over reg in registration order.
func Routes(reg *tg.Registry, fsmMgr FSM, opts Options) []tg.Route {
	var (
		cbOpts  CallbackOptions
		msgOpts = MessageOptions{Interceptor: opts.Interceptor}
	)
	if fb := opts.Fallbacks; fb != nil {
		cbOpts.NotFound = fb.UnknownCallback()
		msgOpts.UnknownText = fb.UnknownText()
		msgOpts.UnknownMedia = fb.UnknownMedia()
	}
	routes := CommandRoutes(reg, opts.Commands)
	routes = append(routes, CallbackRoute(reg, cbOpts))
	return append(routes, MessageRoutes(fsmMgr, reg, msgOpts)...)
}
