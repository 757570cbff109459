package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/commands"
	"github.com/m3rciful/walkbot/core/telegram/middleware"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]interface{}
}

func textContext(id int, text string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: id, Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: 5},
			Chat:   &tele.Chat{ID: 5},
		}},
		store: map[string]interface{}{},
	}
}

func (c *fakeContext) Update() tele.Update               { return c.update }
func (c *fakeContext) Get(key string) interface{}        { return c.store[key] }
func (c *fakeContext) Set(key string, value interface{}) { c.store[key] = value }
func (c *fakeContext) Callback() *tele.Callback          { return c.update.Callback }
func (c *fakeContext) Respond(...*tele.CallbackResponse) error {
	return nil
}

func (c *fakeContext) Sender() *tele.User {
	switch {
	case c.update.Message != nil:
		return c.update.Message.Sender
	case c.update.Callback != nil:
		return c.update.Callback.Sender
	}
	return nil
}

func (c *fakeContext) Chat() *tele.Chat {
	if c.update.Message != nil {
		return c.update.Message.Chat
	}
	return nil
}

func (c *fakeContext) Text() string {
	if c.update.Message != nil {
		return c.update.Message.Text
	}
	return ""
}

type trace struct{ hits []string }

func (t *trace) handler(name string) tele.HandlerFunc {
	return func(tele.Context) error {
		t.hits = append(t.hits, name)
		return nil
	}
}

type fakeFSM struct {
	active bool
	tr     *trace
}

func (f *fakeFSM) InProgress(tele.Context) bool { return f.active }
func (f *fakeFSM) ManagerHandler(c tele.Context) error {
	return f.tr.handler("fsm")(c)
}

type fakeInterceptor struct {
	claim bool
	tr    *trace
}

func (f *fakeInterceptor) Intercepts(tele.Context) bool { return f.claim }
func (f *fakeInterceptor) Intercept(c tele.Context) error {
	return f.tr.handler("intercept")(c)
}

func routeFor(routes []tg.Route, endpoint string) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestMessageRoutesPriority(t *testing.T) {
	tr := &trace{}
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{
		Handler:     tr.handler("cancel"),
		Description: "Cancel",
		Aliases:     []string{"Cancel"},
	}))
	fsm := &fakeFSM{tr: tr}
	icpt := &fakeInterceptor{tr: tr}
	routes := MessageRoutes(fsm, reg, MessageOptions{
		Interceptor:  icpt,
		UnknownText:  tr.handler("unknown_text"),
		UnknownMedia: tr.handler("unknown_media"),
	})
	text := routeFor(routes, tele.OnText)
	require.NotNil(t, text)

	require.NoError(t, text(textContext(1, "hello")))
	fsm.active = true
	require.NoError(t, text(textContext(2, "hello")))
	require.NoError(t, text(textContext(3, "cancel")))
	require.NoError(t, text(textContext(4, "/unknown")))
	icpt.claim = true
	require.NoError(t, text(textContext(5, "cancel")))

	require.Equal(t, []string{"unknown_text", "fsm", "cancel", "unknown_text", "intercept"}, tr.hits)
}

func TestMessageRoutesMedia(t *testing.T) {
	tr := &trace{}
	fsm := &fakeFSM{tr: tr}
	routes := MessageRoutes(fsm, nil, MessageOptions{UnknownMedia: tr.handler("unknown_media")})
	voice := routeFor(routes, tele.OnVoice)
	require.NotNil(t, voice)
	require.NotNil(t, routeFor(routes, tele.OnLocation))
	require.NotNil(t, routeFor(routes, tele.OnPhoto))

	require.NoError(t, voice(textContext(10, "")))
	fsm.active = true
	require.NoError(t, voice(textContext(11, "")))
	require.Equal(t, []string{"unknown_media", "fsm"}, tr.hits)
}

func TestCallbackRoute(t *testing.T) {
	tr := &trace{}
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallback("submit", tr.handler("submit")))
	route := CallbackRoute(reg, CallbackOptions{NotFound: tr.handler("not_found")})

	cb := func(id int, data string) *fakeContext {
		return &fakeContext{
			update: tele.Update{ID: id, Callback: &tele.Callback{Data: data, Sender: &tele.User{ID: 5}}},
			store:  map[string]interface{}{},
		}
	}
	require.NoError(t, route.Handler(cb(20, "\fsubmit")))
	require.NoError(t, route.Handler(cb(21, "\fmissing|1")))
	require.Equal(t, []string{"submit", "not_found"}, tr.hits)
}

func TestCommandRoutesModeratorOnly(t *testing.T) {
	tr := &trace{}
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{
		Handler:       tr.handler("stats"),
		Description:   "Stats",
		ModeratorOnly: true,
	}))
	routes := CommandRoutes(reg, CommandRouteOptions{
		Moderators:        middleware.ModeratorOptions{ModeratorIDs: []int64{9}},
		OnModeratorReject: tr.handler("forbidden"),
	})
	h := routeFor(routes, "/stats")
	require.NotNil(t, h)

	require.NoError(t, h(textContext(30, "/stats")))
	require.Equal(t, []string{"forbidden"}, tr.hits)
}

type fallbacks struct{ tr *trace }

func (f fallbacks) UnknownText() tele.HandlerFunc     { return f.tr.handler("unknown_text") }
func (f fallbacks) UnknownMedia() tele.HandlerFunc    { return f.tr.handler("unknown_media") }
func (f fallbacks) UnknownCallback() tele.HandlerFunc { return f.tr.handler("unknown_callback") }

func TestRoutesUseFallbacks(t *testing.T) {
	tr := &trace{}
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{Handler: tr.handler("help"), Description: "Help"}))
	routes := Routes(reg, &fakeFSM{tr: tr}, Options{Fallbacks: fallbacks{tr: tr}})

	require.NotNil(t, routeFor(routes, "/help"))
	require.NoError(t, routeFor(routes, tele.OnText)(textContext(40, "hi")))
	require.NoError(t, routeFor(routes, tele.OnPhoto)(textContext(41, "")))
	cb := &fakeContext{
		update: tele.Update{ID: 42, Callback: &tele.Callback{Data: "\fgone", Sender: &tele.User{ID: 5}}},
		store:  map[string]interface{}{},
	}
	require.NoError(t, routeFor(routes, tele.OnCallback)(cb))
	require.Equal(t, []string{"unknown_text", "unknown_media", "unknown_callback"}, tr.hits)
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "gateway send" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	require.Equal(t, "", deriveErrorCode(nil))
	require.Equal(t, "GATEWAY_SEND", deriveErrorCode(codedErr{}))
	require.Equal(t, "GATEWAY_SEND", deriveErrorCode(errors.Join(errors.New("ctx"), codedErr{})))
	require.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
}
