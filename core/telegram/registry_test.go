package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/walkbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandValidates(t *testing.T) {
	reg := NewRegistry()
	require.ErrorIs(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "no slash"}), ErrInvalidRegistration)
	require.ErrorIs(t, reg.RegisterCommand("/new", commands.Command{Handler: noop}), ErrInvalidRegistration)
	require.NoError(t, reg.RegisterCommand("/new", commands.Command{Handler: noop, Description: "New", Aliases: []string{"📣 Invite"}}))
	require.ErrorIs(t, reg.RegisterCommand("/new", commands.Command{Handler: noop, Description: "duplicate"}), ErrInvalidRegistration)
	require.Len(t, reg.Commands(), 1)
	require.Equal(t, "New", reg.Commands()["/new"].Description)
}

func newMenuRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", ModeratorOnly: true}))
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Help"}))
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Cancel"}))
	require.NoError(t, reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true}))
	return reg
}

func TestMenuScopes(t *testing.T) {
	reg := newMenuRegistry(t)
	require.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Cancel"},
		{Text: "help", Description: "Help"},
	}, reg.Menu(false))
	require.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Cancel"},
		{Text: "help", Description: "Help"},
		{Text: "stats", Description: "Stats"},
	}, reg.Menu(true))
}

type menuRecorder struct {
	calls [][]interface{}
	err   error
}

func (m *menuRecorder) SetCommands(opts ...interface{}) error {
	m.calls = append(m.calls, opts)
	return m.err
}

func TestInitBotCommandsScopesModeratorChat(t *testing.T) {
	reg := newMenuRegistry(t)
	rec := &menuRecorder{}
	require.NoError(t, InitBotCommands(rec, reg, MenuOptions{ModeratorChatID: -500}))
	require.Len(t, rec.calls, 2)
	require.Len(t, rec.calls[0], 1)
	require.Len(t, rec.calls[0][0], 2)
	require.Len(t, rec.calls[1][0], 3)
	require.Equal(t, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: -500}, rec.calls[1][1])

	rec = &menuRecorder{err: errors.New("boom")}
	require.Error(t, InitBotCommands(rec, reg, MenuOptions{}))
	require.Len(t, rec.calls, 1)
}

func TestLookupAliasMatchesLabelsOnly(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/new", commands.Command{Handler: noop, Description: "New", Aliases: []string{"📣 Invite for a walk"}}))

	key, _, ok := reg.LookupAlias("  📣 invite for a walk ")
	require.True(t, ok)
	require.Equal(t, "/new", key)

	_, _, ok = reg.LookupAlias("new")
	require.False(t, ok)
	_, _, ok = reg.LookupAlias("")
	require.False(t, ok)
}

func TestRegisterCallbackRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("submit", noop))
	require.Error(t, reg.RegisterCallback("submit", noop))
	require.Error(t, reg.RegisterCallback("", noop))
	require.Equal(t, []string{"submit"}, reg.ListCallbacks())

	_, ok := reg.GetCallback("cancel")
	require.False(t, ok)
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "webhook", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"}})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)

	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, float64(defaultLongPollTimeout), lp.Timeout.Seconds())
	require.Equal(t, AllowedUpdates, lp.AllowedUpdates)
	require.Equal(t, AllowedUpdates, wh.AllowedUpdates)
}
