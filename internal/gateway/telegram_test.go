package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/walkbot/core/telegram/sender"
	"github.com/m3rciful/walkbot/internal/moderation"
	"github.com/m3rciful/walkbot/internal/walk"
)

type call struct {
	to   string
	what interface{}
	opts *tele.SendOptions
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	deleted []tele.StoredMessage
	err     error
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := call{to: to.Recipient(), what: what}
	if len(opts) > 0 {
		c.opts, _ = opts[0].(*tele.SendOptions)
	}
	f.calls = append(f.calls, c)
	return &tele.Message{ID: 500 + len(f.calls)}, nil
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, msg.(tele.StoredMessage))
	return nil
}

func TestNotAttached(t *testing.T) {
	g := NewTelegram()
	err := g.SendToUser(context.Background(), 1, moderation.Content{Text: "hi"})
	require.True(t, errors.Is(err, ErrNotAttached))
	var gerr *moderation.GatewayError
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, moderation.OpSendToUser, gerr.Op)
}

func TestSendToUserTextWithActions(t *testing.T) {
	api := &fakeAPI{}
	g := NewTelegram()
	g.Attach(api, nil)

	err := g.SendToUser(context.Background(), -1001, moderation.Content{
		Text:    "<b>Walk</b>",
		Actions: [][]moderation.Action{{{Text: "Publish", Unique: moderation.ActionApprove, Data: "7"}}},
	})
	require.NoError(t, err)
	require.Len(t, api.calls, 1)
	require.Equal(t, "-1001", api.calls[0].to)
	require.Equal(t, "<b>Walk</b>", api.calls[0].what)
	require.Equal(t, tele.ModeHTML, api.calls[0].opts.ParseMode)
	require.Equal(t, "mod_approve", api.calls[0].opts.ReplyMarkup.InlineKeyboard[0][0].Unique)
}

func TestSendToUserVoiceCaption(t *testing.T) {
	api := &fakeAPI{}
	g := NewTelegram()
	g.Attach(api, nil)

	require.NoError(t, g.SendToUser(context.Background(), 7, moderation.Content{Text: "caption", VoiceID: "v1"}))
	voice, ok := api.calls[0].what.(*tele.Voice)
	require.True(t, ok)
	require.Equal(t, "v1", voice.FileID)
	require.Equal(t, "caption", voice.Caption)
	require.Nil(t, api.calls[0].opts.ReplyMarkup)
}

func TestSendToUserThroughDispatcher(t *testing.T) {
	api := &fakeAPI{}
	disp := sender.NewDispatcher(sender.Options{Workers: 1, QueueSize: 4})
	g := NewTelegram()
	g.Attach(api, disp)

	require.NoError(t, g.SendToUser(context.Background(), 7, moderation.Content{Text: "queued"}))
	disp.Close()
	require.Len(t, api.calls, 1)
	require.Equal(t, "queued", api.calls[0].what)
}

func TestSendToUserFallsBackWhenQueueClosed(t *testing.T) {
	api := &fakeAPI{}
	disp := sender.NewDispatcher(sender.Options{Workers: 1})
	disp.Close()
	g := NewTelegram()
	g.Attach(api, disp)

	require.NoError(t, g.SendToUser(context.Background(), 7, moderation.Content{Text: "direct"}))
	require.Len(t, api.calls, 1)
}

func TestSendToChannelPhotoReturnsRef(t *testing.T) {
	api := &fakeAPI{}
	g := NewTelegram()
	g.Attach(api, nil)

	ref, err := g.SendToChannel(context.Background(), -100500, moderation.Content{Text: "post", PhotoID: "p1"})
	require.NoError(t, err)
	require.Equal(t, walk.ChannelRef{ChatID: -100500, MessageID: 501}, ref)
	photo, ok := api.calls[0].what.(*tele.Photo)
	require.True(t, ok)
	require.Equal(t, "p1", photo.FileID)
	require.Equal(t, "post", photo.Caption)
}

func TestSendToChannelError(t *testing.T) {
	api := &fakeAPI{err: errors.New("telegram: not enough rights (400)")}
	g := NewTelegram()
	g.Attach(api, nil)

	_, err := g.SendToChannel(context.Background(), -100500, moderation.Content{Text: "post"})
	var gerr *moderation.GatewayError
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, moderation.OpSendToChannel, gerr.Op)
}

func TestDeleteChannelMessage(t *testing.T) {
	api := &fakeAPI{}
	g := NewTelegram()
	g.Attach(api, nil)

	require.NoError(t, g.DeleteChannelMessage(context.Background(), walk.ChannelRef{ChatID: -100500, MessageID: 42}))
	require.Equal(t, []tele.StoredMessage{{MessageID: "42", ChatID: -100500}}, api.deleted)
}

func TestOutboundStats(t *testing.T) {
	g := NewTelegram()
	_, ok := g.OutboundStats()
	require.False(t, ok)

	api := &fakeAPI{}
	disp := sender.NewDispatcher(sender.Options{Workers: 2})
	g.Attach(api, disp)
	require.NoError(t, g.SendToUser(context.Background(), 7, moderation.Content{Text: "queued"}))
	disp.Close()

	st, ok := g.OutboundStats()
	require.True(t, ok)
	require.Equal(t, uint64(1), st.Sent)
}
