// Package gateway implements the moderation publication gateway on the Telegram Bot API.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/keyboard"
	"github.com/m3rciful/walkbot/core/telegram/sender"
	"github.com/m3rciful/walkbot/internal/moderation"
	"github.com/m3rciful/walkbot/internal/walk"
)

// ErrNotAttached is returned while no bot has been attached yet.
var ErrNotAttached = errors.New("gateway: bot not attached")

// API is the part of *tele.Bot the gateway calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Telegram sends user notifications through the outbound dispatcher and performs channel
// calls synchronously, since their result is recorded on the announcement.
type Telegram struct {
	mu         sync.RWMutex
	api        API
	dispatcher *sender.Dispatcher
}

// NewTelegram returns a gateway that fails with ErrNotAttached until Attach is called.
func NewTelegram() *Telegram {
	return &Telegram{}
}

// Attach binds the running bot. dispatcher may be nil for synchronous delivery.
func (t *Telegram) Attach(api API, dispatcher *sender.Dispatcher) {
	t.mu.Lock()
	t.api = api
	t.dispatcher = dispatcher
	t.mu.Unlock()
}

func (t *Telegram) current() (API, *sender.Dispatcher) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.api, t.dispatcher
}

// OutboundStats reports the attached dispatcher.
func (t *Telegram) OutboundStats() (sender.Stats, bool) {
	_, disp := t.current()
	if disp == nil {
		return sender.Stats{}, false
	}
	return disp.Stats(), true
}

// SendToUser implements moderation.Gateway. Queued sends report only enqueue failures;
// delivery errors are logged by the dispatcher.
func (t *Telegram) SendToUser(ctx context.Context, userID int64, c moderation.Content) error {
	api, disp := t.current()
	if api == nil {
		return &moderation.GatewayError{Op: moderation.OpSendToUser, Err: ErrNotAttached}
	}
	what, opts := build(c)
	run := func() error {
		_, err := api.Send(tele.ChatID(userID), what, opts...)
		return err
	}
	if disp != nil {
		err := disp.Enqueue(ctx, sender.Job{ChatID: userID, Action: "gateway.send_to_user", Endpoint: endpoint(c), Run: run})
		if err == nil {
			return nil
		}
		if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
			return &moderation.GatewayError{Op: moderation.OpSendToUser, Err: err}
		}
		logger.Warn(ctx, logger.CompModeration, "gateway.queue_fallback",
			slog.Int64("to", userID),
			logger.Err(err),
		)
	}
	if err := run(); err != nil {
		return &moderation.GatewayError{Op: moderation.OpSendToUser, Err: err}
	}
	return nil
}

// SendToChannel implements moderation.Gateway.
func (t *Telegram) SendToChannel(ctx context.Context, chatID int64, c moderation.Content) (walk.ChannelRef, error) {
	api, _ := t.current()
	if api == nil {
		return walk.ChannelRef{}, &moderation.GatewayError{Op: moderation.OpSendToChannel, Err: ErrNotAttached}
	}
	what, opts := build(c)
	msg, err := api.Send(tele.ChatID(chatID), what, opts...)
	if err != nil {
		return walk.ChannelRef{}, &moderation.GatewayError{Op: moderation.OpSendToChannel, Err: err}
	}
	ref := walk.ChannelRef{ChatID: chatID, MessageID: msg.ID}
	if msg.Chat != nil && msg.Chat.ID != 0 {
		ref.ChatID = msg.Chat.ID
	}
	logger.Debug(ctx, logger.CompModeration, "gateway.channel_post",
		slog.Int64("channel_chat_id", ref.ChatID),
		slog.Int("channel_message_id", ref.MessageID),
		slog.String("endpoint", endpoint(c)),
	)
	return ref, nil
}

// DeleteChannelMessage implements moderation.Gateway and announcement.Retractor.
func (t *Telegram) DeleteChannelMessage(ctx context.Context, ref walk.ChannelRef) error {
	api, _ := t.current()
	if api == nil {
		return &moderation.GatewayError{Op: moderation.OpDeleteChannelMessage, Err: ErrNotAttached}
	}
	msg := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	if err := api.Delete(msg); err != nil {
		return &moderation.GatewayError{Op: moderation.OpDeleteChannelMessage, Err: err}
	}
	logger.Debug(ctx, logger.CompModeration, "gateway.channel_delete",
		slog.Int64("channel_chat_id", ref.ChatID),
		slog.Int("channel_message_id", ref.MessageID),
	)
	return nil
}

func build(c moderation.Content) (interface{}, []interface{}) {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: Markup(c.Actions)}
	switch {
	case c.PhotoID != "":
		return &tele.Photo{File: tele.File{FileID: c.PhotoID}, Caption: c.Text}, []interface{}{opts}
	case c.VoiceID != "":
		return &tele.Voice{File: tele.File{FileID: c.VoiceID}, Caption: c.Text}, []interface{}{opts}
	default:
		return c.Text, []interface{}{opts}
	}
}

func endpoint(c moderation.Content) string {
	switch {
	case c.PhotoID != "":
		return "sendPhoto"
	case c.VoiceID != "":
		return "sendVoice"
	default:
		return "sendMessage"
	}
}

// Markup converts moderation actions into an inline keyboard; nil without actions.
func Markup(actions [][]moderation.Action) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(actions))
	for _, row := range actions {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, a := range row {
			r = append(r, keyboard.InlineBtn{Text: a.Text, Unique: a.Unique, Data: a.Data})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}
