// Package bot adapts the walk dialogue, the announcement list and moderation to Telegram.
package bot

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/walkbot/core/logger"
	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"
	"github.com/m3rciful/walkbot/core/telegram/middleware"
	"github.com/m3rciful/walkbot/core/telegram/router"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/moderation"
	"github.com/m3rciful/walkbot/internal/session"
	"github.com/m3rciful/walkbot/internal/walk"

	tele "gopkg.in/telebot.v4"
)

// Callback keys handled by the bot. Moderator keys live in the moderation package.
const (
	CallbackEditPrefix  = "edit_"
	CallbackSubmit      = "submit"
	CallbackCancel      = "cancel"
	CallbackDeleteEvent = "delete_event"
)

// Options wires the bot to its services.
type Options struct {
	Machine       *session.Machine
	Announcements *announcement.Service
	Moderation    *moderation.Coordinator
	Texts         *messages.Catalog
	Moderators    middleware.ModeratorOptions
}

// Bot owns the Telegram handlers.
type Bot struct {
	machine    *session.Machine
	events     *announcement.Service
	mod        *moderation.Coordinator
	texts      *messages.Catalog
	moderators middleware.ModeratorOptions
}

// New builds a Bot. Every option except Moderators is required.
func New(opts Options) (*Bot, error) {
	switch {
	case opts.Machine == nil:
		return nil, errors.New("bot: nil session machine")
	case opts.Announcements == nil:
		return nil, errors.New("bot: nil announcement service")
	case opts.Moderation == nil:
		return nil, errors.New("bot: nil moderation coordinator")
	case opts.Texts == nil:
		return nil, errors.New("bot: nil message catalog")
	}
	return &Bot{
		machine:    opts.Machine,
		events:     opts.Announcements,
		mod:        opts.Moderation,
		texts:      opts.Texts,
		moderators: opts.Moderators,
	}, nil
}

// Register adds commands, aliases and callbacks to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: b.handleStart, Description: b.texts.Text(messages.KeyCmdStart)}},
		{"/new", commands.Command{
			Handler:     b.handleNew,
			Description: b.texts.Text(messages.KeyCmdNew),
			Aliases:     b.texts.Labels(messages.KeyMenuInvite),
		}},
		{"/cancel", commands.Command{
			Handler:     b.handleCancel,
			Description: b.texts.Text(messages.KeyCmdCancel),
			Aliases:     b.texts.Labels(messages.KeyButtonCancel),
		}},
		{"/myevents", commands.Command{Handler: b.handleMyEvents, Description: b.texts.Text(messages.KeyCmdMyEvents)}},
		{"/help", commands.Command{Handler: b.handleHelp, Description: b.texts.Text(messages.KeyCmdHelp)}},
		{"/stats", commands.Command{
			Handler:       b.handleStats,
			Description:   b.texts.Text(messages.KeyCmdStats),
			ModeratorOnly: true,
		}},
	}
	var errs []error
	for _, c := range cmds {
		errs = append(errs, reg.RegisterCommand(c.name, c.cmd))
	}

	inPreview := middleware.State(b, b.notInPreview, string(session.StatePreview))
	callbacks := map[string]tele.HandlerFunc{
		CallbackSubmit:           inPreview(b.handleSubmit),
		CallbackCancel:           b.handleCancelCallback,
		CallbackDeleteEvent:      b.handleDeleteEvent,
		moderation.ActionApprove: b.moderatorOnly(b.handleApprove),
		moderation.ActionReject:  b.moderatorOnly(b.handleReject),
	}
	for _, field := range walk.Fields {
		callbacks[CallbackEditPrefix+string(field)] = inPreview(b.handleEdit(field))
	}
	for key, h := range callbacks {
		errs = append(errs, reg.RegisterCallback(key, h))
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	return errors.Join(errs...)
}

// Routes returns every route the bot serves; Register must run first.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	return router.Routes(reg, b, router.Options{
		Commands: router.CommandRouteOptions{
			Moderators:        b.moderators,
			OnModeratorReject: b.forbidden,
		},
		Interceptor: b,
		Fallbacks:   b,
	})
}

// UnknownText answers text nothing else claimed.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyFallback), b.mainMenu())
	}
}

// UnknownMedia answers attachments outside a dialogue.
func (b *Bot) UnknownMedia() tele.HandlerFunc {
	return b.UnknownText()
}

// UnknownCallback answers buttons without a registered handler.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyUnknownAction))
	}
}

// RateLimited answers a throttled update.
func (b *Bot) RateLimited(c tele.Context) error {
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyRateLimited))
}

func (b *Bot) forbidden(c tele.Context) error {
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyForbidden))
}

func (b *Bot) notInPreview(c tele.Context) error {
	tghelpers.RemoveInlineKeyboard(c)
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyNotInPreview))
}

func (b *Bot) moderatorOnly(h tele.HandlerFunc) tele.HandlerFunc {
	opts := b.moderators
	opts.OnReject = b.forbidden
	return middleware.ModeratorOnlyMiddleware(opts)(h)
}

// fail tells the user something broke and hands err to the handler summary.
func (b *Bot) fail(c tele.Context, err error) error {
	_ = tghelpers.SendHTML(c, b.texts.Text(messages.KeyInternal))
	return err
}

func (b *Bot) handleStart(c tele.Context) error {
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyStart), b.mainMenu())
}

func (b *Bot) handleHelp(c tele.Context) error {
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyHelp), b.mainMenu())
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	stats, err := b.events.Stats(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	drafts, err := b.machine.Store().Count(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	logger.Debug(ctx, logger.CompAnnouncements, "stats",
		slog.Int("total", stats.Total()),
		slog.Int("drafts", drafts),
	)
	text := b.texts.Text(messages.KeyStats, stats.Total(), stats.Pending, stats.Published, stats.Rejected, drafts)
	return tghelpers.SendHTML(c, text)
}

func userID(c tele.Context) (int64, bool) {
	if u := c.Sender(); u != nil {
		return u.ID, true
	}
	return 0, false
}
