package bot

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/moderation"

	tele "gopkg.in/telebot.v4"
)

func authorFrom(c tele.Context) (int64, bool) {
	author, err := callbacks.PayloadID(c)
	return author, err == nil
}

func (b *Bot) handleApprove(c tele.Context) error {
	author, ok := authorFrom(c)
	if !ok {
		return b.UnknownCallback()(c)
	}
	_, err := b.mod.Approve(tghelpers.BuildContext(c), author)
	if err != nil {
		var gerr *moderation.GatewayError
		switch {
		case errors.Is(err, announcement.ErrNotFound):
			tghelpers.RemoveInlineKeyboard(c)
			return tghelpers.SendHTML(c, b.texts.Text(messages.KeyModNotFound))
		case errors.As(err, &gerr):
			_ = tghelpers.SendHTML(c, b.texts.Text(messages.KeyModPublishFailed))
			return err
		}
		return b.fail(c, err)
	}
	tghelpers.RemoveInlineKeyboard(c)
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyModPublished))
}

// handleReject opens the rejection link; the coordinator asks the moderator for the comment.
func (b *Bot) handleReject(c tele.Context) error {
	author, ok := authorFrom(c)
	if !ok {
		return b.UnknownCallback()(c)
	}
	moderator, _ := userID(c)
	_, err := b.mod.Reject(tghelpers.BuildContext(c), author, moderator)
	if err != nil {
		var gerr *moderation.GatewayError
		switch {
		case errors.Is(err, announcement.ErrNotFound):
			tghelpers.RemoveInlineKeyboard(c)
			return tghelpers.SendHTML(c, b.texts.Text(messages.KeyModNotFound))
		case errors.As(err, &gerr):
			// The link stays open; prompt in this chat instead.
			_ = tghelpers.SendHTML(c, b.texts.Text(messages.KeyModCommentPrompt))
			tghelpers.RemoveInlineKeyboard(c)
			return err
		}
		return b.fail(c, err)
	}
	tghelpers.RemoveInlineKeyboard(c)
	return nil
}

// Intercepts implements router.Interceptor: text or voice from a moderator who owes a
// rejection comment goes to the author before any other routing.
func (b *Bot) Intercepts(c tele.Context) bool {
	m := c.Message()
	user, ok := userID(c)
	if !ok || m == nil || (m.Text == "" && m.Voice == nil) || strings.HasPrefix(m.Text, "/") {
		return false
	}
	return b.mod.PendingComment(user)
}

// Intercept implements router.Interceptor.
func (b *Bot) Intercept(c tele.Context) error {
	moderator, _ := userID(c)
	m := c.Message()
	comment := moderation.Comment{Text: m.Text}
	if m.Voice != nil {
		comment = moderation.Comment{VoiceID: m.Voice.FileID}
	}
	ctx := tghelpers.BuildContext(c)
	res, err := b.mod.ResolveRejectionComment(ctx, moderator, comment)
	var gerr *moderation.GatewayError
	switch {
	case errors.Is(err, moderation.ErrEmptyComment):
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyEmptyText))
	case errors.Is(err, moderation.ErrNoPendingComment):
		// Resolved concurrently; treat the message as ordinary input.
		return b.UnknownText()(c)
	case errors.As(err, &gerr):
		_ = tghelpers.SendHTML(c, b.texts.Text(messages.KeyModCommentUndelivered))
		return err
	case err != nil:
		return b.fail(c, err)
	}
	if res.Stale {
		logger.Debug(ctx, logger.CompModeration, "comment.stale", slog.Int64("author_id", res.AuthorID))
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyModCommentStale))
	}
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyModCommentSent))
}
