package bot

import (
	"errors"

	"github.com/m3rciful/walkbot/core/telegram/format"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/session"
	"github.com/m3rciful/walkbot/internal/walk"

	tele "gopkg.in/telebot.v4"
)

// InProgress implements router.FSM.
func (b *Bot) InProgress(c tele.Context) bool {
	user, ok := userID(c)
	return ok && b.machine.InProgress(tghelpers.BuildContext(c), user)
}

// GetState implements middleware.StateGetter.
func (b *Bot) GetState(c tele.Context) string {
	user, ok := userID(c)
	if !ok {
		return string(session.StateIdle)
	}
	s, err := b.machine.Current(tghelpers.BuildContext(c), user)
	if err != nil {
		return string(session.StateIdle)
	}
	return string(s.State)
}

// ManagerHandler implements router.FSM: it feeds the message into the current step.
func (b *Bot) ManagerHandler(c tele.Context) error {
	user, ok := userID(c)
	if !ok {
		return nil
	}
	res, err := b.machine.Handle(tghelpers.BuildContext(c), user, inputFrom(c.Message(), b.texts))
	if err != nil {
		var verr *session.ValidationError
		switch {
		case errors.As(err, &verr):
			return tghelpers.SendHTML(c, b.texts.Invalid(verr))
		case errors.Is(err, session.ErrIgnored):
			return b.handleIgnored(c, user)
		}
		return b.fail(c, err)
	}
	return b.present(c, res)
}

// handleIgnored answers input the current state does not take, i.e. messages sent in preview.
func (b *Bot) handleIgnored(c tele.Context, user int64) error {
	res, err := b.machine.Preview(tghelpers.BuildContext(c), user)
	if err != nil {
		return b.UnknownText()(c)
	}
	return b.sendPreview(c, res.Draft)
}

// present renders the dialogue after a step: a prompt for data-entry states, else the preview.
func (b *Bot) present(c tele.Context, res session.Result) error {
	if res.State == session.StatePreview {
		return b.sendPreview(c, res.Draft)
	}
	return tghelpers.SendHTML(c, b.texts.Prompt(res.State, res.Editing), b.promptMenu(res.State))
}

func (b *Bot) sendPreview(c tele.Context, d walk.Draft) error {
	text := b.texts.Preview(d)
	if d.HasPhoto() {
		if format.VisibleLen(text) <= format.CaptionLimit {
			return tghelpers.SendPhotoHTML(c, d.Photo, text, b.previewMenu())
		}
		// Too long for a caption: the photo goes alone, the full text carries the buttons.
		if err := tghelpers.SendPhotoHTML(c, d.Photo, ""); err != nil {
			return err
		}
	}
	return tghelpers.SendHTML(c, text, b.previewMenu())
}

func (b *Bot) handleNew(c tele.Context) error {
	user, ok := userID(c)
	if !ok {
		return nil
	}
	res, err := b.machine.Start(tghelpers.BuildContext(c), user)
	if err != nil {
		return b.fail(c, err)
	}
	return b.present(c, res)
}

func (b *Bot) handleCancel(c tele.Context) error {
	user, ok := userID(c)
	if !ok {
		return nil
	}
	if _, err := b.machine.Cancel(tghelpers.BuildContext(c), user); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyCancelled), b.mainMenu())
}

func (b *Bot) handleCancelCallback(c tele.Context) error {
	tghelpers.RemoveInlineKeyboard(c)
	return b.handleCancel(c)
}

func (b *Bot) handleEdit(field walk.Field) tele.HandlerFunc {
	return func(c tele.Context) error {
		user, ok := userID(c)
		if !ok {
			return nil
		}
		res, err := b.machine.Edit(tghelpers.BuildContext(c), user, field)
		if err != nil {
			if errors.Is(err, session.ErrNotInPreview) {
				return b.notInPreview(c)
			}
			return b.fail(c, err)
		}
		tghelpers.RemoveInlineKeyboard(c)
		return b.present(c, res)
	}
}

func (b *Bot) handleSubmit(c tele.Context) error {
	user, ok := userID(c)
	if !ok {
		return nil
	}
	_, err := b.machine.Submit(tghelpers.BuildContext(c), user)
	switch {
	case errors.Is(err, session.ErrNotInPreview):
		return b.notInPreview(c)
	case errors.Is(err, announcement.ErrAlreadyPending):
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyAlreadyPending))
	case err != nil:
		return b.fail(c, err)
	}
	tghelpers.RemoveInlineKeyboard(c)
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeySubmitted), b.mainMenu())
}
