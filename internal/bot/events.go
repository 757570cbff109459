package bot

import (
	"errors"

	"github.com/m3rciful/walkbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/messages"

	tele "gopkg.in/telebot.v4"
)

// handleMyEvents lists the author's announcements in submission order, each with a delete button.
// Items are sent synchronously so the order holds.
func (b *Bot) handleMyEvents(c tele.Context) error {
	user, ok := userID(c)
	if !ok {
		return nil
	}
	list, err := b.events.List(tghelpers.BuildContext(c), user)
	if err != nil {
		return b.fail(c, err)
	}
	if len(list) == 0 {
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyEventsNone))
	}
	for _, a := range list {
		opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: b.deleteMenu(a.ID)}
		var what interface{} = b.texts.Listing(a)
		if a.HasPhoto() {
			what = &tele.Photo{File: tele.File{FileID: a.Photo}, Caption: b.texts.Listing(a)}
		}
		if err := c.Send(what, opts); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleDeleteEvent(c tele.Context) error {
	user, ok := userID(c)
	if !ok {
		return nil
	}
	id, err := callbacks.PayloadID(c)
	if err != nil {
		return tghelpers.SendHTML(c, b.texts.Text(messages.KeyEventsNotFound))
	}
	if _, err := b.events.Delete(tghelpers.BuildContext(c), id, user); err != nil {
		if errors.Is(err, announcement.ErrNotFound) {
			return tghelpers.SendHTML(c, b.texts.Text(messages.KeyEventsNotFound))
		}
		return b.fail(c, err)
	}
	tghelpers.RemoveInlineKeyboard(c)
	return tghelpers.SendHTML(c, b.texts.Text(messages.KeyEventsDeleted))
}
