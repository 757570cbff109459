package bot

import (
	"strconv"

	"github.com/m3rciful/walkbot/core/telegram/keyboard"
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/session"
	"github.com/m3rciful/walkbot/internal/walk"

	tele "gopkg.in/telebot.v4"
)

var editLabels = map[walk.Field]string{
	walk.FieldTopic:       messages.KeyEditTopic,
	walk.FieldPlace:       messages.KeyEditPlace,
	walk.FieldDatetime:    messages.KeyEditDatetime,
	walk.FieldContact:     messages.KeyEditContact,
	walk.FieldDescription: messages.KeyEditDescription,
	walk.FieldPhoto:       messages.KeyEditPhoto,
}

func (b *Bot) mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{b.texts.Text(messages.KeyMenuInvite)})
}

// promptMenu offers skip on the photo step and cancel everywhere.
func (b *Bot) promptMenu(state session.State) *tele.ReplyMarkup {
	cancel := []string{b.texts.Text(messages.KeyButtonCancel)}
	if state == session.StatePhoto {
		return keyboard.ReplyButtons([]string{b.texts.Text(messages.KeyButtonSkip)}, cancel)
	}
	return keyboard.ReplyButtons(cancel)
}

func (b *Bot) previewMenu() *tele.ReplyMarkup {
	edits := make([]keyboard.InlineBtn, 0, len(walk.Fields))
	for _, f := range walk.Fields {
		edits = append(edits, keyboard.InlineBtn{
			Text:   b.texts.Text(editLabels[f]),
			Unique: CallbackEditPrefix + string(f),
		})
	}
	rows := keyboard.Chunk(edits, 2)
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: b.texts.Text(messages.KeyButtonSubmit), Unique: CallbackSubmit}},
		[]keyboard.InlineBtn{{Text: b.texts.Text(messages.KeyButtonCancel), Unique: CallbackCancel}},
	)
	return keyboard.InlineButtonsRows(rows...)
}

func (b *Bot) deleteMenu(id int64) *tele.ReplyMarkup {
	return keyboard.InlineButtons(keyboard.InlineBtn{
		Text:   b.texts.Text(messages.KeyButtonDelete),
		Unique: CallbackDeleteEvent,
		Data:   strconv.FormatInt(id, 10),
	})
}
