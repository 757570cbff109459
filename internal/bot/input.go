package bot

import (
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// inputFrom classifies a message for the dialogue. The localized skip label marks text as Skip.
func inputFrom(m *tele.Message, texts *messages.Catalog) session.Input {
	switch {
	case m == nil:
		return session.TextInput("")
	case m.Location != nil:
		return session.LocationInput(float64(m.Location.Lat), float64(m.Location.Lng))
	case m.Photo != nil:
		return session.PhotoInput(m.Photo.FileID)
	case m.Voice != nil:
		return session.VoiceInput(m.Voice.FileID)
	case m.Document != nil:
		return session.DocumentInput(m.Document.FileID)
	}
	in := session.TextInput(m.Text)
	if in.Kind == session.InputText && texts.Matches(messages.KeyButtonSkip, m.Text) {
		in.Skip = true
	}
	return in
}
