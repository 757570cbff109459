// Package commands describes slash commands registered with the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// Aliases are free-text triggers such as reply keyboard labels.
type Command struct {
	Handler       tele.HandlerFunc
	Description   string
	ModeratorOnly bool
	Hidden        bool
	Aliases       []string
}
