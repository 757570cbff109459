package middleware

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// ModeratorOptions defines who may act as a moderator. Listed user ids always qualify;
// without a list, anyone acting inside the moderator chat does.
type ModeratorOptions struct {
	ModeratorIDs    []int64
	ModeratorChatID int64
	OnReject        tele.HandlerFunc
}

// IsModerator applies opts to the sender and chat of c. Nothing configured means nobody.
func IsModerator(c tele.Context, opts ModeratorOptions) bool {
	user := c.Sender()
	if user == nil {
		return false
	}
	if len(opts.ModeratorIDs) > 0 {
		return slices.Contains(opts.ModeratorIDs, user.ID)
	}
	chat := c.Chat()
	return opts.ModeratorChatID != 0 && chat != nil && chat.ID == opts.ModeratorChatID
}

// ModeratorOnlyMiddleware lets only moderators reach downstream handlers.
func ModeratorOnlyMiddleware(opts ModeratorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !IsModerator(c, opts) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
