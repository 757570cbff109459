// Package callbacks decodes telebot's inline callback data.
package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/walkbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits Telebot's \f<unique>|<payload> encoding. Data without the \f marker is
// treated as a bare key.
func ParseData(data string) (string, string) {
	raw := strings.TrimPrefix(data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// ParseCallbackData returns unique and payload of cb. Callbacks routed to a unique-specific
// handler already carry them split; the generic OnCallback sees the raw encoding.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// CallbackPayload returns the payload after '|'.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}

// ErrBadPayload is returned when a callback payload is not a positive id.
var ErrBadPayload = errors.New("callbacks: payload is not an id")

// PayloadID parses the payload of c as a positive int64 id.
func PayloadID(c tele.Context) (int64, error) {
	p := strings.TrimSpace(CallbackPayload(c))
	id, err := strconv.ParseInt(p, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadPayload, logger.SanitizeLimit(p, 32))
	}
	return id, nil
}
