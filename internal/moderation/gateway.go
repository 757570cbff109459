package moderation

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/walkbot/internal/walk"
)

// Action is an inline button attached to outbound content.
type Action struct {
	Text   string
	Unique string
	Data   string
}

// Content is one outbound message. Text is Telegram HTML and becomes the caption when a
// photo or voice is attached.
type Content struct {
	Text    string
	PhotoID string
	VoiceID string
	Actions [][]Action
}

// Gateway posts to the public channel and messages individual users.
type Gateway interface {
	SendToUser(ctx context.Context, userID int64, c Content) error
	SendToChannel(ctx context.Context, chatID int64, c Content) (walk.ChannelRef, error)
	DeleteChannelMessage(ctx context.Context, ref walk.ChannelRef) error
}

// Gateway operations named in GatewayError.
const (
	OpSendToUser           = "send_to_user"
	OpSendToChannel        = "send_to_channel"
	OpDeleteChannelMessage = "delete_channel_message"
)

// GatewayError wraps a failed outbound call. Local state is never rolled back for it.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return "gateway " + e.Op + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Code is picked up by the handler summary log as err_code.
func (e *GatewayError) Code() string {
	return "GATEWAY_" + strings.ToUpper(e.Op)
}

func gatewayErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}
