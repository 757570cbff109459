package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/walkbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10

// AllowedUpdates are the update types the bot subscribes to.
var AllowedUpdates = []string{"message", "callback_query"}

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// PollTimeout is the effective long-poll wait for opts; zero in webhook mode.
func (o PollerOptions) PollTimeout() time.Duration {
	if strings.EqualFold(strings.TrimSpace(o.RunMode), coreconfig.RunModeWebhook) {
		return 0
	}
	sec := o.LongPollTimeoutSeconds
	if sec <= 0 {
		sec = defaultLongPollTimeout
	}
	return time.Duration(sec) * time.Second
}

// BuildPoller returns a webhook or a long poller limited to AllowedUpdates.
func BuildPoller(opts PollerOptions) tele.Poller {
	if timeout := opts.PollTimeout(); timeout > 0 {
		return &tele.LongPoller{Timeout: timeout, AllowedUpdates: AllowedUpdates}
	}
	return &tele.Webhook{
		Listen:         fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
		AllowedUpdates: AllowedUpdates,
		Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
	}
}
