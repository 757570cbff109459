package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// ErrInvalidRegistration is returned for a command or callback the registry refuses.
var ErrInvalidRegistration = errors.New("telegram: invalid registration")

// Registry holds bot commands, callbacks and the fallbacks used when neither matches.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry whose unknown callbacks get a toast.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds a "/name" command. It needs a handler and a description and
// must not be registered twice.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	var reason string
	switch {
	case cmd.Handler == nil || strings.TrimSpace(cmd.Description) == "":
		reason = "incomplete"
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		reason = "no_slash_prefix"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup && reason == "" {
		reason = "duplicate"
	}
	if reason != "" {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return fmt.Errorf("%w: command %q: %s", ErrInvalidRegistration, name, reason)
	}
	r.commands[name] = cmd
	return nil
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// Menu lists commands for the Telegram command menu, sorted and without the slash.
// Hidden commands never appear; ModeratorOnly ones only when moderator is set.
func (r *Registry) Menu(moderator bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if cmd.Hidden || (cmd.ModeratorOnly && !moderator) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	return list
}

// LookupAlias matches free text against command aliases only, so ordinary input equal to a
// command name (a topic called "new") is not taken for a command. Matching ignores case and
// surrounding spaces.
func (r *Registry) LookupAlias(text string) (string, commands.Command, bool) {
	text = strings.TrimSpace(text)
	if r == nil || text == "" {
		return "", commands.Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if strings.EqualFold(strings.TrimSpace(alias), text) {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// RegisterCallback maps a callback unique to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.String("reason", "duplicate"),
		)
		return fmt.Errorf("%w: callback %q: duplicate", ErrInvalidRegistration, key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for unknown callbacks; nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unknown callbacks.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback overrides the router's unknown-text handler.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the override set by SetTextFallback, if any.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// CommandSetter is the part of *tele.Bot that publishes command menus.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// MenuOptions scopes the published menus.
type MenuOptions struct {
	// ModeratorChatID gets a menu that includes moderator-only commands. Zero skips it.
	ModeratorChatID int64
}

// InitBotCommands publishes the default menu and, when configured, the moderator chat menu.
func InitBotCommands(bot CommandSetter, reg *Registry, opts MenuOptions) error {
	var errs []error
	publish := func(scope string, cmds []tele.Command, extra ...interface{}) {
		if len(cmds) == 0 {
			return
		}
		err := bot.SetCommands(append([]interface{}{cmds}, extra...)...)
		attrs := []slog.Attr{slog.String("scope", scope), slog.Int("commands", len(cmds))}
		if err != nil {
			errs = append(errs, err)
			logger.LogEvent(context.Background(), logger.TWire, slog.LevelError, "menu.set",
				append(attrs, slog.String("status", "fail"), logger.Err(err))...)
			return
		}
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "menu.set",
			append(attrs, slog.String("status", "ok"))...)
	}

	publish("default", reg.Menu(false))
	if opts.ModeratorChatID != 0 {
		publish("moderator_chat", reg.Menu(true),
			tele.CommandScope{Type: tele.CommandScopeChat, ChatID: opts.ModeratorChatID})
	}
	return errors.Join(errs...)
}
