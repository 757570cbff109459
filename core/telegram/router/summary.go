package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/walkbot/core/logger"
	tghelpers "github.com/m3rciful/walkbot/core/telegram/helpers"
	"github.com/m3rciful/walkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary is the single handler.handled record written per routed update.
type summary struct {
	name  string
	start time.Time
	// status overrides the ok/fail derived from the handler error.
	status string
	extras []slog.Attr
}

func newSummary(name string, extras ...slog.Attr) summary {
	return summary{name: name, start: time.Now(), extras: extras}
}

// run executes fn as handler s.name and logs the outcome.
func (s summary) run(c tele.Context, fn func() error) error {
	tghelpers.WithHandler(c, s.name)
	err := fn()
	s.log(c, err)
	return err
}

// skip logs an update nothing handled.
func (s summary) skip(c tele.Context) {
	s.status = "skip"
	s.log(c, nil)
}

func (s summary) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.name)
	replies, kb := middleware.GetCounters(c)

	status, level := s.status, slog.LevelInfo
	if status == "" {
		status = logger.Status(err)
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Int("messages", replies),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.start)),
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, logger.Err(err), slog.String("err_code", deriveErrorCode(err)))
	}
	logger.LogEvent(ctx, logger.TG, level, "handler.handled", append(attrs, s.extras...)...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// deriveErrorCode prefers a Code() string anywhere in the chain, then the error type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c interface{ Code() string }
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
