package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level  slog.Leveler
	writer io.Writer
	format logFormat
}

// structuredHandler wraps the stdlib JSON/text handlers and fixes the leading key order:
// ts level component event status, then correlation fields from context, then the rest.
type structuredHandler struct {
	inner        slog.Handler
	format       logFormat
	hasComponent bool
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	opts := &slog.HandlerOptions{Level: cfg.level, ReplaceAttr: replaceAttr}
	var inner slog.Handler
	if cfg.format == formatKV {
		inner = slog.NewTextHandler(cfg.writer, opts)
	} else {
		inner = slog.NewJSONHandler(cfg.writer, opts)
	}
	return &structuredHandler{inner: inner, format: cfg.format}
}

// Enabled reports whether the handler allows processing the provided level.
func (h *structuredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle reorders the record attributes and delegates the encoding.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	var (
		event  string
		status *slog.Attr
		rest   = make([]slog.Attr, 0, r.NumAttrs())
		seen   = make(map[string]bool, r.NumAttrs())
	)
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = true
		switch a.Key {
		case "event":
			event = a.Value.String()
		case "status":
			s := a
			status = &s
		default:
			rest = append(rest, a)
		}
		return true
	})
	if event == "" {
		event = r.Message
	}
	if event == "" {
		event = "unknown"
	}

	head := make([]slog.Attr, 0, 8)
	if !h.hasComponent && !seen["component"] {
		head = append(head, slog.String("component", "app"))
	}
	head = append(head, slog.String("event", event))
	if status != nil {
		head = append(head, *status)
	}
	head = append(head, h.contextAttrs(ctx, seen)...)

	out := slog.NewRecord(r.Time, r.Level, "", r.PC)
	out.AddAttrs(head...)
	out.AddAttrs(rest...)
	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a copy of the handler enriched with attrs.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == "component" {
			clone.hasComponent = true
		}
	}
	clone.inner = h.inner.WithAttrs(attrs)
	return &clone
}

// WithGroup returns a copy of the handler with an additional group prefix.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

func (h *structuredHandler) contextAttrs(ctx context.Context, seen map[string]bool) []slog.Attr {
	if ctx == nil {
		return nil
	}
	m := MetaFrom(ctx)
	var attrs []slog.Attr
	if m.RID != "" && !seen["rid"] {
		compact := CompactRID(m.RID)
		attrs = append(attrs, slog.String("rid", compact))
		if h.format == formatJSON && compact != m.RID {
			attrs = append(attrs, slog.String("rid_full", m.RID))
		}
	}
	if m.UpdateID != 0 && !seen["update_id"] {
		attrs = append(attrs, slog.Int("update_id", m.UpdateID))
	}
	if m.UserID != 0 && !seen["user_id"] {
		attrs = append(attrs, slog.Int64("user_id", m.UserID))
	}
	if m.ChatID != 0 && !seen["chat_id"] {
		attrs = append(attrs, slog.Int64("chat_id", m.ChatID))
	}
	if m.Handler != "" && !seen["handler"] {
		attrs = append(attrs, slog.String("handler", m.Handler))
	}
	return attrs
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			return slog.String("ts", a.Value.Time().UTC().Truncate(time.Millisecond).Format(timeFormatMillis))
		case slog.MessageKey:
			if a.Value.String() == "" {
				return slog.Attr{}
			}
		}
	}
	if a.Value.Kind() == slog.KindDuration {
		key := a.Key
		if !strings.HasSuffix(key, "_ms") {
			key += "_ms"
		}
		return slog.Int64(key, RoundMS(a.Value.Duration()).Milliseconds())
	}
	return a
}
