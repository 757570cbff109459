package announcement

import (
	"context"
	"log/slog"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/internal/walk"
)

// Retractor removes a message that was posted to the public channel.
type Retractor interface {
	DeleteChannelMessage(ctx context.Context, ref walk.ChannelRef) error
}

// Service wraps a Store with the operations that touch the channel.
type Service struct {
	store     Store
	retractor Retractor
}

// NewService builds a Service. retractor may be nil when nothing is ever published.
func NewService(store Store, retractor Retractor) *Service {
	return &Service{store: store, retractor: retractor}
}

// List returns the author's announcements in insertion order.
func (s *Service) List(ctx context.Context, author int64) ([]walk.Announcement, error) {
	return s.store.ListByAuthor(ctx, author)
}

// Delete removes the author's announcement. A published one is also retracted from the
// channel; a failed retraction is logged and the removal stands.
func (s *Service) Delete(ctx context.Context, id, author int64) (walk.Announcement, error) {
	removed, err := s.store.RemoveByIDAndAuthor(ctx, id, author)
	if err != nil {
		logger.Debug(ctx, logger.CompAnnouncements, "delete",
			slog.String("status", "skip"),
			slog.Int64("announcement_id", id),
			slog.Int64("author_id", author),
			logger.Err(err),
		)
		return walk.Announcement{}, err
	}
	attrs := []slog.Attr{
		slog.Int64("announcement_id", id),
		slog.Int64("author_id", author),
		slog.String("was", string(removed.Status)),
	}
	if removed.Status == walk.StatusPublished && !removed.Channel.IsZero() && s.retractor != nil {
		if err := s.retractor.DeleteChannelMessage(ctx, removed.Channel); err != nil {
			logger.Warn(ctx, logger.CompAnnouncements, "retract",
				append(attrs,
					slog.String("status", "error"),
					slog.Int64("channel_chat_id", removed.Channel.ChatID),
					slog.Int("channel_message_id", removed.Channel.MessageID),
					logger.Err(err),
				)...,
			)
		} else {
			attrs = append(attrs, slog.Bool("retracted", true))
		}
	}
	logger.Info(ctx, logger.CompAnnouncements, "delete", append(attrs, slog.String("status", "ok"))...)
	return removed, nil
}

// Stats passes through to the store.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}
