// Package moderation drives the review of submitted announcements. Approve publishes to the
// public channel; Reject asks the moderator for a comment that is then forwarded to the author.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/keylock"
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/session"
	"github.com/m3rciful/walkbot/internal/walk"
)

// Callback uniques of the moderator buttons; the payload is the author id.
const (
	ActionApprove = "mod_approve"
	ActionReject  = "mod_reject"
)

var (
	// ErrNoPendingComment means the moderator owes no rejection comment.
	ErrNoPendingComment = errors.New("moderation: no rejection comment pending")
	// ErrEmptyComment is returned for a comment with neither text nor voice; the link stays open.
	ErrEmptyComment = errors.New("moderation: empty comment")
)

// Texts supplies localized strings and the rendered announcement body.
type Texts interface {
	Text(key string, args ...any) string
	Announcement(a walk.Announcement) string
}

// Config names the moderation destinations.
type Config struct {
	ModeratorChatID int64
	ChannelID       int64
	// ChannelUsername builds public deep links; without it the private t.me/c/ form is used.
	ChannelUsername string
}

// Comment is a rejection comment: text or a voice note.
type Comment struct {
	Text    string
	VoiceID string
}

// Resolution describes what happened to a consumed rejection comment.
type Resolution struct {
	AuthorID     int64
	Announcement walk.Announcement
	// Stale is set when the announcement was gone or already decided; nothing reached the author.
	Stale bool
}

type link struct {
	author         int64
	moderator      int64
	announcementID int64
	openedAt       time.Time
	seq            uint64
}

// Coordinator tracks rejection links and applies moderation decisions.
type Coordinator struct {
	cfg      Config
	store    announcement.Store
	sessions session.Store
	gateway  Gateway
	texts    Texts
	locks    *keylock.Map
	now      func() time.Time

	mu    sync.Mutex
	seq   uint64
	links map[int64]link
}

// NewCoordinator wires the coordinator to its stores and gateway.
func NewCoordinator(cfg Config, store announcement.Store, sessions session.Store, gateway Gateway, texts Texts) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		gateway:  gateway,
		texts:    texts,
		locks:    keylock.New(),
		now:      time.Now,
		links:    make(map[int64]link),
	}
}

// NotifyModerator sends a freshly submitted announcement to the moderator chat with
// approve and reject buttons.
func (c *Coordinator) NotifyModerator(ctx context.Context, a walk.Announcement) error {
	author := strconv.FormatInt(a.AuthorID, 10)
	content := Content{
		Text:    c.texts.Announcement(a),
		PhotoID: a.Photo,
		Actions: [][]Action{{
			{Text: c.texts.Text(messages.KeyButtonApprove), Unique: ActionApprove, Data: author},
			{Text: c.texts.Text(messages.KeyButtonReject), Unique: ActionReject, Data: author},
		}},
	}
	if err := c.gateway.SendToUser(ctx, c.cfg.ModeratorChatID, content); err != nil {
		return gatewayErr(OpSendToUser, err)
	}
	logger.Info(ctx, logger.CompModeration, "notify",
		slog.String("status", "ok"),
		slog.Int64("announcement_id", a.ID),
		slog.Int64("author_id", a.AuthorID),
		slog.Bool("photo", a.HasPhoto()),
	)
	return nil
}

// Approve publishes the author's pending announcement. Without one it returns
// announcement.ErrNotFound and the gateway is not called. A failed channel post leaves the
// announcement pending; a failed author notification is only logged.
func (c *Coordinator) Approve(ctx context.Context, author int64) (walk.Announcement, error) {
	unlock := c.locks.Lock(author)
	defer unlock()

	pending, err := c.store.FindPendingByAuthor(ctx, author)
	if err != nil {
		logger.Debug(ctx, logger.CompModeration, "approve",
			slog.String("status", "skip"),
			slog.Int64("author_id", author),
			logger.Err(err),
		)
		return walk.Announcement{}, err
	}

	ref, err := c.gateway.SendToChannel(ctx, c.cfg.ChannelID, Content{
		Text:    c.texts.Announcement(pending),
		PhotoID: pending.Photo,
	})
	if err != nil {
		logger.Warn(ctx, logger.CompModeration, "approve.publish",
			slog.String("status", "error"),
			slog.Int64("announcement_id", pending.ID),
			logger.Err(err),
		)
		return pending, gatewayErr(OpSendToChannel, err)
	}

	published, err := c.store.MarkPublished(ctx, pending.ID, ref)
	if err != nil {
		// The record is gone or still pending; a live post would be duplicated by the next Approve.
		c.retract(ctx, pending.ID, ref)
		return pending, err
	}
	c.dropLink(author)

	postURL := c.PostURL(ref)
	logger.Info(ctx, logger.CompModeration, "approve",
		slog.String("status", "ok"),
		slog.Int64("announcement_id", published.ID),
		slog.Int64("author_id", author),
		slog.Int("channel_message_id", ref.MessageID),
	)
	notice := Content{Text: c.texts.Text(messages.KeyAuthorPublished, html.EscapeString(published.Topic), postURL)}
	if err := c.gateway.SendToUser(ctx, author, notice); err != nil {
		logger.Warn(ctx, logger.CompModeration, "approve.notify_author",
			slog.String("status", "error"),
			slog.Int64("author_id", author),
			logger.Err(err),
		)
	}
	return published, nil
}

func (c *Coordinator) retract(ctx context.Context, id int64, ref walk.ChannelRef) {
	err := c.gateway.DeleteChannelMessage(ctx, ref)
	attrs := []slog.Attr{
		slog.Int64("announcement_id", id),
		slog.Int("channel_message_id", ref.MessageID),
	}
	if err != nil {
		// Orphaned post: channel_chat_id and channel_message_id identify it for manual cleanup.
		logger.Error(ctx, logger.CompModeration, "approve.retract", append(attrs,
			slog.Int64("channel_chat_id", ref.ChatID),
			slog.String("status", "error"),
			logger.Err(err),
		)...)
		return
	}
	logger.Info(ctx, logger.CompModeration, "approve.retract", append(attrs, slog.String("status", "ok"))...)
}

// Reject opens a rejection link from author to moderator and asks the moderator for a
// comment. Without a pending announcement it returns announcement.ErrNotFound.
func (c *Coordinator) Reject(ctx context.Context, author, moderator int64) (walk.Announcement, error) {
	unlock := c.locks.Lock(author)
	defer unlock()

	pending, err := c.store.FindPendingByAuthor(ctx, author)
	if err != nil {
		logger.Debug(ctx, logger.CompModeration, "reject",
			slog.String("status", "skip"),
			slog.Int64("author_id", author),
			logger.Err(err),
		)
		return walk.Announcement{}, err
	}

	c.mu.Lock()
	c.seq++
	c.links[author] = link{
		author:         author,
		moderator:      moderator,
		announcementID: pending.ID,
		openedAt:       c.now(),
		seq:            c.seq,
	}
	c.mu.Unlock()

	logger.Info(ctx, logger.CompModeration, "reject.open",
		slog.String("status", "ok"),
		slog.Int64("announcement_id", pending.ID),
		slog.Int64("author_id", author),
		slog.Int64("moderator_id", moderator),
	)
	prompt := Content{Text: c.texts.Text(messages.KeyModCommentPrompt)}
	if err := c.gateway.SendToUser(ctx, c.cfg.ModeratorChatID, prompt); err != nil {
		return pending, gatewayErr(OpSendToUser, err)
	}
	return pending, nil
}

// PendingComment reports whether moderator owes a rejection comment.
func (c *Coordinator) PendingComment(moderator int64) bool {
	_, ok := c.latestLink(moderator)
	return ok
}

// ResolveRejectionComment consumes the moderator's comment for the most recently opened link:
// the announcement becomes rejected, the author's session is reset and the comment is
// forwarded. A link whose announcement is gone is cleared and reported as Stale. A failed
// delivery is returned as *GatewayError after the rejection has been applied.
func (c *Coordinator) ResolveRejectionComment(ctx context.Context, moderator int64, comment Comment) (Resolution, error) {
	comment.Text = strings.TrimSpace(comment.Text)
	if comment.Text == "" && comment.VoiceID == "" {
		return Resolution{}, ErrEmptyComment
	}
	l, ok := c.latestLink(moderator)
	if !ok {
		return Resolution{}, ErrNoPendingComment
	}

	unlock := c.locks.Lock(l.author)
	defer unlock()

	res := Resolution{AuthorID: l.author}
	if !c.linkCurrent(l) {
		// Approved or reopened while waiting for the lock.
		res.Stale = true
		return res, nil
	}

	rejected, err := c.store.MarkRejected(ctx, l.announcementID)
	if err != nil {
		if errors.Is(err, announcement.ErrNotFound) || errors.Is(err, walk.ErrInvalidTransition) {
			c.dropLink(l.author)
			logger.Info(ctx, logger.CompModeration, "reject.comment",
				slog.String("status", "stale"),
				slog.Int64("announcement_id", l.announcementID),
				slog.Int64("author_id", l.author),
			)
			res.Stale = true
			return res, nil
		}
		return Resolution{}, err
	}
	c.dropLink(l.author)
	res.Announcement = rejected

	if err := c.sessions.Reset(ctx, l.author); err != nil {
		logger.Warn(ctx, logger.CompModeration, "reject.reset_session",
			slog.String("status", "error"),
			slog.Int64("author_id", l.author),
			logger.Err(err),
		)
	}

	topic := html.EscapeString(rejected.Topic)
	content := Content{Text: c.texts.Text(messages.KeyAuthorRejected, topic, html.EscapeString(comment.Text))}
	if comment.VoiceID != "" {
		content = Content{VoiceID: comment.VoiceID, Text: c.texts.Text(messages.KeyAuthorRejectedVoice, topic)}
	}
	logger.Info(ctx, logger.CompModeration, "reject.comment",
		slog.String("status", "ok"),
		slog.Int64("announcement_id", rejected.ID),
		slog.Int64("author_id", l.author),
		slog.Int64("moderator_id", moderator),
		slog.Bool("voice", comment.VoiceID != ""),
		slog.Duration("waited", c.now().Sub(l.openedAt)),
	)
	if err := c.gateway.SendToUser(ctx, l.author, content); err != nil {
		return res, gatewayErr(OpSendToUser, err)
	}
	return res, nil
}

// PostURL builds the public link to a channel message.
func (c *Coordinator) PostURL(ref walk.ChannelRef) string {
	if name := strings.TrimLeft(strings.TrimSpace(c.cfg.ChannelUsername), "@"); name != "" {
		return fmt.Sprintf("https://t.me/%s/%d", name, ref.MessageID)
	}
	id := strings.TrimPrefix(strconv.FormatInt(ref.ChatID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, ref.MessageID)
}

func (c *Coordinator) latestLink(moderator int64) (link, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var (
		best  link
		found bool
	)
	for _, l := range c.links {
		if l.moderator != moderator {
			continue
		}
		if !found || l.seq > best.seq {
			best, found = l, true
		}
	}
	return best, found
}

func (c *Coordinator) linkCurrent(l link) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.links[l.author]
	return ok && cur.seq == l.seq
}

func (c *Coordinator) dropLink(author int64) {
	c.mu.Lock()
	delete(c.links, author)
	c.mu.Unlock()
}
