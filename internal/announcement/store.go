// Package announcement keeps submitted walk announcements and their moderation status.
package announcement

import (
	"context"
	"errors"

	"github.com/m3rciful/walkbot/internal/walk"
)

var (
	// ErrNotFound is returned for missing ids and for records owned by someone else.
	ErrNotFound = errors.New("announcement: not found")
	// ErrAlreadyPending is returned when the author already waits for a moderation decision.
	ErrAlreadyPending = errors.New("announcement: author already has a pending announcement")
	// ErrDuplicateID is returned by Add when the id is taken.
	ErrDuplicateID = errors.New("announcement: duplicate id")
)

// Stats counts announcements per status.
type Stats struct {
	Pending   int `json:"pending"`
	Published int `json:"published"`
	Rejected  int `json:"rejected"`
}

// Total returns the number of stored announcements.
func (s Stats) Total() int {
	return s.Pending + s.Published + s.Rejected
}

func (s *Stats) add(status walk.Status, n int) {
	switch status {
	case walk.StatusPending:
		s.Pending += n
	case walk.StatusPublished:
		s.Published += n
	case walk.StatusRejected:
		s.Rejected += n
	}
}

// Store is the announcement repository. Implementations serialize every mutation.
type Store interface {
	// NextID reserves a unique identifier for a new announcement.
	NextID(ctx context.Context) (int64, error)
	// Add stores a new announcement. A second pending record for the same author is refused.
	Add(ctx context.Context, a walk.Announcement) error
	// ListByAuthor returns every announcement of author in insertion order.
	ListByAuthor(ctx context.Context, author int64) ([]walk.Announcement, error)
	// FindPendingByAuthor returns the author's pending announcement or ErrNotFound.
	FindPendingByAuthor(ctx context.Context, author int64) (walk.Announcement, error)
	// RemoveByIDAndAuthor deletes the record only when author owns it.
	RemoveByIDAndAuthor(ctx context.Context, id, author int64) (walk.Announcement, error)
	// MarkPublished moves a pending announcement to published and stores the channel message.
	MarkPublished(ctx context.Context, id int64, ref walk.ChannelRef) (walk.Announcement, error)
	// MarkRejected moves a pending announcement to rejected.
	MarkRejected(ctx context.Context, id int64) (walk.Announcement, error)
	// Stats counts records per status.
	Stats(ctx context.Context) (Stats, error)
}
