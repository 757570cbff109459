package walk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
)

// Status is the moderation lifecycle position of an announcement.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// Lifecycle events.
const (
	EventPublish = "publish"
	EventReject  = "reject"
)

// ErrInvalidTransition is returned when an event does not apply to the current status.
var ErrInvalidTransition = errors.New("walk: invalid status transition")

var lifecycleEvents = fsm.Events{
	{Name: EventPublish, Src: []string{string(StatusPending)}, Dst: string(StatusPublished)},
	{Name: EventReject, Src: []string{string(StatusPending)}, Dst: string(StatusRejected)},
}

// Transition applies event to status and returns the resulting status.
func Transition(ctx context.Context, status Status, event string) (Status, error) {
	machine := fsm.NewFSM(string(status), lifecycleEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		return status, fmt.Errorf("%w: %s from %s: %v", ErrInvalidTransition, event, status, err)
	}
	return Status(machine.Current()), nil
}

// ChannelRef identifies a message posted to the public channel.
type ChannelRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference is unset.
func (r ChannelRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// Announcement is a submitted draft with moderation state.
type Announcement struct {
	ID       int64
	AuthorID int64
	Draft
	Status      Status
	CreatedAt   time.Time
	PublishedAt time.Time
	RejectedAt  time.Time
	Channel     ChannelRef
}

// NewAnnouncement snapshots draft into a pending announcement.
func NewAnnouncement(id, authorID int64, draft Draft, now time.Time) Announcement {
	return Announcement{
		ID:        id,
		AuthorID:  authorID,
		Draft:     draft,
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// Publish moves a pending announcement to published and records the channel message.
func (a *Announcement) Publish(ctx context.Context, ref ChannelRef, now time.Time) error {
	next, err := Transition(ctx, a.Status, EventPublish)
	if err != nil {
		return err
	}
	a.Status = next
	a.Channel = ref
	a.PublishedAt = now
	return nil
}

// Reject moves a pending announcement to rejected.
func (a *Announcement) Reject(ctx context.Context, now time.Time) error {
	next, err := Transition(ctx, a.Status, EventReject)
	if err != nil {
		return err
	}
	a.Status = next
	a.RejectedAt = now
	return nil
}
