package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/walk"
)

// Notifier hands a freshly submitted announcement to moderation.
type Notifier interface {
	NotifyModerator(ctx context.Context, a walk.Announcement) error
}

// Result describes the dialogue after an operation so the transport can render it.
type Result struct {
	// State is the state after the operation; a data-entry state means "prompt for it".
	State State
	// Previous is the state before Cancel.
	Previous State
	Draft    walk.Draft
	Editing  bool
	// Announcement is set by Submit.
	Announcement walk.Announcement
}

// Machine applies dialogue operations atomically per user.
type Machine struct {
	store         Store
	announcements announcement.Store
	notifier      Notifier
	now           func() time.Time
}

// NewMachine wires the dialogue to its stores. notifier may be nil in tests.
func NewMachine(store Store, announcements announcement.Store, notifier Notifier) *Machine {
	return &Machine{store: store, announcements: announcements, notifier: notifier, now: time.Now}
}

// Store exposes the draft store, e.g. for the moderation coordinator.
func (m *Machine) Store() Store {
	return m.store
}

// InProgress reports whether user has an active dialogue.
func (m *Machine) InProgress(ctx context.Context, user int64) bool {
	st, err := m.store.State(ctx, user)
	return err == nil && st.Active()
}

// Current returns the user's session, idle when absent.
func (m *Machine) Current(ctx context.Context, user int64) (Session, error) {
	return m.store.Get(ctx, user)
}

// Start begins a new draft in StateTopic, discarding any leftover.
func (m *Machine) Start(ctx context.Context, user int64) (Result, error) {
	if err := m.store.Start(ctx, user); err != nil {
		return Result{}, err
	}
	logger.Debug(ctx, logger.CompSessions, "start", slog.Int64("user_id", user))
	return Result{State: StateTopic}, nil
}

// Handle feeds one input into the current step. A *ValidationError leaves the state as is;
// ErrIgnored means the input is not for the dialogue.
func (m *Machine) Handle(ctx context.Context, user int64, in Input) (Result, error) {
	var res Result
	err := m.store.Update(ctx, user, func(s *Session) error {
		step, err := Transition(s.State, s.Editing, in)
		if err != nil {
			return err
		}
		if err := s.Draft.Set(step.Field, step.Value); err != nil {
			return err
		}
		from := s.State
		s.State = step.Next
		if step.ClearEditing {
			s.Editing = false
		}
		res = Result{State: s.State, Draft: s.Draft}
		logger.Debug(ctx, logger.CompSessions, "step",
			slog.Int64("user_id", user),
			slog.String("from", string(from)),
			slog.String("to", string(s.State)),
			slog.String("input", in.Kind.String()),
		)
		return nil
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			logger.Debug(ctx, logger.CompSessions, "step",
				slog.String("status", "invalid"),
				slog.Int64("user_id", user),
				slog.String("field", string(verr.Field)),
				slog.String("reason", string(verr.Reason)),
			)
		}
		return Result{}, err
	}
	return res, nil
}

// Cancel drops the session from any state.
func (m *Machine) Cancel(ctx context.Context, user int64) (Result, error) {
	var prev State
	err := m.store.Update(ctx, user, func(s *Session) error {
		prev = s.State
		*s = Session{State: StateIdle}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logger.Debug(ctx, logger.CompSessions, "cancel", slog.Int64("user_id", user), slog.String("from", string(prev)))
	return Result{State: StateIdle, Previous: prev}, nil
}

// Preview returns the draft while the user is in preview.
func (m *Machine) Preview(ctx context.Context, user int64) (Result, error) {
	s, err := m.store.Get(ctx, user)
	if err != nil {
		return Result{}, err
	}
	if s.State != StatePreview {
		return Result{}, ErrNotInPreview
	}
	return Result{State: s.State, Draft: s.Draft}, nil
}

// Edit reopens one field from preview; the next accepted value returns to preview.
func (m *Machine) Edit(ctx context.Context, user int64, field walk.Field) (Result, error) {
	target, ok := StateFor(field)
	if !ok {
		return Result{}, walk.ErrUnknownField
	}
	var res Result
	err := m.store.Update(ctx, user, func(s *Session) error {
		if s.State != StatePreview {
			return ErrNotInPreview
		}
		s.State = target
		s.Editing = true
		res = Result{State: target, Draft: s.Draft, Editing: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Submit turns the previewed draft into a pending announcement, resets the session and
// notifies moderation. A failed notification is logged; the announcement stays pending.
func (m *Machine) Submit(ctx context.Context, user int64) (Result, error) {
	var created walk.Announcement
	err := m.store.Update(ctx, user, func(s *Session) error {
		if s.State != StatePreview {
			return ErrNotInPreview
		}
		if _, err := m.announcements.FindPendingByAuthor(ctx, user); err == nil {
			return announcement.ErrAlreadyPending
		} else if !errors.Is(err, announcement.ErrNotFound) {
			return err
		}
		id, err := m.announcements.NextID(ctx)
		if err != nil {
			return err
		}
		a := walk.NewAnnouncement(id, user, s.Draft, m.now())
		if err := m.announcements.Add(ctx, a); err != nil {
			return err
		}
		created = a
		*s = Session{State: StateIdle}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info(ctx, logger.CompSessions, "submit",
		slog.String("status", "ok"),
		slog.Int64("user_id", user),
		slog.Int64("announcement_id", created.ID),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyModerator(ctx, created); err != nil {
			logger.Warn(ctx, logger.CompSessions, "submit.notify",
				slog.String("status", "error"),
				slog.Int64("announcement_id", created.ID),
				logger.Err(err),
			)
		}
	}
	return Result{State: StateIdle, Announcement: created}, nil
}
