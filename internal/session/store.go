package session

import (
	"context"
	"fmt"

	"github.com/m3rciful/walkbot/internal/keylock"
	"github.com/m3rciful/walkbot/internal/walk"
)

// Store keeps one Session per user. Reads for unknown users yield an idle, empty session.
// No field validation happens here.
type Store interface {
	// Start replaces whatever the user had with a fresh session in StateTopic.
	Start(ctx context.Context, user int64) error
	Get(ctx context.Context, user int64) (Session, error)
	State(ctx context.Context, user int64) (State, error)
	// SetState creates the session on demand.
	SetState(ctx context.Context, user int64, st State) error
	// SetField creates the session on demand; value is type-checked by walk.Draft.Set.
	SetField(ctx context.Context, user int64, field walk.Field, value any) error
	Draft(ctx context.Context, user int64) (walk.Draft, error)
	// Reset removes the session entirely.
	Reset(ctx context.Context, user int64) error
	// Update runs fn on the current session under the user's lock and stores the result.
	// Nothing is written when fn fails; a session left idle and empty is removed.
	Update(ctx context.Context, user int64, fn func(*Session) error) error
	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// documents is the persistence behind a Store: whole sessions in, whole sessions out.
type documents interface {
	load(ctx context.Context, user int64) (Session, bool, error)
	save(ctx context.Context, user int64, s Session) error
	remove(ctx context.Context, user int64) error
	count(ctx context.Context) (int, error)
}

// lockedStore implements Store over documents with a per-user lock.
type lockedStore struct {
	docs  documents
	locks *keylock.Map
}

func newLockedStore(docs documents) *lockedStore {
	return &lockedStore{docs: docs, locks: keylock.New()}
}

func (s *lockedStore) Start(ctx context.Context, user int64) error {
	unlock := s.locks.Lock(user)
	defer unlock()
	return s.docs.save(ctx, user, Session{State: StateTopic})
}

func (s *lockedStore) Get(ctx context.Context, user int64) (Session, error) {
	sess, ok, err := s.docs.load(ctx, user)
	if err != nil {
		return Session{State: StateIdle}, err
	}
	if !ok || !sess.State.Valid() {
		return Session{State: StateIdle}, nil
	}
	return sess, nil
}

func (s *lockedStore) State(ctx context.Context, user int64) (State, error) {
	sess, err := s.Get(ctx, user)
	return sess.State, err
}

func (s *lockedStore) SetState(ctx context.Context, user int64, st State) error {
	if !st.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownState, st)
	}
	return s.Update(ctx, user, func(sess *Session) error {
		sess.State = st
		return nil
	})
}

func (s *lockedStore) SetField(ctx context.Context, user int64, field walk.Field, value any) error {
	return s.Update(ctx, user, func(sess *Session) error {
		return sess.Draft.Set(field, value)
	})
}

func (s *lockedStore) Draft(ctx context.Context, user int64) (walk.Draft, error) {
	sess, err := s.Get(ctx, user)
	return sess.Draft, err
}

func (s *lockedStore) Reset(ctx context.Context, user int64) error {
	unlock := s.locks.Lock(user)
	defer unlock()
	return s.docs.remove(ctx, user)
}

func (s *lockedStore) Update(ctx context.Context, user int64, fn func(*Session) error) error {
	unlock := s.locks.Lock(user)
	defer unlock()

	sess, ok, err := s.docs.load(ctx, user)
	if err != nil {
		return err
	}
	if !ok || !sess.State.Valid() {
		sess = Session{State: StateIdle}
	}
	if err := fn(&sess); err != nil {
		return err
	}
	if sess.isBlank() {
		return s.docs.remove(ctx, user)
	}
	return s.docs.save(ctx, user, sess)
}

func (s *lockedStore) Count(ctx context.Context) (int, error) {
	return s.docs.count(ctx)
}
