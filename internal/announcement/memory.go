package announcement

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/walkbot/internal/walk"
)

// MemoryStore keeps announcements in a slice guarded by a single mutex.
type MemoryStore struct {
	mu    sync.Mutex
	items []walk.Announcement
	seq   atomic.Int64
	now   func() time.Time
}

// NewMemoryStore returns an empty store. Ids continue from the start time in milliseconds
// so that ids handed out before a restart are not reused.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	s.seq.Store(time.Now().UnixMilli())
	return s
}

// NextID implements Store.
func (s *MemoryStore) NextID(context.Context) (int64, error) {
	return s.seq.Add(1), nil
}

// Add implements Store.
func (s *MemoryStore) Add(_ context.Context, a walk.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == a.ID {
			return ErrDuplicateID
		}
		if a.Status == walk.StatusPending && it.AuthorID == a.AuthorID && it.Status == walk.StatusPending {
			return ErrAlreadyPending
		}
	}
	s.items = append(s.items, a)
	return nil
}

// ListByAuthor implements Store.
func (s *MemoryStore) ListByAuthor(_ context.Context, author int64) ([]walk.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []walk.Announcement
	for _, it := range s.items {
		if it.AuthorID == author {
			out = append(out, it)
		}
	}
	return out, nil
}

// FindPendingByAuthor implements Store.
func (s *MemoryStore) FindPendingByAuthor(_ context.Context, author int64) (walk.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.AuthorID == author && it.Status == walk.StatusPending {
			return it, nil
		}
	}
	return walk.Announcement{}, ErrNotFound
}

// RemoveByIDAndAuthor implements Store.
func (s *MemoryStore) RemoveByIDAndAuthor(_ context.Context, id, author int64) (walk.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.items, func(it walk.Announcement) bool {
		return it.ID == id && it.AuthorID == author
	})
	if i < 0 {
		return walk.Announcement{}, ErrNotFound
	}
	removed := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	return removed, nil
}

// MarkPublished implements Store.
func (s *MemoryStore) MarkPublished(ctx context.Context, id int64, ref walk.ChannelRef) (walk.Announcement, error) {
	return s.update(id, func(a *walk.Announcement) error {
		return a.Publish(ctx, ref, s.now())
	})
}

// MarkRejected implements Store.
func (s *MemoryStore) MarkRejected(ctx context.Context, id int64) (walk.Announcement, error) {
	return s.update(id, func(a *walk.Announcement) error {
		return a.Reject(ctx, s.now())
	})
}

// Stats implements Store.
func (s *MemoryStore) Stats(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, it := range s.items {
		st.add(it.Status, 1)
	}
	return st, nil
}

func (s *MemoryStore) update(id int64, apply func(*walk.Announcement) error) (walk.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		next := s.items[i]
		if err := apply(&next); err != nil {
			return s.items[i], err
		}
		s.items[i] = next
		return next, nil
	}
	return walk.Announcement{}, ErrNotFound
}
