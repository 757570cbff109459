package session

import (
	"context"
	"sync"
)

type memoryDocs struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func (m *memoryDocs) load(_ context.Context, user int64) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[user]
	return s, ok, nil
}

func (m *memoryDocs) save(_ context.Context, user int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[user] = s
	return nil
}

func (m *memoryDocs) remove(_ context.Context, user int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, user)
	return nil
}

func (m *memoryDocs) count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// MemoryStore keeps sessions in process memory. They do not survive a restart.
type MemoryStore struct {
	*lockedStore
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lockedStore: newLockedStore(&memoryDocs{sessions: make(map[int64]Session)})}
}
