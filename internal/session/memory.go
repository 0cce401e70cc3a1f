package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions live until Delete
// or Sweep removes them.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) GetOrCreate(_ context.Context, subjectID string, now time.Time) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[subjectID]
	m.mu.RUnlock()

	if !ok {
		return New(subjectID, now), nil
	}
	s.LastActivityAt = now
	return s, nil
}

func (m *MemoryStore) Lookup(_ context.Context, subjectID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[subjectID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	m.sessions[s.SubjectID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, subjectID string) error {
	m.mu.Lock()
	delete(m.sessions, subjectID)
	m.mu.Unlock()
	return nil
}

// Sweep removes sessions whose last activity is older than maxIdle and
// returns how many were dropped. Handed-off sessions are kept: a human is
// still answering them.
func (m *MemoryStore) Sweep(maxIdle time.Duration, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !s.HandedOff() && now.Sub(s.LastActivityAt) > maxIdle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
