package session

import (
	"sync"
	"time"
)

// Locker serializes read-modify-write cycles per subject so that two
// webhook deliveries for the same number never interleave. Different
// subjects proceed in parallel.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*subjectLock
}

type subjectLock struct {
	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]*subjectLock),
	}
}

// WithLock runs fn while holding the subject's mutex.
func (l *Locker) WithLock(subjectID string, fn func()) {
	l.mu.Lock()
	sl, ok := l.locks[subjectID]
	if !ok {
		sl = &subjectLock{}
		l.locks[subjectID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	defer func() {
		sl.lastUsed = time.Now()
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		l.mu.Unlock()
	}()

	fn()
}

// Cleanup drops locks idle for longer than maxAge. Locks that are held or
// waited on are never dropped.
func (l *Locker) Cleanup(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sl := range l.locks {
		if sl.refs > 0 {
			continue
		}
		if now.Sub(sl.lastUsed) > maxAge {
			delete(l.locks, id)
			removed++
		}
	}
	return removed
}

func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
