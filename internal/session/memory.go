package session

import (
	"context"
	"sync"
	"time"

	"github.com/m3rciful/meowbot/internal/backend"
)

type memEntry struct {
	sess    Session
	expires time.Time
}

// Memory keeps sessions in process memory.
type Memory struct {
	mu      sync.Mutex
	entries map[int64]memEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory builds an empty Memory backend. A non-positive ttl keeps
// sessions until cleared.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[int64]memEntry), ttl: ttl, now: now}
}

// Load returns a copy of the stored session.
func (m *Memory) Load(_ context.Context, userID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(userID), nil
}

func (m *Memory) loadLocked(userID int64) Session {
	e, ok := m.entries[userID]
	if !ok {
		return idle(userID)
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, userID)
		return idle(userID)
	}
	return clone(e.sess)
}

// Update applies fn under the backend lock.
func (m *Memory) Update(_ context.Context, userID int64, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.loadLocked(userID)
	fn(&sess)
	if sess.empty() {
		delete(m.entries, userID)
		return nil
	}
	e := memEntry{sess: sess}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[userID] = e
	return nil
}

// Delete drops the session.
func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// clone copies the slices so callers cannot mutate stored state.
func clone(s Session) Session {
	s.Scratch.Plans = append([]backend.Plan(nil), s.Scratch.Plans...)
	s.Scratch.Locations = append([]backend.Location(nil), s.Scratch.Locations...)
	return s
}
