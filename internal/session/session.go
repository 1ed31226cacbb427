// Package session tracks chat sessions and the actor each one belongs to.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FreePeak/db-copilot/internal/logger"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrActorMismatch is returned when a session is used by another actor
	ErrActorMismatch = errors.New("session belongs to another actor")
)

// Session is one chat session. It is bound to the actor that opened it.
type Session struct {
	ID             string
	ActorID        string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Turns          int
}

// ExpireFunc is called with the id of every removed session
type ExpireFunc func(sessionID string)

// Manager manages chat sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	onExpire ExpireFunc
	now      func() time.Time
}

// NewManager creates a new session manager. onExpire may be nil.
func NewManager(onExpire ExpireFunc) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		onExpire: onExpire,
		now:      time.Now,
	}
}

// Touch records a turn for the session, opening it when it is unknown.
// An empty id opens a session under a fresh id.
func (m *Manager) Touch(id, actorID string) (Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = &Session{ID: id, ActorID: actorID, CreatedAt: now}
		m.sessions[id] = s
	} else if s.ActorID != actorID {
		return Session{}, ErrActorMismatch
	}
	s.LastAccessedAt = now
	s.Turns++
	return *s, nil
}

// GetSession gets a session by ID
func (m *Manager) GetSession(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

// RemoveSession removes a session by ID
func (m *Manager) RemoveSession(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok && m.onExpire != nil {
		m.onExpire(id)
	}
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupSessions removes sessions idle for longer than maxAge and
// returns how many were removed
func (m *Manager) CleanupSessions(maxAge time.Duration) int {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if now.Sub(s.LastAccessedAt) > maxAge {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if m.onExpire != nil {
		for _, id := range expired {
			m.onExpire(id)
		}
	}
	return len(expired)
}

// Run cleans up idle sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupSessions(maxAge); n > 0 {
				logger.Debug("Expired %d idle sessions", n)
			}
		}
	}
}
