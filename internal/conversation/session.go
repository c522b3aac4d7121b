package conversation

import (
	"context"
	"sync"
	"time"

	"telegram-contest-bot/internal/domain"
)

// Session is a user's conversation context.
type Session struct {
	UserID    int64     `json:"user_id"`
	State     State     `json:"state"`
	Scratch   *Scratch  `json:"scratch"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) Clone() *Session {
	c := *s
	c.Scratch = s.Scratch.Clone()
	return &c
}

// SessionStore persists sessions. Load returns domain.ErrNotFound for a user
// that has never been seen.
type SessionStore interface {
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// MemorySessionStore keeps sessions in a process-wide map.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]*Session)}
}

func (m *MemorySessionStore) Load(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.UserID == 0 {
		return domain.ErrInvalidArgument
	}
	m.mu.Lock()
	m.sessions[s.UserID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
