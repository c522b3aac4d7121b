package pager

import (
	"context"
	"sync"
	"time"
)

// Kind names an independently paged collection.
type Kind string

const (
	KindNews      Kind = "news"
	KindMaterials Kind = "materials"
	KindThemes    Kind = "themes"
)

// DefaultCursorTTL is how long a cursor survives without access.
const DefaultCursorTTL = 1800 * time.Second

// Cursor is a user's last rendered position in one collection.
// Position semantics belong to the collection.
type Cursor struct {
	Position   int       `json:"position"`
	LastAccess time.Time `json:"last_access"`
}

// CursorStore keeps one cursor per (user, kind). Get reports ok=false when absent.
type CursorStore interface {
	Get(ctx context.Context, userID int64, kind Kind) (Cursor, bool, error)
	Put(ctx context.Context, userID int64, kind Kind, c Cursor) error
	Delete(ctx context.Context, userID int64, kind Kind) error
}

type cursorKey struct {
	userID int64
	kind   Kind
}

type MemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[cursorKey]Cursor
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[cursorKey]Cursor)}
}

func (m *MemoryCursorStore) Get(_ context.Context, userID int64, kind Kind) (Cursor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cursors[cursorKey{userID, kind}]
	return c, ok, nil
}

func (m *MemoryCursorStore) Put(_ context.Context, userID int64, kind Kind, c Cursor) error {
	m.mu.Lock()
	m.cursors[cursorKey{userID, kind}] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryCursorStore) Delete(_ context.Context, userID int64, kind Kind) error {
	m.mu.Lock()
	delete(m.cursors, cursorKey{userID, kind})
	m.mu.Unlock()
	return nil
}

// Sweep drops cursors idle for longer than ttl as of now.
func (m *MemoryCursorStore) Sweep(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, c := range m.cursors {
		if now.Sub(c.LastAccess) > ttl {
			delete(m.cursors, k)
			n++
		}
	}
	return n
}

func (m *MemoryCursorStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cursors)
}
