package session

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/linlog/pkg/errors"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	if s.IsExpired() {
		m.remove(id, s)
		return nil, errors.New(errors.ErrCodeSessionExpired, "session %s expired", id)
	}
	return s, nil
}

func (m *MemoryStore) Set(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	m.remove(id, s)
	return nil
}

// remove deletes id only if it still maps to s, then closes s outside the
// store lock.
func (m *MemoryStore) remove(id string, s *Session) {
	m.mu.Lock()
	if m.sessions[id] == s {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	s.Close()
}

func (m *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	m.mu.RLock()
	var expired []*Session
	for _, s := range m.sessions {
		if s.IsExpired() {
			expired = append(expired, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range expired {
		m.remove(s.ID, s)
	}
	return len(expired), nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every session and empties the store.
func (m *MemoryStore) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Janitor runs Cleanup every interval until ctx is done.
func Janitor(ctx context.Context, store Store, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err == nil && n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

var _ Store = (*MemoryStore)(nil)
