// Package session manages live layout sessions for the API server.
//
// A [Session] owns a graph and the [engine.Engine] that follows it. Engines
// are not safe for concurrent use, so every access goes through
// [Session.Do], which serializes callers.
//
// Sessions expire after a period without use. The [Store] interface keeps
// them by id; [MemoryStore] is the in-process implementation.
//
// # Usage
//
//	sess := session.New(pipeline.DefaultOptions(), session.DefaultTTL)
//	store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err // SESSION_NOT_FOUND or SESSION_EXPIRED
//	}
//	err = sess.Do(func(e *engine.Engine) error {
//	    return e.Edit(func(g *graph.Graph) error { return g.Link("a", "b") })
//	})
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/engine"
	"github.com/matzehuels/linlog/pkg/errors"
	"github.com/matzehuels/linlog/pkg/pipeline"
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 30 * time.Minute

// Session is a live graph with its layout engine.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	ttl       time.Duration
	expiresAt time.Time
	engine    *engine.Engine
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session with an empty graph.
func New(opts pipeline.Options, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ttl:       ttl,
		expiresAt: now.Add(ttl),
		engine:    engine.New(graph.New(), opts),
		done:      make(chan struct{}),
	}
}

// Do runs fn with exclusive access to the engine and extends the session's
// lifetime. It fails with SESSION_EXPIRED once the session is closed.
func (s *Session) Do(fn func(e *engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return errors.New(errors.ErrCodeSessionExpired, "session %s is closed", s.ID)
	default:
	}
	s.expiresAt = time.Now().Add(s.ttl)
	return fn(s.engine)
}

// ExpiresAt returns when the session expires unless used again.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// IsExpired reports whether the session has outlived its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt())
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close detaches the engine and closes Done. It is safe to call more than
// once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.engine.Close()
		close(s.done)
	})
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. Unknown ids fail with
	// SESSION_NOT_FOUND; expired sessions are closed, removed and fail
	// with SESSION_EXPIRED.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Delete closes and removes a session. Deleting an unknown id fails
	// with SESSION_NOT_FOUND.
	Delete(ctx context.Context, id string) error

	// Cleanup closes and removes expired sessions and returns how many.
	Cleanup(ctx context.Context) (int, error)
}
