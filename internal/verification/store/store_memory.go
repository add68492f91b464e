package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/sentinel"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	psync "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/platform/sync"
)

// InMemoryStore is the reference Store implementation. A sharded keyed mutex
// serializes updates per session id so concurrent verify calls on the same
// session cannot race, while unrelated sessions proceed on other shards.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.VerificationSession
	keys     *psync.ShardedMutex
	now      func() time.Time
}

// MemoryOption configures the in-memory store.
type MemoryOption func(*InMemoryStore)

// WithClock injects the time source. Tests use it to simulate expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[id.SessionID]*models.VerificationSession),
		keys:     psync.NewShardedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Create(_ context.Context, session *models.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrConflict)
	}
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

// Get returns a copy of the session. An expired session is lazily deleted
// and reported as not found.
func (s *InMemoryStore) Get(_ context.Context, sessionID id.SessionID) (*models.VerificationSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	if ok && !session.IsExpired(s.now()) {
		clone := *session
		s.mu.RUnlock()
		return &clone, nil
	}
	s.mu.RUnlock()

	if ok {
		s.mu.Lock()
		// Re-check under the write lock; another goroutine may have acted.
		if session, ok = s.sessions[sessionID]; ok && session.IsExpired(s.now()) {
			delete(s.sessions, sessionID)
		}
		s.mu.Unlock()
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

// Update runs the mutator with exclusive per-key ownership and persists the
// result. See the Store contract for mutator error semantics.
func (s *InMemoryStore) Update(ctx context.Context, sessionID id.SessionID, mutate func(*models.VerificationSession) error) (*models.VerificationSession, error) {
	s.keys.Lock(string(sessionID))
	defer s.keys.Unlock(string(sessionID))

	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	mutErr := mutate(current)

	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	clone := *current
	s.sessions[sessionID] = &clone
	s.mu.Unlock()

	if mutErr != nil {
		return nil, mutErr
	}
	result := *current
	return &result, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired removes all sessions that have expired as of the given time.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}
