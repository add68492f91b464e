package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events in memory. Suitable for tests and
// single-process deployments; production would fan out to a durable sink.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Event, 0)
	for _, e := range s.events {
		if e.Subject == subject {
			result = append(result, e)
		}
	}
	return result, nil
}
