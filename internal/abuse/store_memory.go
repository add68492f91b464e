package abuse

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps failure windows in a mutex-guarded map. Eviction is
// lazy on access; Sweep exists so a background worker can bound memory.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	window  time.Duration
}

// NewInMemoryStore creates a store with the given window duration.
func NewInMemoryStore(window time.Duration) *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		window:  window,
	}
}

// RecordFailure increments the client's failure count, starting a fresh
// window when none is active. Returns the updated record.
func (s *InMemoryStore) RecordFailure(_ context.Context, clientKey string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[clientKey]
	if !ok || record.Expired(now, s.window) {
		record = &Record{ClientKey: clientKey, WindowStart: now}
		s.records[clientKey] = record
	}
	record.FailureCount++
	clone := *record
	return &clone, nil
}

// Get returns the active record for the client, or nil when none exists.
// An elapsed window is evicted on access.
func (s *InMemoryStore) Get(_ context.Context, clientKey string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[clientKey]
	if !ok {
		return nil, nil
	}
	if record.Expired(now, s.window) {
		delete(s.records, clientKey)
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// Sweep evicts all elapsed windows and returns how many were removed.
func (s *InMemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.records {
		if record.Expired(now, s.window) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
