package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/sentinel"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// InMemoryAccountStore keeps accounts in memory. The production deployment
// fronts the managed relational store; this is the reference implementation
// behind the same interface.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*Account
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.AccountID]*Account)}
}

// FindOrCreate resolves an account by phone or email, creating the candidate
// when neither matches.
func (s *InMemoryAccountStore) FindOrCreate(_ context.Context, phone, email string, candidate *Account) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.Phone == phone || account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	clone := *candidate
	s.accounts[candidate.ID] = &clone
	result := clone
	return &result, nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, accountID id.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[accountID]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
}

// UpdatePhone commits the phone mutation. It refuses phones already claimed
// by another account.
func (s *InMemoryAccountStore) UpdatePhone(_ context.Context, accountID id.AccountID, newPhone string, at time.Time) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	for otherID, other := range s.accounts {
		if otherID != accountID && other.Phone == newPhone {
			return nil, fmt.Errorf("phone already in use: %w", sentinel.ErrConflict)
		}
	}
	account.Phone = newPhone
	account.UpdatedAt = at
	clone := *account
	return &clone, nil
}
