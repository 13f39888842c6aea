// Package account defines the user-account lookup consumed by the risk gate.
// The real account service lives outside this core; implementations here
// cover tests and single-process deployments.
package account

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no account exists for a user.
var ErrNotFound = errors.New("account: not found")

// Account is the minimal view the risk gate needs.
type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// Service resolves user accounts. Lookup failures are fatal for the order
// being checked; callers must not fall back to a default balance.
type Service interface {
	Lookup(ctx context.Context, userID string) (*Account, error)
}

// MemoryService is an in-memory Service for tests and demo deployments.
type MemoryService struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryService creates an empty in-memory account service.
func NewMemoryService() *MemoryService {
	return &MemoryService{accounts: make(map[string]Account)}
}

// Set creates or replaces an account.
func (s *MemoryService) Set(id string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = Account{ID: id, Balance: balance}
}

// Lookup implements Service.
func (s *MemoryService) Lookup(_ context.Context, userID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &acct, nil
}
