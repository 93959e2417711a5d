// Package memory provides a process-local ports.AccountStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/auth-service/internal/core/credentials"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// AccountStore keeps accounts in a map guarded by a mutex. Contents live for
// the lifetime of the process.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	now      func() time.Time
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]domain.Account), now: time.Now}
}

func (s *AccountStore) Create(_ context.Context, email, passwordHash string) (*domain.Account, error) {
	email = credentials.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	a := domain.Account{Email: email, PasswordHash: passwordHash, CreatedAt: s.now().UTC()}
	s.accounts[email] = a
	return &a, nil
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	a, ok := s.accounts[credentials.NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

// Ping always succeeds.
func (s *AccountStore) Ping(context.Context) error { return nil }

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
