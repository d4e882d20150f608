// Package memstore is an in-memory account store for tests and examples. It
// honors the same compare-and-swap contract as the Redis-backed store.
package memstore

import (
	"context"
	"sync"

	"github.com/bba-labs/authkit"
)

// Store keeps accounts in a map keyed by normalized email. Safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	accounts map[string]authkit.Account
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]authkit.Account),
	}
}

// Get returns a copy of the account for email.
func (s *Store) Get(_ context.Context, email string) (*authkit.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[email]
	if !ok {
		return nil, authkit.ErrAccountNotFound
	}
	copied := stored
	return &copied, nil
}

// Put writes account with compare-and-swap semantics on Version and advances
// account.Version in place on success.
func (s *Store) Put(_ context.Context, account *authkit.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.accounts[account.Email]

	if account.Version == 0 {
		if exists {
			return authkit.ErrDuplicateEmail
		}
		account.Version = 1
		s.accounts[account.Email] = *account
		return nil
	}

	if !exists {
		return authkit.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return authkit.ErrVersionConflict
	}

	account.Version++
	s.accounts[account.Email] = *account
	return nil
}

// Exists reports whether an account is stored for email.
func (s *Store) Exists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.accounts[email]
	return ok, nil
}
