package identitysvc

import (
	"context"
	"sync"
	"time"

	"github.com/vairaa/kazi/core"
)

// inMemoryStore keeps accounts in a map. Used by service tests and the
// in-memory wiring of the API tests.
type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account // keyed by ID
}

var _ AccountStore = (*inMemoryStore)(nil)

func NewInMemoryStore() *inMemoryStore {
	return &inMemoryStore{accounts: make(map[string]Account)}
}

func (s *inMemoryStore) CreateAccount(ctx context.Context, acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *inMemoryStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.accounts {
		if acct.Email == email {
			return acct, nil
		}
	}
	return Account{}, core.ErrAccountNotFound
}

func (s *inMemoryStore) GetAccountByID(ctx context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[id]; ok {
		return acct, nil
	}
	return Account{}, core.ErrAccountNotFound
}

func (s *inMemoryStore) SetAccountPassword(ctx context.Context, id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	acct.PasswordHash = hash
	s.accounts[id] = acct
	return nil
}

func (s *inMemoryStore) SetAccountLastLogin(ctx context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	acct.LastLogin = t
	s.accounts[id] = acct
	return nil
}
