package memory

import (
	"context"
	"sync"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu       sync.RWMutex
	data     map[string]*domain.User // keyed by id
	byWallet map[string]string       // wallet -> id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		data:     make(map[string]*domain.User),
		byWallet: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Insert adds a new user. Returns ErrDuplicateKey if the wallet exists.
func (s *UserStore) Insert(_ context.Context, u *domain.User) error {
	if u == nil || u.ID == "" || u.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[u.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byWallet[u.Wallet]; exists {
		return storage.ErrDuplicateKey
	}

	userCopy := *u
	s.data[u.ID] = &userCopy
	s.byWallet[u.Wallet] = u.ID
	return nil
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

// GetByWallet retrieves a user by wallet address.
func (s *UserStore) GetByWallet(_ context.Context, wallet string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byWallet[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	userCopy := *s.data[id]
	return &userCopy, nil
}
