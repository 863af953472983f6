package memory

import (
	"context"
	"sync"
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session // keyed by token hash
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Insert adds a new session. Returns ErrDuplicateKey if the hash exists.
func (s *SessionStore) Insert(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.TokenHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sess.TokenHash]; exists {
		return storage.ErrDuplicateKey
	}
	sessCopy := *sess
	s.data[sess.TokenHash] = &sessCopy
	return nil
}

// GetByHash retrieves a session by credential hash.
func (s *SessionStore) GetByHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[tokenHash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	sessCopy := *sess
	return &sessCopy, nil
}

// TouchLastSeen sets the last activity timestamp.
func (s *SessionStore) TouchLastSeen(_ context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[tokenHash]
	if !ok {
		return storage.ErrNotFound
	}
	sess.LastSeenAt = at
	return nil
}

// Delete removes a session. Missing sessions are ignored.
func (s *SessionStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, tokenHash)
	return nil
}

// DeleteExpired removes all sessions expired at now.
func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, sess := range s.data {
		if sess.Expired(now) {
			delete(s.data, hash)
			n++
		}
	}
	return n, nil
}
