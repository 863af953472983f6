package memory

import (
	"context"
	"sync"
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// PollStore is an in-memory implementation of storage.PollStore.
type PollStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Poll // keyed by id
	active map[string]string       // drop id -> active poll id
}

// NewPollStore creates a new in-memory poll store.
func NewPollStore() *PollStore {
	return &PollStore{
		data:   make(map[string]*domain.Poll),
		active: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.PollStore = (*PollStore)(nil)

func copyPoll(p *domain.Poll) *domain.Poll {
	pollCopy := *p
	pollCopy.Options = append([]string(nil), p.Options...)
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		pollCopy.ClosedAt = &t
	}
	return &pollCopy
}

// CreateActive inserts p as the active poll, closing the current one.
func (s *PollStore) CreateActive(_ context.Context, p *domain.Poll) (*domain.Poll, error) {
	if p == nil || p.ID == "" || p.DropID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return nil, storage.ErrDuplicateKey
	}

	var closed *domain.Poll
	if prevID, ok := s.active[p.DropID]; ok {
		prev := s.data[prevID]
		at := p.CreatedAt
		prev.Active = false
		prev.ClosedAt = &at
		closed = copyPoll(prev)
	}

	stored := copyPoll(p)
	stored.Active = true
	stored.ClosedAt = nil
	s.data[p.ID] = stored
	s.active[p.DropID] = p.ID
	return closed, nil
}

// Close deactivates the active poll pollID of dropID.
func (s *PollStore) Close(_ context.Context, dropID, pollID string, at time.Time) (*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[dropID] != pollID {
		return nil, storage.ErrNotFound
	}
	p := s.data[pollID]
	p.Active = false
	p.ClosedAt = &at
	delete(s.active, dropID)
	return copyPoll(p), nil
}

// GetByID retrieves a poll by ID.
func (s *PollStore) GetByID(_ context.Context, id string) (*domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPoll(p), nil
}

// GetActive retrieves the active poll of a drop.
func (s *PollStore) GetActive(_ context.Context, dropID string) (*domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[dropID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPoll(s.data[id]), nil
}
