package memory

import (
	"context"
	"sort"
	"sync"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// ClaimStore is an in-memory implementation of storage.ClaimStore.
type ClaimStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Claim // keyed by id
}

// NewClaimStore creates a new in-memory claim store.
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		data: make(map[string]*domain.Claim),
	}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

// Insert adds a claim record.
func (s *ClaimStore) Insert(_ context.Context, c *domain.Claim) error {
	if c == nil || c.ID == "" || c.DropID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}
	claimCopy := *c
	claimCopy.Signatures = append([]string(nil), c.Signatures...)
	s.data[c.ID] = &claimCopy
	return nil
}

// ListByDrop retrieves all claims of a drop, newest first.
func (s *ClaimStore) ListByDrop(_ context.Context, dropID string) ([]*domain.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Claim
	for _, c := range s.data {
		if c.DropID == dropID {
			claimCopy := *c
			claimCopy.Signatures = append([]string(nil), c.Signatures...)
			result = append(result, &claimCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
