package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// DropStore is an in-memory implementation of storage.DropStore.
type DropStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Drop // keyed by id
	bySlug map[string]string       // slug -> id
}

// NewDropStore creates a new in-memory drop store.
func NewDropStore() *DropStore {
	return &DropStore{
		data:   make(map[string]*domain.Drop),
		bySlug: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.DropStore = (*DropStore)(nil)

func copyDrop(d *domain.Drop) *domain.Drop {
	dropCopy := *d
	if d.LaunchedAt != nil {
		t := *d.LaunchedAt
		dropCopy.LaunchedAt = &t
	}
	return &dropCopy
}

// Insert adds a new drop. Returns ErrDuplicateKey if id or slug exists.
func (s *DropStore) Insert(_ context.Context, d *domain.Drop) error {
	if d == nil || d.ID == "" || d.Slug == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bySlug[d.Slug]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[d.ID] = copyDrop(d)
	s.bySlug[d.Slug] = d.ID
	return nil
}

// GetByID retrieves a drop by ID.
func (s *DropStore) GetByID(_ context.Context, id string) (*domain.Drop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyDrop(d), nil
}

// GetBySlug retrieves a drop by slug.
func (s *DropStore) GetBySlug(_ context.Context, slug string) (*domain.Drop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyDrop(s.data[id]), nil
}

// ListByOwner retrieves all drops of an owner, newest first.
func (s *DropStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.Drop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Drop
	for _, d := range s.data {
		if d.OwnerID == ownerID {
			result = append(result, copyDrop(d))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateIf replaces the drop only if its stored status equals expected.
// Identity fields (owner, slug, created_at) are kept from the stored record.
func (s *DropStore) UpdateIf(_ context.Context, d *domain.Drop, expected domain.DropStatus) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[d.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.Status != expected {
		return storage.ErrConflict
	}

	next := copyDrop(d)
	next.OwnerID = cur.OwnerID
	next.Slug = cur.Slug
	next.CreatedAt = cur.CreatedAt
	s.data[d.ID] = next
	return nil
}

// SetThreshold updates the holding threshold.
func (s *DropStore) SetThreshold(_ context.Context, id, thresholdRaw string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	d.ThresholdRaw = thresholdRaw
	d.UpdatedAt = at
	return nil
}
