package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// ActionStore is an in-memory implementation of storage.ActionStore.
// A unique index on (drop, wallet, poll) mirrors the postgres vote constraint.
type ActionStore struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	byDrop map[string][]*domain.Action // append order
	votes  map[voteKey]struct{}
}

type voteKey struct {
	dropID string
	wallet string
	pollID string
}

// NewActionStore creates a new in-memory action store.
func NewActionStore() *ActionStore {
	return &ActionStore{
		ids:    make(map[string]struct{}),
		byDrop: make(map[string][]*domain.Action),
		votes:  make(map[voteKey]struct{}),
	}
}

// Compile-time interface check.
var _ storage.ActionStore = (*ActionStore)(nil)

func copyAction(a *domain.Action) *domain.Action {
	actionCopy := *a
	actionCopy.Payload = append([]byte(nil), a.Payload...)
	return &actionCopy
}

// Insert appends an action. Returns ErrDuplicateKey on a repeated vote.
func (s *ActionStore) Insert(_ context.Context, a *domain.Action) error {
	if a == nil || a.ID == "" || a.DropID == "" || !a.Kind.IsValid() {
		return storage.ErrInvalidInput
	}

	var key voteKey
	if a.Kind == domain.ActionKindVote {
		v, err := a.Vote()
		if err != nil || v.PollID == "" {
			return storage.ErrInvalidInput
		}
		key = voteKey{dropID: a.DropID, wallet: a.Wallet, pollID: v.PollID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[a.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if a.Kind == domain.ActionKindVote {
		if _, exists := s.votes[key]; exists {
			return storage.ErrDuplicateKey
		}
		s.votes[key] = struct{}{}
	}

	s.ids[a.ID] = struct{}{}
	s.byDrop[a.DropID] = append(s.byDrop[a.DropID], copyAction(a))
	return nil
}

// HasVote reports whether wallet already voted on pollID.
func (s *ActionStore) HasVote(_ context.Context, dropID, wallet, pollID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.votes[voteKey{dropID: dropID, wallet: wallet, pollID: pollID}]
	return exists, nil
}

// ListVotes retrieves all VOTE actions of a drop, oldest first.
func (s *ActionStore) ListVotes(_ context.Context, dropID string) ([]*domain.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Action
	for _, a := range s.byDrop[dropID] {
		if a.Kind == domain.ActionKindVote {
			result = append(result, copyAction(a))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListMessages retrieves up to limit MESSAGE actions, newest first.
func (s *ActionStore) ListMessages(ctx context.Context, dropID string, limit int) ([]*domain.Action, error) {
	return s.ListMessagesSince(ctx, dropID, time.Time{}, limit)
}

// ListMessagesSince retrieves up to limit MESSAGE actions created after since, newest first.
func (s *ActionStore) ListMessagesSince(_ context.Context, dropID string, since time.Time, limit int) ([]*domain.Action, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Walk backwards so equal timestamps come out newest-insert first.
	actions := s.byDrop[dropID]
	var result []*domain.Action
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if a.Kind == domain.ActionKindMessage && a.CreatedAt.After(since) {
			result = append(result, copyAction(a))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
