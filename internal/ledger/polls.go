package ledger

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
	"drop-live/internal/events"
	"drop-live/internal/storage"
)

// Poll limits.
const (
	MaxQuestionLength = 200
	MaxOptionLength   = 64
	MinOptions        = 2
	MaxOptions        = 6
)

// loadOwned returns the drop if it exists and belongs to ownerID.
func (s *Service) loadOwned(ctx context.Context, ownerID, dropID string) (*domain.Drop, error) {
	d, err := s.drops.GetByID(ctx, dropID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Internal("load drop", err)
	}
	if d.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return d, nil
}

func validatePoll(question string, options []string) map[string]string {
	fields := make(map[string]string)
	if n := utf8.RuneCountInString(question); n == 0 || n > MaxQuestionLength {
		fields["question"] = "must be 1-200 characters"
	}
	if len(options) < MinOptions || len(options) > MaxOptions {
		fields["options"] = "must have 2-6 options"
		return fields
	}
	for _, o := range options {
		if n := utf8.RuneCountInString(o); n == 0 || n > MaxOptionLength {
			fields["options"] = "each option must be 1-64 characters"
			break
		}
	}
	return fields
}

// CreatePoll activates a new poll on the drop, closing the current one.
func (s *Service) CreatePoll(ctx context.Context, ownerID, dropID, question string, options []string) (*domain.Poll, error) {
	question = strings.TrimSpace(question)
	clean := make([]string, len(options))
	for i, o := range options {
		clean[i] = strings.TrimSpace(o)
	}
	if fields := validatePoll(question, clean); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	d, err := s.loadOwned(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}

	p := &domain.Poll{
		ID:        uuid.NewString(),
		DropID:    d.ID,
		Question:  question,
		Options:   clean,
		Active:    true,
		CreatedAt: s.now(),
	}
	closed, err := s.polls.CreateActive(ctx, p)
	if err != nil {
		return nil, apperr.Internal("create poll", err)
	}

	if closed != nil {
		s.publisher.Publish(d.Slug, events.PollClosed{PollID: closed.ID})
	}
	s.publisher.Publish(d.Slug, events.PollCreated{PollID: p.ID, Question: p.Question, Options: p.Options})
	s.logger.Info().Str("drop_id", d.ID).Str("poll_id", p.ID).Msg("poll created")
	return p, nil
}

// ClosePoll stops the active poll pollID from accepting votes.
func (s *Service) ClosePoll(ctx context.Context, ownerID, dropID, pollID string) (*domain.Poll, error) {
	d, err := s.loadOwned(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}

	p, err := s.polls.Close(ctx, d.ID, pollID, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrPollNotFound
	}
	if err != nil {
		return nil, apperr.Internal("close poll", err)
	}

	s.publisher.Publish(d.Slug, events.PollClosed{PollID: p.ID})
	return p, nil
}

// ActivePoll returns the active poll of a drop, or nil if there is none.
func (s *Service) ActivePoll(ctx context.Context, dropID string) (*domain.Poll, error) {
	p, err := s.polls.GetActive(ctx, dropID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load poll", err)
	}
	return p, nil
}

// Snapshot is the full live state of a drop, used to resynchronize clients.
type Snapshot struct {
	Drop       *domain.Drop
	Poll       *domain.Poll
	VoteCounts []int
	Messages   []events.Message
}

// Snapshot returns the drop at slug with its active poll, tally and recent messages.
func (s *Service) Snapshot(ctx context.Context, slug string) (*Snapshot, error) {
	d, err := s.dropBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Drop: d}
	if snap.Poll, err = s.ActivePoll(ctx, d.ID); err != nil {
		return nil, err
	}
	if snap.Poll != nil {
		if snap.VoteCounts, err = s.tally(ctx, snap.Poll); err != nil {
			return nil, err
		}
	}
	if snap.Messages, err = s.RecentMessages(ctx, d.ID, s.snapshotMessages); err != nil {
		return nil, err
	}
	return snap, nil
}
