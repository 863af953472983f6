// Package ledger records gated viewer actions (messages and poll votes)
// and derives tallies from the recorded votes.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
	"drop-live/internal/events"
	"drop-live/internal/observability"
	"drop-live/internal/storage"
)

// Defaults.
const (
	DefaultSnapshotMessages = 50
	MaxMessagesPage         = 100
)

// BalanceGate answers holder-threshold questions.
type BalanceGate interface {
	GetBalance(ctx context.Context, wallet, assetID string) *big.Int
	MeetsThreshold(ctx context.Context, wallet, assetID, thresholdRaw string) (bool, error)
	FormatUI(raw string) string
}

// Publisher fans out drop events keyed by slug.
type Publisher interface {
	Publish(key string, ev events.Event) int
}

// Service is the action ledger.
type Service struct {
	drops     storage.DropStore
	polls     storage.PollStore
	actions   storage.ActionStore
	gate      BalanceGate
	publisher Publisher
	sanitizer *Sanitizer

	snapshotMessages int
	now              func() time.Time
	logger           zerolog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithSanitizer sets the message sanitizer.
func WithSanitizer(s *Sanitizer) Option {
	return func(svc *Service) {
		svc.sanitizer = s
	}
}

// WithSnapshotMessages sets how many recent messages a snapshot carries.
func WithSnapshotMessages(n int) Option {
	return func(svc *Service) {
		svc.snapshotMessages = n
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

// NewService creates an action ledger.
func NewService(drops storage.DropStore, polls storage.PollStore, actions storage.ActionStore, gate BalanceGate, pub Publisher, opts ...Option) *Service {
	s := &Service{
		drops:            drops,
		polls:            polls,
		actions:          actions,
		gate:             gate,
		publisher:        pub,
		sanitizer:        NewSanitizer(DefaultMaxMessageLength, nil),
		snapshotMessages: DefaultSnapshotMessages,
		now:              time.Now,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "ledger").Logger()
	return s
}

// Holding is a wallet's standing against a drop's threshold.
type Holding struct {
	Eligible   bool   `json:"eligible"`
	Balance    string `json:"balance"`
	Required   string `json:"required"`
	RequiredUI string `json:"requiredUi"`
}

func (s *Service) dropBySlug(ctx context.Context, slug string) (*domain.Drop, error) {
	d, err := s.drops.GetBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Internal("load drop", err)
	}
	return d, nil
}

// requireHolding fails unless d is launched and wallet meets its threshold.
func (s *Service) requireHolding(ctx context.Context, d *domain.Drop, wallet string) error {
	if !d.IsLaunched() {
		return apperr.ErrDropNotLaunched
	}
	ok, err := s.gate.MeetsThreshold(ctx, wallet, d.AssetID, d.ThresholdRaw)
	if err != nil {
		return apperr.Internal("check holding", err)
	}
	if !ok {
		return apperr.InsufficientHolding(d.ThresholdRaw, s.gate.FormatUI(d.ThresholdRaw))
	}
	return nil
}

// CheckHolding reports whether wallet may interact with the drop at slug.
func (s *Service) CheckHolding(ctx context.Context, slug, wallet string) (*Holding, error) {
	d, err := s.dropBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !d.IsLaunched() {
		return nil, apperr.ErrDropNotLaunched
	}

	required, err := domain.ParseAmount(d.ThresholdRaw)
	if err != nil {
		return nil, apperr.Internal("check holding", err)
	}
	balance := s.gate.GetBalance(ctx, wallet, d.AssetID)
	return &Holding{
		Eligible:   balance.Cmp(required) >= 0,
		Balance:    balance.String(),
		Required:   d.ThresholdRaw,
		RequiredUI: s.gate.FormatUI(d.ThresholdRaw),
	}, nil
}

func (s *Service) rejected(kind domain.ActionKind, err error) error {
	if e := apperr.As(err); e != nil {
		observability.RecordActionRejected(string(kind), string(e.Code))
	}
	return err
}

// SubmitMessage records a sanitized message and broadcasts it.
func (s *Service) SubmitMessage(ctx context.Context, slug, wallet, rawText string) (*domain.Action, error) {
	d, err := s.dropBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.requireHolding(ctx, d, wallet); err != nil {
		return nil, s.rejected(domain.ActionKindMessage, err)
	}

	text, ok := s.sanitizer.Clean(rawText)
	if !ok {
		return nil, s.rejected(domain.ActionKindMessage, apperr.ErrMessageRejected)
	}

	a, err := domain.NewMessageAction(uuid.NewString(), d.ID, wallet, text, s.now())
	if err != nil {
		return nil, apperr.Internal("record message", err)
	}
	if err := s.actions.Insert(ctx, a); err != nil {
		return nil, apperr.Internal("record message", err)
	}
	observability.RecordActionRecorded(string(domain.ActionKindMessage))

	s.publisher.Publish(d.Slug, messageEvent(a, text))
	return a, nil
}

// SubmitVote records one vote of wallet on the active poll and broadcasts the new tally.
func (s *Service) SubmitVote(ctx context.Context, slug, wallet, pollID string, optionIndex int) (*domain.Action, []int, error) {
	d, err := s.dropBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	poll, err := s.polls.GetActive(ctx, d.ID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && poll.ID != pollID) {
		return nil, nil, s.rejected(domain.ActionKindVote, apperr.ErrPollNotFound)
	}
	if err != nil {
		return nil, nil, apperr.Internal("load poll", err)
	}
	if !poll.HasOption(optionIndex) {
		return nil, nil, s.rejected(domain.ActionKindVote, apperr.ErrInvalidOption.WithDetail("options", len(poll.Options)))
	}
	if err := s.requireHolding(ctx, d, wallet); err != nil {
		return nil, nil, s.rejected(domain.ActionKindVote, err)
	}

	voted, err := s.actions.HasVote(ctx, d.ID, wallet, pollID)
	if err != nil {
		return nil, nil, apperr.Internal("check vote", err)
	}
	if voted {
		return nil, nil, s.rejected(domain.ActionKindVote, apperr.ErrDuplicateVote)
	}

	a, err := domain.NewVoteAction(uuid.NewString(), d.ID, wallet, pollID, optionIndex, s.now())
	if err != nil {
		return nil, nil, apperr.Internal("record vote", err)
	}
	err = s.actions.Insert(ctx, a)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Lost the race to a concurrent vote of the same wallet.
		return nil, nil, s.rejected(domain.ActionKindVote, apperr.ErrDuplicateVote)
	}
	if err != nil {
		return nil, nil, apperr.Internal("record vote", err)
	}
	observability.RecordActionRecorded(string(domain.ActionKindVote))

	counts, err := s.tally(ctx, poll)
	if err != nil {
		return nil, nil, err
	}

	s.publisher.Publish(d.Slug, events.Vote{PollID: pollID, OptionIndex: optionIndex, VoteCounts: counts})
	return a, counts, nil
}

// Tally recounts the votes of a poll from the ledger.
func (s *Service) Tally(ctx context.Context, dropID, pollID string) ([]int, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && poll.DropID != dropID) {
		return nil, apperr.ErrPollNotFound
	}
	if err != nil {
		return nil, apperr.Internal("load poll", err)
	}
	return s.tally(ctx, poll)
}

// tally scans every vote of the poll's drop. Votes with unreadable payloads
// or options outside the poll are skipped.
func (s *Service) tally(ctx context.Context, poll *domain.Poll) ([]int, error) {
	votes, err := s.actions.ListVotes(ctx, poll.DropID)
	if err != nil {
		return nil, apperr.Internal("tally votes", err)
	}

	counts := make([]int, len(poll.Options))
	for _, a := range votes {
		v, err := a.Vote()
		if err != nil || v.PollID != poll.ID || !poll.HasOption(v.OptionIndex) {
			continue
		}
		counts[v.OptionIndex]++
	}
	return counts, nil
}

func messageEvent(a *domain.Action, text string) events.Message {
	return events.Message{
		ID:            a.ID,
		WalletDisplay: DisplayWallet(a.Wallet),
		Text:          text,
		CreatedAt:     a.CreatedAt.UnixMilli(),
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxMessagesPage {
		return MaxMessagesPage
	}
	return limit
}

func toMessages(actions []*domain.Action) []events.Message {
	result := make([]events.Message, 0, len(actions))
	for _, a := range actions {
		m, err := a.Message()
		if err != nil {
			continue
		}
		result = append(result, messageEvent(a, m.Text))
	}
	return result
}

// RecentMessages returns up to limit messages of a drop, newest first.
func (s *Service) RecentMessages(ctx context.Context, dropID string, limit int) ([]events.Message, error) {
	actions, err := s.actions.ListMessages(ctx, dropID, clampLimit(limit))
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}
	return toMessages(actions), nil
}

// MessagesSince returns up to limit messages created after since, newest first.
func (s *Service) MessagesSince(ctx context.Context, dropID string, since time.Time, limit int) ([]events.Message, error) {
	actions, err := s.actions.ListMessagesSince(ctx, dropID, since, clampLimit(limit))
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}
	return toMessages(actions), nil
}
