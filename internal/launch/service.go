// Package launch drives a drop through its one-way launch steps against the
// external launch service.
package launch

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
	"drop-live/internal/events"
	"drop-live/internal/launchpad"
	"drop-live/internal/observability"
	"drop-live/internal/solana"
	"drop-live/internal/storage"
)

// DefaultUpstreamTimeout bounds each launch-service call.
const DefaultUpstreamTimeout = 20 * time.Second

const (
	slugSuffixLength = 6
	slugAttempts     = 5
	slugAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Publisher fans out drop events keyed by slug.
type Publisher interface {
	Publish(key string, ev events.Event) int
}

// Service is the launch state machine.
type Service struct {
	drops     storage.DropStore
	claims    storage.ClaimStore
	launchpad launchpad.Client
	publisher Publisher

	prizePoolWallet string
	upstreamTimeout time.Duration

	now    func() time.Time
	random io.Reader
	logger zerolog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithUpstreamTimeout bounds each launch-service call.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.upstreamTimeout = d
	}
}

// WithPrizePoolWallet sets the wallet receiving the prize-pool share of fees.
func WithPrizePoolWallet(wallet string) Option {
	return func(s *Service) {
		s.prizePoolWallet = wallet
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a launch service.
func NewService(drops storage.DropStore, claims storage.ClaimStore, lp launchpad.Client, pub Publisher, opts ...Option) *Service {
	s := &Service{
		drops:           drops,
		claims:          claims,
		launchpad:       lp,
		publisher:       pub,
		upstreamTimeout: DefaultUpstreamTimeout,
		now:             time.Now,
		random:          rand.Reader,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "launch").Logger()
	return s
}

// ConfigPending is the prepared fee-share setup of a drop.
type ConfigPending struct {
	ConfigKey    string   `json:"configKey"`
	Transactions []string `json:"transactions"`
}

// CreateDraft validates spec and stores a new DRAFT drop owned by ownerID.
func (s *Service) CreateDraft(ctx context.Context, ownerID string, spec DraftSpec) (*domain.Drop, error) {
	spec = spec.normalize()
	if fields := spec.validate(); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	now := s.now()
	d := &domain.Drop{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		Name:               spec.Name,
		Symbol:             spec.Symbol,
		Description:        spec.Description,
		ImageURL:           spec.ImageURL,
		Website:            spec.Website,
		Twitter:            spec.Twitter,
		Telegram:           spec.Telegram,
		Status:             domain.DropStatusDraft,
		CreatorBps:         spec.CreatorBps,
		PrizePoolBps:       spec.PrizePoolBps,
		ThresholdRaw:       spec.ThresholdRaw,
		InitialBuyLamports: spec.InitialBuyLamports,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		suffix, err := s.randomSuffix()
		if err != nil {
			return nil, apperr.Internal("create drop", err)
		}
		d.Slug = strings.ToLower(spec.Symbol) + "-" + suffix

		err = s.drops.Insert(ctx, d)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return nil, apperr.Internal("create drop", err)
		}
		s.logger.Info().Str("drop_id", d.ID).Str("slug", d.Slug).Msg("drop created")
		return d, nil
	}
	return nil, apperr.Internal("create drop", errors.New("could not allocate a unique slug"))
}

func (s *Service) randomSuffix() (string, error) {
	base := big.NewInt(int64(len(slugAlphabet)))
	b := make([]byte, slugSuffixLength)
	for i := range b {
		n, err := rand.Int(s.random, base)
		if err != nil {
			return "", err
		}
		b[i] = slugAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Get returns a drop owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, dropID string) (*domain.Drop, error) {
	return s.loadOwned(ctx, ownerID, dropID)
}

// ListMine returns the drops of ownerID, newest first.
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*domain.Drop, error) {
	drops, err := s.drops.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("list drops", err)
	}
	return drops, nil
}

// PublicBySlug returns any drop by slug.
func (s *Service) PublicBySlug(ctx context.Context, slug string) (*domain.Drop, error) {
	d, err := s.drops.GetBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Internal("load drop", err)
	}
	return d, nil
}

// loadOwned returns the drop if it exists and belongs to ownerID.
// Other owners' drops are reported as not found.
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

// loadInStatus returns the owned drop if it is exactly in status want.
func (s *Service) loadInStatus(ctx context.Context, ownerID, dropID string, want domain.DropStatus) (*domain.Drop, error) {
	d, err := s.loadOwned(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}
	if d.Status != want {
		return nil, invalidTransition(d.Status, want)
	}
	return d, nil
}

func invalidTransition(current, required domain.DropStatus) *apperr.Error {
	return apperr.ErrInvalidStateTransition.
		WithDetail("status", string(current)).
		WithDetail("requiredStatus", string(required))
}

// advance persists next only if the stored status still equals from.
func (s *Service) advance(ctx context.Context, next *domain.Drop, from domain.DropStatus) error {
	next.UpdatedAt = s.now()
	err := s.drops.UpdateIf(ctx, next, from)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		// Another request advanced the drop first.
		return apperr.ErrInvalidStateTransition
	case err != nil:
		return apperr.Internal("update drop", err)
	}

	observability.RecordStateTransition(string(next.Status))
	s.logger.Info().
		Str("drop_id", next.ID).
		Str("from", string(from)).
		Str("to", string(next.Status)).
		Msg("drop advanced")
	return nil
}

func (s *Service) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.upstreamTimeout)
}

// AdvanceToTokenInfo creates the asset identity and moves DRAFT to TOKEN_INFO_CREATED.
func (s *Service) AdvanceToTokenInfo(ctx context.Context, ownerID, dropID string) (*domain.Drop, error) {
	d, err := s.loadInStatus(ctx, ownerID, dropID, domain.DropStatusDraft)
	if err != nil {
		return nil, err
	}

	uctx, cancel := s.upstreamContext(ctx)
	info, err := s.launchpad.CreateTokenInfo(uctx, launchpad.TokenInfoRequest{
		Name:        d.Name,
		Symbol:      d.Symbol,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Website:     d.Website,
		Twitter:     d.Twitter,
		Telegram:    d.Telegram,
	})
	cancel()
	if err != nil {
		return nil, apperr.Upstream("create token info", err)
	}
	if info.AssetID == "" || info.MetadataURL == "" {
		return nil, apperr.Upstream("create token info", errors.New("response is missing asset id or metadata"))
	}

	next := *d
	next.AssetID = info.AssetID
	next.MetadataURL = info.MetadataURL
	next.Status = domain.DropStatusTokenInfoCreated
	if err := s.advance(ctx, &next, domain.DropStatusDraft); err != nil {
		return nil, err
	}
	return &next, nil
}

// AdvanceToConfigPending prepares the fee-share setup transactions.
// The drop status does not change.
func (s *Service) AdvanceToConfigPending(ctx context.Context, ownerID, dropID, creatorWallet string) (*ConfigPending, error) {
	if _, err := solana.DecodeAddress(creatorWallet); err != nil {
		return nil, apperr.InvalidField("wallet", "must be a base58 address")
	}

	d, err := s.loadInStatus(ctx, ownerID, dropID, domain.DropStatusTokenInfoCreated)
	if err != nil {
		return nil, err
	}
	if d.AssetID == "" {
		return nil, invalidTransition(d.Status, domain.DropStatusTokenInfoCreated)
	}

	claimers := make([]launchpad.FeeClaimer, 0, 2)
	if d.CreatorBps > 0 {
		claimers = append(claimers, launchpad.FeeClaimer{Wallet: creatorWallet, Bps: d.CreatorBps})
	}
	if d.PrizePoolBps > 0 {
		if s.prizePoolWallet == "" {
			return nil, apperr.Internal("prepare fee config", errors.New("prize pool wallet is not configured"))
		}
		claimers = append(claimers, launchpad.FeeClaimer{Wallet: s.prizePoolWallet, Bps: d.PrizePoolBps})
	}

	uctx, cancel := s.upstreamContext(ctx)
	cfg, err := s.launchpad.CreateFeeShareConfig(uctx, creatorWallet, d.AssetID, claimers)
	cancel()
	if err != nil {
		return nil, apperr.Upstream("create fee share config", err)
	}

	return &ConfigPending{ConfigKey: cfg.ConfigKey, Transactions: cfg.Transactions}, nil
}

// ConfirmConfig records the fee-share config key and moves to CONFIG_CREATED.
func (s *Service) ConfirmConfig(ctx context.Context, ownerID, dropID, configKey string) (*domain.Drop, error) {
	configKey = strings.TrimSpace(configKey)
	if configKey == "" {
		return nil, apperr.InvalidField("configKey", "is required")
	}

	d, err := s.loadInStatus(ctx, ownerID, dropID, domain.DropStatusTokenInfoCreated)
	if err != nil {
		return nil, err
	}
	if d.AssetID == "" {
		return nil, invalidTransition(d.Status, domain.DropStatusTokenInfoCreated)
	}

	next := *d
	next.ConfigKey = configKey
	next.Status = domain.DropStatusConfigCreated
	if err := s.advance(ctx, &next, domain.DropStatusTokenInfoCreated); err != nil {
		return nil, err
	}

	s.publisher.Publish(next.Slug, events.StatusChanged{Status: string(next.Status)})
	return &next, nil
}

// PrepareLaunchTransaction returns the unsigned launch transaction.
// The drop status does not change.
func (s *Service) PrepareLaunchTransaction(ctx context.Context, ownerID, dropID, creatorWallet string) (string, error) {
	if _, err := solana.DecodeAddress(creatorWallet); err != nil {
		return "", apperr.InvalidField("wallet", "must be a base58 address")
	}

	d, err := s.loadInStatus(ctx, ownerID, dropID, domain.DropStatusConfigCreated)
	if err != nil {
		return "", err
	}
	if d.AssetID == "" || d.MetadataURL == "" || d.ConfigKey == "" {
		return "", invalidTransition(d.Status, domain.DropStatusConfigCreated)
	}

	uctx, cancel := s.upstreamContext(ctx)
	tx, err := s.launchpad.CreateLaunchTransaction(uctx, launchpad.LaunchRequest{
		MetadataURL:        d.MetadataURL,
		AssetID:            d.AssetID,
		Wallet:             creatorWallet,
		InitialBuyLamports: d.InitialBuyLamports,
		ConfigKey:          d.ConfigKey,
	})
	cancel()
	if err != nil {
		return "", apperr.Upstream("create launch transaction", err)
	}
	return tx, nil
}

// ConfirmLaunch records the launch signature and moves to LAUNCHED.
func (s *Service) ConfirmLaunch(ctx context.Context, ownerID, dropID, signature string) (*domain.Drop, error) {
	if _, err := solana.DecodeSignature(signature); err != nil {
		return nil, apperr.InvalidField("signature", "must be a base58 64-byte signature")
	}

	d, err := s.loadInStatus(ctx, ownerID, dropID, domain.DropStatusConfigCreated)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := *d
	next.LaunchSignature = signature
	next.LaunchedAt = &now
	next.Status = domain.DropStatusLaunched
	if err := s.advance(ctx, &next, domain.DropStatusConfigCreated); err != nil {
		return nil, err
	}

	s.publisher.Publish(next.Slug, events.DropLaunched{AssetID: next.AssetID, LaunchSignature: signature})
	return &next, nil
}

// UpdateThreshold sets the minimum holding in any status.
func (s *Service) UpdateThreshold(ctx context.Context, ownerID, dropID, thresholdRaw string) (*domain.Drop, error) {
	thresholdRaw = strings.TrimSpace(thresholdRaw)
	if err := validateThreshold(thresholdRaw); err != nil {
		return nil, err
	}

	d, err := s.loadOwned(ctx, ownerID, dropID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.drops.SetThreshold(ctx, d.ID, thresholdRaw, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Internal("update threshold", err)
	}
	d.ThresholdRaw = thresholdRaw
	d.UpdatedAt = now

	s.publisher.Publish(d.Slug, events.ThresholdUpdated{ThresholdRaw: thresholdRaw})
	return d, nil
}
