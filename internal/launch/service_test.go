package launch

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
	"drop-live/internal/events"
	lpstub "drop-live/internal/launchpad/stub"
	"drop-live/internal/storage"
	"drop-live/internal/storage/memory"
)

var (
	creatorWallet   = base58.Encode(bytes.Repeat([]byte{7}, 32))
	prizePoolWallet = base58.Encode(bytes.Repeat([]byte{8}, 32))
	launchSig       = base58.Encode(bytes.Repeat([]byte{9}, 64))
)

const ownerID = "owner-1"

type published struct {
	key string
	ev  events.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(key string, ev events.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key: key, ev: ev})
	return 1
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type fixture struct {
	svc    *Service
	drops  storage.DropStore
	lp     *lpstub.Client
	pub    *recordingPublisher
	claims *memory.ClaimStore
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		drops:  memory.NewDropStore(),
		lp:     lpstub.NewClient(),
		pub:    &recordingPublisher{},
		claims: memory.NewClaimStore(),
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithPrizePoolWallet(prizePoolWallet),
		WithClock(func() time.Time { return now }),
	}, opts...)
	f.svc = NewService(f.drops, f.claims, f.lp, f.pub, opts...)
	return f
}

func validSpec() DraftSpec {
	return DraftSpec{
		Name:               "Test Token",
		Symbol:             "tok",
		Description:        "a drop",
		Website:            "https://example.com",
		CreatorBps:         7000,
		PrizePoolBps:       3000,
		ThresholdRaw:       "1000",
		InitialBuyLamports: "500000000",
	}
}

func (f *fixture) draft(t *testing.T) *domain.Drop {
	t.Helper()
	d, err := f.svc.CreateDraft(context.Background(), ownerID, validSpec())
	require.NoError(t, err)
	return d
}

// launched drives a new drop to LAUNCHED.
func (f *fixture) launched(t *testing.T) *domain.Drop {
	t.Helper()
	ctx := context.Background()
	d := f.draft(t)

	_, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.NoError(t, err)
	pending, err := f.svc.AdvanceToConfigPending(ctx, ownerID, d.ID, creatorWallet)
	require.NoError(t, err)
	_, err = f.svc.ConfirmConfig(ctx, ownerID, d.ID, pending.ConfigKey)
	require.NoError(t, err)
	_, err = f.svc.PrepareLaunchTransaction(ctx, ownerID, d.ID, creatorWallet)
	require.NoError(t, err)
	d, err = f.svc.ConfirmLaunch(ctx, ownerID, d.ID, launchSig)
	require.NoError(t, err)
	return d
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)
	spec := validSpec()
	spec.ThresholdRaw = ""

	d, err := f.svc.CreateDraft(context.Background(), ownerID, spec)
	require.NoError(t, err)

	assert.Equal(t, domain.DropStatusDraft, d.Status)
	assert.Equal(t, "TOK", d.Symbol)
	assert.Equal(t, "0", d.ThresholdRaw)
	assert.Regexp(t, regexp.MustCompile(`^tok-[0-9a-z]{6}$`), d.Slug)

	stored, err := f.drops.GetBySlug(context.Background(), d.Slug)
	require.NoError(t, err)
	assert.Equal(t, d.ID, stored.ID)
}

func TestCreateDraft_ReportsAllInvalidFields(t *testing.T) {
	f := newFixture(t)
	spec := DraftSpec{
		Name:               "",
		Symbol:             "bad!",
		Description:        string(bytes.Repeat([]byte("x"), MaxDescriptionLength+1)),
		Website:            "ftp://example.com",
		CreatorBps:         6000,
		PrizePoolBps:       5000,
		ThresholdRaw:       "-1",
		InitialBuyLamports: "1.5",
	}

	_, err := f.svc.CreateDraft(context.Background(), ownerID, spec)
	require.ErrorIs(t, err, apperr.ErrValidation)

	fields := apperr.As(err).Fields
	for _, field := range []string{"name", "symbol", "description", "website", "prizePoolBps", "thresholdRaw", "initialBuyLamports"} {
		assert.Contains(t, fields, field)
	}
	assert.NotContains(t, fields, "creatorBps")
}

func TestCreateDraft_BpsBounds(t *testing.T) {
	f := newFixture(t)
	spec := validSpec()
	spec.CreatorBps = 10001
	spec.PrizePoolBps = -1

	_, err := f.svc.CreateDraft(context.Background(), ownerID, spec)
	require.ErrorIs(t, err, apperr.ErrValidation)
	fields := apperr.As(err).Fields
	assert.Equal(t, "must be between 0 and 10000", fields["creatorBps"])
	assert.Equal(t, "must be between 0 and 10000", fields["prizePoolBps"])
}

type collidingDropStore struct {
	storage.DropStore
	collisions atomic.Int32
}

func (s *collidingDropStore) Insert(ctx context.Context, d *domain.Drop) error {
	if s.collisions.Add(1) <= 2 {
		return storage.ErrDuplicateKey
	}
	return s.DropStore.Insert(ctx, d)
}

func TestCreateDraft_RetriesSlugCollision(t *testing.T) {
	drops := &collidingDropStore{DropStore: memory.NewDropStore()}
	svc := NewService(drops, memory.NewClaimStore(), lpstub.NewClient(), &recordingPublisher{})

	d, err := svc.CreateDraft(context.Background(), ownerID, validSpec())
	require.NoError(t, err)
	assert.Equal(t, int32(3), drops.collisions.Load())
	assert.NotEmpty(t, d.Slug)
}

func TestLaunchFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)

	d, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusTokenInfoCreated, d.Status)
	assert.Equal(t, f.lp.TokenInfo.AssetID, d.AssetID)
	assert.Equal(t, f.lp.TokenInfo.MetadataURL, d.MetadataURL)

	pending, err := f.svc.AdvanceToConfigPending(ctx, ownerID, d.ID, creatorWallet)
	require.NoError(t, err)
	assert.Equal(t, f.lp.ConfigKey, pending.ConfigKey)
	assert.Equal(t, []string{lpstub.TxBlob}, pending.Transactions)
	assert.Equal(t, 7000, f.lp.LastFeeClaimers[0].Bps)
	assert.Equal(t, creatorWallet, f.lp.LastFeeClaimers[0].Wallet)
	assert.Equal(t, 3000, f.lp.LastFeeClaimers[1].Bps)
	assert.Equal(t, prizePoolWallet, f.lp.LastFeeClaimers[1].Wallet)

	stored, err := f.svc.Get(ctx, ownerID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusTokenInfoCreated, stored.Status, "prepare step must not advance")

	d, err = f.svc.ConfirmConfig(ctx, ownerID, d.ID, pending.ConfigKey)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusConfigCreated, d.Status)

	tx, err := f.svc.PrepareLaunchTransaction(ctx, ownerID, d.ID, creatorWallet)
	require.NoError(t, err)
	assert.Equal(t, lpstub.TxBlob, tx)
	assert.Equal(t, "500000000", f.lp.LastLaunch.InitialBuyLamports)
	assert.Equal(t, pending.ConfigKey, f.lp.LastLaunch.ConfigKey)

	d, err = f.svc.ConfirmLaunch(ctx, ownerID, d.ID, launchSig)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusLaunched, d.Status)
	assert.True(t, d.IsLaunched())
	require.NotNil(t, d.LaunchedAt)

	evs := f.pub.all()
	require.Len(t, evs, 2)
	assert.Equal(t, d.Slug, evs[0].key)
	assert.Equal(t, events.StatusChanged{Status: "CONFIG_CREATED"}, evs[0].ev)
	assert.Equal(t, events.DropLaunched{AssetID: d.AssetID, LaunchSignature: launchSig}, evs[1].ev)
}

func TestAdvanceToTokenInfo_RejectedAfterward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.launched(t)
	before, err := f.svc.Get(ctx, ownerID, d.ID)
	require.NoError(t, err)
	calls := f.lp.Calls(lpstub.OpCreateTokenInfo)

	for i := 0; i < 2; i++ {
		_, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
		require.ErrorIs(t, err, apperr.ErrInvalidStateTransition)

		after, err := f.svc.Get(ctx, ownerID, d.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}
	assert.Equal(t, calls, f.lp.Calls(lpstub.OpCreateTokenInfo))
}

func TestAdvanceToTokenInfo_RejectedAtConfigCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)
	_, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmConfig(ctx, ownerID, d.ID, "cfg")
	require.NoError(t, err)

	_, err = f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	assert.Equal(t, "CONFIG_CREATED", apperr.As(err).Details["status"])
}

func TestTransitions_NoSkipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)

	_, err := f.svc.ConfirmConfig(ctx, ownerID, d.ID, "cfg")
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	_, err = f.svc.ConfirmLaunch(ctx, ownerID, d.ID, launchSig)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	_, err = f.svc.PrepareLaunchTransaction(ctx, ownerID, d.ID, creatorWallet)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	_, err = f.svc.AdvanceToConfigPending(ctx, ownerID, d.ID, creatorWallet)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)

	stored, err := f.svc.Get(ctx, ownerID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusDraft, stored.Status)
	assert.Empty(t, f.pub.all())
}

func TestAdvanceToTokenInfo_UpstreamFailureLeavesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)
	f.lp.FailWith(lpstub.OpCreateTokenInfo, errors.New("launch service unavailable"))

	_, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Contains(t, err.Error(), "launch service unavailable")

	stored, err := f.svc.Get(ctx, ownerID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusDraft, stored.Status)
	assert.Empty(t, stored.AssetID)

	f.lp.FailWith(lpstub.OpCreateTokenInfo, nil)
	_, err = f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	assert.NoError(t, err)
}

func TestAdvanceToTokenInfo_Timeout(t *testing.T) {
	f := newFixture(t, WithUpstreamTimeout(-time.Second))
	ctx := context.Background()
	d := f.draft(t)

	_, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.ErrorIs(t, err, apperr.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stored, err := f.svc.Get(ctx, ownerID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DropStatusDraft, stored.Status)
}

func TestNonOwnerGetsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)

	_, err := f.svc.Get(ctx, "intruder", d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.AdvanceToTokenInfo(ctx, "intruder", d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.UpdateThreshold(ctx, "intruder", d.ID, "5")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.ListClaims(ctx, "intruder", d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Get(ctx, ownerID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConfirmConfig_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)
	_, err := f.svc.AdvanceToTokenInfo(ctx, ownerID, d.ID)
	require.NoError(t, err)

	var ok, conflict atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ConfirmConfig(ctx, ownerID, d.ID, "cfg")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperr.ErrInvalidStateTransition):
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(9), conflict.Load())
	assert.Len(t, f.pub.all(), 1)
}

func TestUpdateThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)

	updated, err := f.svc.UpdateThreshold(ctx, ownerID, d.ID, "250000")
	require.NoError(t, err)
	assert.Equal(t, "250000", updated.ThresholdRaw)
	assert.Equal(t, domain.DropStatusDraft, updated.Status)

	stored, err := f.svc.PublicBySlug(ctx, d.Slug)
	require.NoError(t, err)
	assert.Equal(t, "250000", stored.ThresholdRaw)

	evs := f.pub.all()
	require.Len(t, evs, 1)
	assert.Equal(t, events.ThresholdUpdated{ThresholdRaw: "250000"}, evs[0].ev)

	_, err = f.svc.UpdateThreshold(ctx, ownerID, d.ID, "1e6")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.As(err).Fields, "thresholdRaw")
}

func TestConfirmLaunch_InvalidSignature(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmLaunch(context.Background(), ownerID, "any", "not-a-signature")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.As(err).Fields, "signature")
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	f.draft(t)
	f.draft(t)

	drops, err := f.svc.ListMine(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Len(t, drops, 2)

	drops, err = f.svc.ListMine(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, drops)
}
