// Package gate answers "does this wallet hold enough of the asset" from a
// short-lived balance cache in front of the chain RPC.
package gate

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"drop-live/internal/domain"
	"drop-live/internal/observability"
	"drop-live/internal/solana"
)

// Defaults.
const (
	DefaultTTL          = 15 * time.Second
	DefaultRetention    = 5 * time.Minute
	DefaultQueryTimeout = 5 * time.Second
	DefaultDecimals     = 9
)

type entry struct {
	amount    *big.Int
	fetchedAt time.Time
}

// Gate caches holder balances per (wallet, asset).
type Gate struct {
	reader       solana.BalanceReader
	ttl          time.Duration
	retention    time.Duration
	queryTimeout time.Duration
	decimals     int32
	now          func() time.Time
	logger       zerolog.Logger

	mu        sync.RWMutex
	cache     map[string]entry
	lastSweep time.Time

	inflight singleflight.Group
}

// Option configures Gate.
type Option func(*Gate)

// WithTTL sets how long a fetched balance is served from cache.
func WithTTL(d time.Duration) Option {
	return func(g *Gate) {
		g.ttl = d
	}
}

// WithRetention sets how long an expired balance is kept as a fallback
// for failed refreshes. Values below the TTL are raised to the TTL.
func WithRetention(d time.Duration) Option {
	return func(g *Gate) {
		g.retention = d
	}
}

// WithQueryTimeout bounds each upstream balance query.
func WithQueryTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.queryTimeout = d
	}
}

// WithDecimals sets the token decimals used by FormatUI.
func WithDecimals(n int) Option {
	return func(g *Gate) {
		g.decimals = int32(n)
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// New creates a gate over reader.
func New(reader solana.BalanceReader, opts ...Option) *Gate {
	g := &Gate{
		reader:       reader,
		ttl:          DefaultTTL,
		retention:    DefaultRetention,
		queryTimeout: DefaultQueryTimeout,
		decimals:     DefaultDecimals,
		now:          time.Now,
		logger:       zerolog.Nop(),
		cache:        make(map[string]entry),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.retention < g.ttl {
		g.retention = g.ttl
	}
	g.lastSweep = g.now()
	g.logger = g.logger.With().Str("component", "gate").Logger()
	return g
}

var errNoBalance = errors.New("balance query returned no amount")

func cacheKey(wallet, assetID string) string {
	return wallet + "|" + assetID
}

// GetBalance returns the raw balance of assetID held by wallet.
// Within the TTL the cached value is returned without an upstream query.
// Concurrent misses for the same key share one upstream query.
// On query failure the last retained value is returned, or zero if none.
func (g *Gate) GetBalance(ctx context.Context, wallet, assetID string) *big.Int {
	key := cacheKey(wallet, assetID)
	now := g.now()

	g.mu.RLock()
	cached, ok := g.cache[key]
	g.mu.RUnlock()

	if ok && now.Sub(cached.fetchedAt) < g.ttl {
		observability.RecordGateHit()
		return new(big.Int).Set(cached.amount)
	}

	v, err, shared := g.inflight.Do(key, func() (interface{}, error) {
		return g.fetch(ctx, key, wallet, assetID)
	})
	if err != nil {
		observability.RecordGateFallback()
		g.logger.Warn().Err(err).Str("wallet", wallet).Str("asset_id", assetID).Msg("balance query failed, using fallback")
		if ok {
			return new(big.Int).Set(cached.amount)
		}
		return new(big.Int)
	}

	if shared {
		observability.RecordGateHit()
	} else {
		observability.RecordGateMiss()
	}
	return new(big.Int).Set(v.(*big.Int))
}

// fetch queries the chain and stores the result. The query is detached from
// the caller's cancellation because other callers may be waiting on it.
func (g *Gate) fetch(ctx context.Context, key, wallet, assetID string) (*big.Int, error) {
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.queryTimeout)
	amount, err := g.reader.GetHolderBalance(qctx, wallet, assetID)
	cancel()
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, errNoBalance
	}

	stored := new(big.Int).Set(amount)
	now := g.now()

	g.mu.Lock()
	g.cache[key] = entry{amount: stored, fetchedAt: now}
	if now.Sub(g.lastSweep) >= g.retention {
		g.sweepLocked(now)
	}
	g.mu.Unlock()

	return stored, nil
}

// Sweep removes balances older than the retention window and returns how
// many were removed. Fetches also sweep once per retention window.
func (g *Gate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sweepLocked(g.now())
}

func (g *Gate) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range g.cache {
		if now.Sub(e.fetchedAt) >= g.retention {
			delete(g.cache, k)
			removed++
		}
	}
	g.lastSweep = now
	if removed > 0 {
		g.logger.Debug().Int("removed", removed).Int("remaining", len(g.cache)).Msg("swept balance cache")
	}
	return removed
}

// Len returns the number of cached balances.
func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

// MeetsThreshold reports whether wallet holds at least thresholdRaw of assetID.
// Returns domain.ErrInvalidAmount for a malformed threshold. A zero threshold is always met without querying.
func (g *Gate) MeetsThreshold(ctx context.Context, wallet, assetID, thresholdRaw string) (bool, error) {
	threshold, err := domain.ParseAmount(thresholdRaw)
	if err != nil {
		return false, err
	}
	if threshold.Sign() == 0 {
		return true, nil
	}
	return g.GetBalance(ctx, wallet, assetID).Cmp(threshold) >= 0, nil
}

// Invalidate drops the cached balance of (wallet, assetID).
func (g *Gate) Invalidate(wallet, assetID string) {
	key := cacheKey(wallet, assetID)
	g.inflight.Forget(key)
	g.mu.Lock()
	delete(g.cache, key)
	g.mu.Unlock()
}

// InvalidateAll clears the cache.
func (g *Gate) InvalidateAll() {
	g.mu.Lock()
	g.cache = make(map[string]entry)
	g.mu.Unlock()
}

// FormatUI renders a raw amount in whole-token units, e.g. "1500000000" -> "1.5".
func (g *Gate) FormatUI(raw string) string {
	v, err := domain.ParseAmount(raw)
	if err != nil {
		return raw
	}
	return decimal.NewFromBigInt(v, -g.decimals).String()
}
