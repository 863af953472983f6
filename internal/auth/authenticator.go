// Package auth implements wallet sign-in: single-use signed challenges
// exchanged for opaque session credentials.
package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
	"drop-live/internal/observability"
	"drop-live/internal/solana"
	"drop-live/internal/storage"
)

// Defaults.
const (
	DefaultAppName       = "drop-live"
	DefaultNonceTTL      = 5 * time.Minute
	DefaultSessionTTL    = 168 * time.Hour
	DefaultTouchInterval = 5 * time.Minute
)

// Config holds authenticator settings.
type Config struct {
	AppName       string
	NonceTTL      time.Duration
	SessionTTL    time.Duration
	TouchInterval time.Duration // minimum gap between last-seen updates
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		AppName:       DefaultAppName,
		NonceTTL:      DefaultNonceTTL,
		SessionTTL:    DefaultSessionTTL,
		TouchInterval: DefaultTouchInterval,
	}
}

// Challenge is an issued sign-in message.
type Challenge struct {
	Message  string    `json:"message"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Identity is the authenticated caller behind a session.
type Identity struct {
	UserID string `json:"userId"`
	Wallet string `json:"wallet"`
}

// Authenticator issues challenges and manages sessions.
type Authenticator struct {
	users    storage.UserStore
	sessions storage.SessionStore
	nonces   NonceStore
	cfg      Config

	now    func() time.Time
	random io.Reader
	logger zerolog.Logger
}

// Option configures Authenticator.
type Option func(*Authenticator)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// WithRandom sets the source of nonce and credential bytes.
func WithRandom(r io.Reader) Option {
	return func(a *Authenticator) {
		a.random = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// New creates an authenticator. Zero durations in cfg fall back to defaults.
func New(users storage.UserStore, sessions storage.SessionStore, nonces NonceStore, cfg Config, opts ...Option) *Authenticator {
	def := DefaultConfig()
	if cfg.AppName == "" {
		cfg.AppName = def.AppName
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = def.NonceTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.TouchInterval <= 0 {
		cfg.TouchInterval = def.TouchInterval
	}

	a := &Authenticator{
		users:    users,
		sessions: sessions,
		nonces:   nonces,
		cfg:      cfg,
		now:      time.Now,
		random:   defaultRandom,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With().Str("component", "auth").Logger()
	return a
}

// HashCredential returns the stored form of a session credential.
func HashCredential(credential string) string {
	sum := blake3.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// IssueChallenge creates a new challenge for wallet, replacing any previous one.
func (a *Authenticator) IssueChallenge(ctx context.Context, wallet string) (*Challenge, error) {
	if _, err := solana.DecodePublicKey(wallet); err != nil {
		return nil, apperr.InvalidField("wallet", "must be a base58 ed25519 public key")
	}

	nonce, err := randomToken(a.random, nonceBytes)
	if err != nil {
		return nil, apperr.Internal("issue challenge", err)
	}

	now := a.now()
	n := &domain.Nonce{
		Wallet:   wallet,
		Message:  buildChallenge(a.cfg.AppName, wallet, now, nonce),
		IssuedAt: now,
	}
	if err := a.nonces.Put(ctx, n, a.cfg.NonceTTL); err != nil {
		return nil, apperr.Internal("issue challenge", err)
	}

	if removed, err := a.nonces.Sweep(ctx, now.Add(-a.cfg.NonceTTL)); err != nil {
		a.logger.Warn().Err(err).Msg("nonce sweep failed")
	} else if removed > 0 {
		a.logger.Debug().Int("removed", removed).Msg("swept expired nonces")
	}

	return &Challenge{Message: n.Message, IssuedAt: now}, nil
}

// VerifyAndCreateSession consumes the wallet's challenge, checks the signature
// over message and mints a session. The raw credential is returned once.
// The challenge is consumed whatever the outcome.
func (a *Authenticator) VerifyAndCreateSession(ctx context.Context, wallet, signature, message string) (string, *Identity, error) {
	n, err := a.nonces.Take(ctx, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, apperr.ErrNonceExpiredOrMissing
	}
	if err != nil {
		return "", nil, apperr.Internal("verify challenge", err)
	}

	now := a.now()
	if now.Sub(n.IssuedAt) >= a.cfg.NonceTTL || n.Message != message {
		return "", nil, apperr.ErrNonceExpiredOrMissing
	}

	sig, err := solana.DecodeSignature(signature)
	switch {
	case errors.Is(err, solana.ErrInvalidLength):
		return "", nil, apperr.ErrInvalidSignatureLength
	case err != nil:
		return "", nil, apperr.ErrInvalidSignatureEncoding
	}

	pub, err := solana.DecodePublicKey(wallet)
	if err != nil || !solana.Verify(pub, []byte(message), sig) {
		return "", nil, apperr.ErrSignatureVerificationFailed
	}

	user, err := a.userFor(ctx, wallet, now)
	if err != nil {
		return "", nil, err
	}

	credential, err := randomToken(a.random, credentialBytes)
	if err != nil {
		return "", nil, apperr.Internal("create session", err)
	}

	sess := &domain.Session{
		TokenHash:  HashCredential(credential),
		UserID:     user.ID,
		Wallet:     user.Wallet,
		CreatedAt:  now,
		ExpiresAt:  now.Add(a.cfg.SessionTTL),
		LastSeenAt: now,
	}
	if err := a.sessions.Insert(ctx, sess); err != nil {
		return "", nil, apperr.Internal("create session", err)
	}

	observability.RecordSessionIssued()
	a.logger.Info().Str("wallet", wallet).Str("user_id", user.ID).Msg("session created")

	return credential, &Identity{UserID: user.ID, Wallet: user.Wallet}, nil
}

// userFor returns the user of wallet, creating it on first sign-in.
func (a *Authenticator) userFor(ctx context.Context, wallet string, now time.Time) (*domain.User, error) {
	user, err := a.users.GetByWallet(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("load user", err)
	}

	user = &domain.User{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		CreatedAt: now,
	}
	err = a.users.Insert(ctx, user)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Concurrent first sign-in of the same wallet.
		user, err = a.users.GetByWallet(ctx, wallet)
	}
	if err != nil {
		return nil, apperr.Internal("create user", err)
	}
	return user, nil
}

// ValidateSession resolves a presented credential.
// Returns (nil, nil) for unknown or expired credentials.
func (a *Authenticator) ValidateSession(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, nil
	}

	hash := HashCredential(credential)
	sess, err := a.sessions.GetByHash(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("validate session", err)
	}

	now := a.now()
	if sess.Expired(now) {
		if err := a.sessions.Delete(ctx, hash); err != nil {
			a.logger.Warn().Err(err).Str("user_id", sess.UserID).Msg("delete expired session failed")
		}
		return nil, nil
	}

	if now.Sub(sess.LastSeenAt) >= a.cfg.TouchInterval {
		if err := a.sessions.TouchLastSeen(ctx, hash, now); err != nil {
			a.logger.Warn().Err(err).Str("user_id", sess.UserID).Msg("session touch failed")
		}
	}

	return &Identity{UserID: sess.UserID, Wallet: sess.Wallet}, nil
}

// DestroySession deletes the session of credential. Unknown credentials are ignored.
func (a *Authenticator) DestroySession(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}
	if err := a.sessions.Delete(ctx, HashCredential(credential)); err != nil {
		return apperr.Internal("destroy session", err)
	}
	return nil
}

// SweepExpired deletes all expired sessions and returns how many were removed.
func (a *Authenticator) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := a.sessions.DeleteExpired(ctx, a.now())
	if err != nil {
		return 0, apperr.Internal("sweep sessions", err)
	}
	observability.RecordSessionsSwept(removed)
	return removed, nil
}

// RunSweeper sweeps expired sessions and challenges every interval until ctx is done.
func (a *Authenticator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.SweepExpired(ctx)
			if err != nil {
				a.logger.Warn().Err(err).Msg("session sweep failed")
			} else if removed > 0 {
				a.logger.Info().Int64("removed", removed).Msg("swept expired sessions")
			}
			if _, err := a.nonces.Sweep(ctx, a.now().Add(-a.cfg.NonceTTL)); err != nil {
				a.logger.Warn().Err(err).Msg("nonce sweep failed")
			}
		}
	}
}

// LookupUser returns the user record of an authenticated identity.
func (a *Authenticator) LookupUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := a.users.GetByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return user, nil
}
