package postgres

import (
	"context"
	"fmt"
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// SessionStore is a PostgreSQL implementation of storage.SessionStore.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new PostgreSQL session store.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Insert adds a new session.
func (s *SessionStore) Insert(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO sessions (token_hash, user_id, wallet, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		sess.TokenHash,
		sess.UserID,
		sess.Wallet,
		sess.CreatedAt,
		sess.ExpiresAt,
		sess.LastSeenAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByHash retrieves a session by credential hash.
func (s *SessionStore) GetByHash(ctx context.Context, tokenHash string) (_ *domain.Session, err error) {
	defer func(start time.Time) { observe("session_get", start, err) }(time.Now())

	query := `
		SELECT token_hash, user_id, wallet, created_at, expires_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1
	`
	var sess domain.Session
	err = s.pool.QueryRow(ctx, query, tokenHash).Scan(
		&sess.TokenHash,
		&sess.UserID,
		&sess.Wallet,
		&sess.CreatedAt,
		&sess.ExpiresAt,
		&sess.LastSeenAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// TouchLastSeen sets the last activity timestamp.
func (s *SessionStore) TouchLastSeen(ctx context.Context, tokenHash string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE token_hash = $1`,
		tokenHash, at,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a session. Missing sessions are ignored.
func (s *SessionStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions expired at now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
