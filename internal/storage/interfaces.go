package storage

import (
	"context"
	"time"

	"drop-live/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// Insert adds a new user. Returns ErrDuplicateKey if the wallet exists.
	Insert(ctx context.Context, u *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByWallet retrieves a user by wallet address. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.User, error)
}

// SessionStore provides access to sessions storage. Keyed by credential hash.
type SessionStore interface {
	// Insert adds a new session. Returns ErrDuplicateKey if the hash exists.
	Insert(ctx context.Context, s *domain.Session) error

	// GetByHash retrieves a session. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error)

	// TouchLastSeen sets the last activity timestamp. Returns ErrNotFound if not exists.
	TouchLastSeen(ctx context.Context, tokenHash string, at time.Time) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired removes sessions with expires_at <= now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// DropStore provides access to drops storage.
type DropStore interface {
	// Insert adds a new drop. Returns ErrDuplicateKey if id or slug exists.
	Insert(ctx context.Context, d *domain.Drop) error

	// GetByID retrieves a drop by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Drop, error)

	// GetBySlug retrieves a drop by slug. Returns ErrNotFound if not exists.
	GetBySlug(ctx context.Context, slug string) (*domain.Drop, error)

	// ListByOwner retrieves all drops of an owner, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Drop, error)

	// UpdateIf replaces the mutable fields of d only if the stored status equals expected.
	// Returns ErrNotFound if the drop does not exist, ErrConflict if the status differs.
	UpdateIf(ctx context.Context, d *domain.Drop, expected domain.DropStatus) error

	// SetThreshold updates the holding threshold regardless of status.
	// Returns ErrNotFound if not exists.
	SetThreshold(ctx context.Context, id, thresholdRaw string, at time.Time) error
}

// PollStore provides access to polls storage.
type PollStore interface {
	// CreateActive inserts p as the active poll of its drop, closing the
	// previously active poll in the same transaction. Returns the closed poll, if any.
	CreateActive(ctx context.Context, p *domain.Poll) (*domain.Poll, error)

	// Close deactivates an active poll. Returns ErrNotFound if no such active poll.
	Close(ctx context.Context, dropID, pollID string, at time.Time) (*domain.Poll, error)

	// GetByID retrieves a poll by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Poll, error)

	// GetActive retrieves the active poll of a drop. Returns ErrNotFound if none.
	GetActive(ctx context.Context, dropID string) (*domain.Poll, error)
}

// ActionStore provides access to the append-only actions ledger.
type ActionStore interface {
	// Insert appends an action. Returns ErrDuplicateKey if a VOTE for the same
	// (drop, wallet, poll) already exists.
	Insert(ctx context.Context, a *domain.Action) error

	// HasVote reports whether wallet already voted on pollID in dropID.
	HasVote(ctx context.Context, dropID, wallet, pollID string) (bool, error)

	// ListVotes retrieves all VOTE actions of a drop, ordered by created_at ASC.
	ListVotes(ctx context.Context, dropID string) ([]*domain.Action, error)

	// ListMessages retrieves up to limit MESSAGE actions of a drop, newest first.
	ListMessages(ctx context.Context, dropID string, limit int) ([]*domain.Action, error)

	// ListMessagesSince retrieves up to limit MESSAGE actions created strictly
	// after since, newest first.
	ListMessagesSince(ctx context.Context, dropID string, since time.Time, limit int) ([]*domain.Action, error)
}

// ClaimStore provides access to claims storage.
type ClaimStore interface {
	// Insert adds a claim record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, c *domain.Claim) error

	// ListByDrop retrieves all claims of a drop, newest first.
	ListByDrop(ctx context.Context, dropID string) ([]*domain.Claim, error)
}
