package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// ActionStore is a PostgreSQL implementation of storage.ActionStore.
// Duplicate votes are rejected by the uq_actions_one_vote partial index.
type ActionStore struct {
	pool *Pool
}

// NewActionStore creates a new PostgreSQL action store.
func NewActionStore(pool *Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActionStore = (*ActionStore)(nil)

// Insert appends an action. Returns ErrDuplicateKey on a repeated vote.
func (s *ActionStore) Insert(ctx context.Context, a *domain.Action) (err error) {
	defer func(start time.Time) { observe("action_insert", start, err) }(time.Now())

	query := `
		INSERT INTO actions (id, drop_id, wallet, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`
	_, err = s.pool.Exec(ctx, query,
		a.ID,
		a.DropID,
		a.Wallet,
		string(a.Kind),
		string(a.Payload),
		a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// HasVote reports whether wallet already voted on pollID.
func (s *ActionStore) HasVote(ctx context.Context, dropID, wallet, pollID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM actions
			WHERE drop_id = $1 AND wallet = $2 AND kind = 'VOTE' AND payload->>'pollId' = $3
		)
	`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, dropID, wallet, pollID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// ListVotes retrieves all VOTE actions of a drop, oldest first.
func (s *ActionStore) ListVotes(ctx context.Context, dropID string) (_ []*domain.Action, err error) {
	defer func(start time.Time) { observe("action_list_votes", start, err) }(time.Now())

	query := `
		SELECT id, drop_id, wallet, kind, payload::text, created_at
		FROM actions
		WHERE drop_id = $1 AND kind = 'VOTE'
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, dropID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

// ListMessages retrieves up to limit MESSAGE actions, newest first.
func (s *ActionStore) ListMessages(ctx context.Context, dropID string, limit int) ([]*domain.Action, error) {
	return s.ListMessagesSince(ctx, dropID, time.Time{}, limit)
}

// ListMessagesSince retrieves up to limit MESSAGE actions created after since, newest first.
func (s *ActionStore) ListMessagesSince(ctx context.Context, dropID string, since time.Time, limit int) ([]*domain.Action, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, drop_id, wallet, kind, payload::text, created_at
		FROM actions
		WHERE drop_id = $1 AND kind = 'MESSAGE' AND created_at > $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, dropID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

// scanActions scans multiple rows into a slice of Action.
func scanActions(rows pgx.Rows) ([]*domain.Action, error) {
	var actions []*domain.Action

	for rows.Next() {
		var a domain.Action
		var kind, payload string

		if err := rows.Scan(&a.ID, &a.DropID, &a.Wallet, &kind, &payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}

		a.Kind = domain.ActionKind(kind)
		a.Payload = []byte(payload)
		actions = append(actions, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action rows: %w", err)
	}

	return actions, nil
}
