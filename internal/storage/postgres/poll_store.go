package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// PollStore is a PostgreSQL implementation of storage.PollStore.
// The partial unique index uq_polls_one_active keeps one active poll per drop.
type PollStore struct {
	pool *Pool
}

// NewPollStore creates a new PostgreSQL poll store.
func NewPollStore(pool *Pool) *PollStore {
	return &PollStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PollStore = (*PollStore)(nil)

const pollColumns = `id, drop_id, question, options, active, created_at, closed_at`

// CreateActive closes the current active poll and inserts p in one transaction.
func (s *PollStore) CreateActive(ctx context.Context, p *domain.Poll) (*domain.Poll, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE polls SET active = FALSE, closed_at = $2
		WHERE drop_id = $1 AND active
		RETURNING `+pollColumns,
		p.DropID, p.CreatedAt,
	)
	closed, err := scanPoll(row)
	if err != nil {
		if !isNotFoundError(err) {
			return nil, fmt.Errorf("close active poll: %w", err)
		}
		closed = nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO polls (`+pollColumns+`)
		VALUES ($1, $2, $3, $4, TRUE, $5, NULL)`,
		p.ID, p.DropID, p.Question, p.Options, p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert poll: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return closed, nil
}

// Close deactivates an active poll.
func (s *PollStore) Close(ctx context.Context, dropID, pollID string, at time.Time) (*domain.Poll, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE polls SET active = FALSE, closed_at = $3
		WHERE drop_id = $1 AND id = $2 AND active
		RETURNING `+pollColumns,
		dropID, pollID, at,
	)
	p, err := scanPoll(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("close poll: %w", err)
	}
	return p, nil
}

// GetByID retrieves a poll by ID.
func (s *PollStore) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id)
	p, err := scanPoll(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get poll by id: %w", err)
	}
	return p, nil
}

// GetActive retrieves the active poll of a drop.
func (s *PollStore) GetActive(ctx context.Context, dropID string) (*domain.Poll, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE drop_id = $1 AND active`, dropID)
	p, err := scanPoll(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active poll: %w", err)
	}
	return p, nil
}

func scanPoll(row pgx.Row) (*domain.Poll, error) {
	var p domain.Poll
	err := row.Scan(&p.ID, &p.DropID, &p.Question, &p.Options, &p.Active, &p.CreatedAt, &p.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
