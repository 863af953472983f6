package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// UserStore is a PostgreSQL implementation of storage.UserStore.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new PostgreSQL user store.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Insert adds a new user. Returns ErrDuplicateKey if the wallet exists.
func (s *UserStore) Insert(ctx context.Context, u *domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, wallet, created_at) VALUES ($1, $2, $3)`,
		u.ID, u.Wallet, u.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, wallet, created_at FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByWallet retrieves a user by wallet address.
func (s *UserStore) GetByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, wallet, created_at FROM users WHERE wallet = $1`, wallet)
	u, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by wallet: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Wallet, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
