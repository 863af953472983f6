package postgres

import (
	"context"
	"fmt"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// ClaimStore is a PostgreSQL implementation of storage.ClaimStore.
type ClaimStore struct {
	pool *Pool
}

// NewClaimStore creates a new PostgreSQL claim store.
func NewClaimStore(pool *Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

// Insert adds a claim record.
func (s *ClaimStore) Insert(ctx context.Context, c *domain.Claim) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claims (id, drop_id, wallet, signatures, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.DropID, c.Wallet, c.Signatures, c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// ListByDrop retrieves all claims of a drop, newest first.
func (s *ClaimStore) ListByDrop(ctx context.Context, dropID string) ([]*domain.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, drop_id, wallet, signatures, created_at
		FROM claims
		WHERE drop_id = $1
		ORDER BY created_at DESC, id DESC`,
		dropID,
	)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.ID, &c.DropID, &c.Wallet, &c.Signatures, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}
		claims = append(claims, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}
	return claims, nil
}
