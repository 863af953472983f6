package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

// DropStore is a PostgreSQL implementation of storage.DropStore.
type DropStore struct {
	pool *Pool
}

// NewDropStore creates a new PostgreSQL drop store.
func NewDropStore(pool *Pool) *DropStore {
	return &DropStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DropStore = (*DropStore)(nil)

const dropColumns = `
	id, owner_id, slug, name, symbol, description, image_url, website, twitter, telegram,
	status, asset_id, metadata_url, config_key, launch_signature,
	creator_bps, prize_pool_bps, threshold_raw, initial_buy_lamports,
	created_at, updated_at, launched_at
`

// Insert adds a new drop. Returns ErrDuplicateKey if id or slug exists.
func (s *DropStore) Insert(ctx context.Context, d *domain.Drop) error {
	query := `INSERT INTO drops (` + dropColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	_, err := s.pool.Exec(ctx, query,
		d.ID,
		d.OwnerID,
		d.Slug,
		d.Name,
		d.Symbol,
		d.Description,
		d.ImageURL,
		d.Website,
		d.Twitter,
		d.Telegram,
		string(d.Status),
		d.AssetID,
		d.MetadataURL,
		d.ConfigKey,
		d.LaunchSignature,
		d.CreatorBps,
		d.PrizePoolBps,
		d.ThresholdRaw,
		d.InitialBuyLamports,
		d.CreatedAt,
		d.UpdatedAt,
		d.LaunchedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert drop: %w", err)
	}
	return nil
}

// GetByID retrieves a drop by ID.
func (s *DropStore) GetByID(ctx context.Context, id string) (*domain.Drop, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+dropColumns+` FROM drops WHERE id = $1`, id)
	d, err := scanDrop(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get drop by id: %w", err)
	}
	return d, nil
}

// GetBySlug retrieves a drop by slug.
func (s *DropStore) GetBySlug(ctx context.Context, slug string) (*domain.Drop, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+dropColumns+` FROM drops WHERE slug = $1`, slug)
	d, err := scanDrop(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get drop by slug: %w", err)
	}
	return d, nil
}

// ListByOwner retrieves all drops of an owner, newest first.
func (s *DropStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Drop, error) {
	query := `SELECT ` + dropColumns + ` FROM drops WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list drops by owner: %w", err)
	}
	defer rows.Close()

	var drops []*domain.Drop
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan drop row: %w", err)
		}
		drops = append(drops, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drop rows: %w", err)
	}
	return drops, nil
}

// UpdateIf replaces the mutable fields only if the stored status equals expected.
func (s *DropStore) UpdateIf(ctx context.Context, d *domain.Drop, expected domain.DropStatus) (err error) {
	defer func(start time.Time) { observe("drop_update_if", start, err) }(time.Now())

	query := `
		UPDATE drops SET
			name = $3, symbol = $4, description = $5, image_url = $6, website = $7,
			twitter = $8, telegram = $9, status = $10, asset_id = $11, metadata_url = $12,
			config_key = $13, launch_signature = $14, creator_bps = $15, prize_pool_bps = $16,
			threshold_raw = $17, initial_buy_lamports = $18, updated_at = $19, launched_at = $20
		WHERE id = $1 AND status = $2
	`
	tag, err := s.pool.Exec(ctx, query,
		d.ID,
		string(expected),
		d.Name,
		d.Symbol,
		d.Description,
		d.ImageURL,
		d.Website,
		d.Twitter,
		d.Telegram,
		string(d.Status),
		d.AssetID,
		d.MetadataURL,
		d.ConfigKey,
		d.LaunchSignature,
		d.CreatorBps,
		d.PrizePoolBps,
		d.ThresholdRaw,
		d.InitialBuyLamports,
		d.UpdatedAt,
		d.LaunchedAt,
	)
	if err != nil {
		return fmt.Errorf("update drop: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a missing drop from a lost compare-and-set.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM drops WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check drop exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// SetThreshold updates the holding threshold regardless of status.
func (s *DropStore) SetThreshold(ctx context.Context, id, thresholdRaw string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE drops SET threshold_raw = $2, updated_at = $3 WHERE id = $1`,
		id, thresholdRaw, at,
	)
	if err != nil {
		return fmt.Errorf("set drop threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanDrop scans a single row into a Drop.
func scanDrop(row pgx.Row) (*domain.Drop, error) {
	var d domain.Drop
	var status string

	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Slug,
		&d.Name,
		&d.Symbol,
		&d.Description,
		&d.ImageURL,
		&d.Website,
		&d.Twitter,
		&d.Telegram,
		&status,
		&d.AssetID,
		&d.MetadataURL,
		&d.ConfigKey,
		&d.LaunchSignature,
		&d.CreatorBps,
		&d.PrizePoolBps,
		&d.ThresholdRaw,
		&d.InitialBuyLamports,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.LaunchedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = domain.DropStatus(status)
	return &d, nil
}
