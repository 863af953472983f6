package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"drop-live/internal/storage/postgres"
)

// Files returns the embedded migration file names in apply order.
func Files() ([]string, error) {
	entries, err := fs.ReadDir(PostgresFS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunPostgresMigrations applies all embedded SQL files in lexical order and
// returns how many were executed. Migrations must be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger zerolog.Logger) (int, error) {
	files, err := Files()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", file, err)
		}
		applied++
		logger.Info().Str("file", file).Msg("migration applied")
	}

	return applied, nil
}
