package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestFiles_OrderedAndEmbedded(t *testing.T) {
	files, err := Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected at least one migration")
	}
	if files[0] != "001_init.sql" {
		t.Errorf("expected 001_init.sql first, got %s", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("migrations not sorted: %s >= %s", files[i-1], files[i])
		}
	}
}

func TestInitMigration_DeclaresVoteBackstop(t *testing.T) {
	data, err := fs.ReadFile(PostgresFS, "postgres/001_init.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sql := string(data)
	for _, want := range []string{"uq_actions_one_vote", "uq_polls_one_active", "CREATE TABLE IF NOT EXISTS sessions"} {
		if !strings.Contains(sql, want) {
			t.Errorf("001_init.sql missing %q", want)
		}
	}
}
