package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/interceder/payload/payloadtest"
	"github.com/xraph/interceder/payload/sqlite"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	payloadtest.Run(t, openStore(t, filepath.Join(t.TempDir(), "payload.db")))
}

func TestMigrateIdempotent(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "payload.db"))
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestMigrationRecorded(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "payload.db"))
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	var n int
	err := sqlitedriver.Unwrap(s.DB()).
		QueryRow(ctx, `SELECT COUNT(*) FROM grove_migrations WHERE "group" = ?`, sqlite.Migrations.Name()).
		Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("recorded migrations = %d, want 1", n)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.db")
	ctx := context.Background()

	s, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "orders", []byte("kept")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := openStore(t, path).Get(ctx, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "kept" {
		t.Fatalf("got %q", got)
	}
}
