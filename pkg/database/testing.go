package database

import (
	"context"
	"testing"
)

// NewTestDB returns a migrated in-memory SQLite database closed at test cleanup
func NewTestDB(t testing.TB) DB {
	t.Helper()

	db, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}
