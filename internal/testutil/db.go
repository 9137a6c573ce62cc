// Package testutil provides a migrated SQLite database for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/infrastructure/persistence/migrations"
	"github.com/scanops/oms/pkg/database"
)

// SetupTestDB opens a fresh database file under the test's temp dir and applies all migrations
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:         filepath.Join(t.TempDir(), "oms_test.db"),
		MaxOpenConns: 4,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Up(db, zap.NewNop()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
