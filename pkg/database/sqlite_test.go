package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen_CreatesDirectoryAndEnablesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oms.db")

	db, err := Open(Config{Path: path, MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}
