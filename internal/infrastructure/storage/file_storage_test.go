package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDocumentStore(t *testing.T) {
	dir := t.TempDir()
	s := NewDocumentStore(dir, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "invoices/INV-00001.xlsx", []byte("v1")))
	require.NoError(t, s.Save(ctx, "invoices/INV-00001.xlsx", []byte("v2")))
	assert.True(t, s.Exists(ctx, "invoices/INV-00001.xlsx"))
	assert.False(t, s.Exists(ctx, "invoices"))
	assert.False(t, s.Exists(ctx, "invoices/INV-00002.xlsx"))

	content, err := s.Read(ctx, "invoices/INV-00001.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))

	entries, err := os.ReadDir(filepath.Join(dir, "invoices"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Equal(t, filepath.Join(dir, "invoices/INV-00001.xlsx"), s.GetFullPath("invoices/INV-00001.xlsx"))
}

func TestDocumentStore_RejectsEscapingPaths(t *testing.T) {
	s := NewDocumentStore(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	assert.Error(t, s.Save(ctx, "../outside.xlsx", []byte("x")))
	assert.Error(t, s.Save(ctx, ".", []byte("x")))
	_, err := s.Read(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, s.Exists(ctx, "../outside.xlsx"))
}
