package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
)

// DocumentStore keeps generated documents (invoice workbooks) under a base directory
type DocumentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewDocumentStore creates a store rooted at baseDir
func NewDocumentStore(baseDir string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{baseDir: baseDir, logger: logger}
}

var _ port.FileStorage = (*DocumentStore)(nil)

// Save writes content through a temp file so readers never see a partial document
func (s *DocumentStore) Save(ctx context.Context, path string, content []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		s.logger.Error("Failed to store document", zap.String("path", full), zap.Error(err))
		return fmt.Errorf("failed to store %s: %w", path, err)
	}

	s.logger.Debug("Document stored", zap.String("path", full), zap.Int("size", len(content)))
	return nil
}

// Read returns the stored document
func (s *DocumentStore) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return content, nil
}

// Exists reports whether a document is stored at path
func (s *DocumentStore) Exists(ctx context.Context, path string) bool {
	full, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// GetFullPath joins path onto the base directory
func (s *DocumentStore) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

// resolve rejects paths that leave the base directory
func (s *DocumentStore) resolve(path string) (string, error) {
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	full, err := filepath.Abs(s.GetFullPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if full == base || !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", path)
	}
	return full, nil
}
