// Package storage keeps uploaded receipt files on the local filesystem
// for the standalone bill store.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ReceiptStorage writes and reads receipt files under a base directory,
// rejecting any path that escapes it.
type ReceiptStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewReceiptStorage creates a receipt storage rooted at baseDir.
func NewReceiptStorage(baseDir string, logger *zap.Logger) *ReceiptStorage {
	return &ReceiptStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content under the given relative path and returns the
// full path on disk.
func (s *ReceiptStorage) Save(relPath string, content []byte) (string, error) {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write receipt file",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}

	s.logger.Debug("Receipt file saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return fullPath, nil
}

// Read returns the content of the receipt stored under relPath.
func (s *ReceiptStorage) Read(relPath string) ([]byte, error) {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt file: %w", err)
	}
	return content, nil
}

// BaseDir returns the storage root.
func (s *ReceiptStorage) BaseDir() string {
	return s.baseDir
}

// resolve joins relPath onto the base directory and rejects traversal
// outside of it.
func (s *ReceiptStorage) resolve(relPath string) (string, error) {
	fullPath := filepath.Join(s.baseDir, relPath)

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve receipt path: %w", err)
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("receipt path %q escapes storage root", relPath)
	}
	return fullPath, nil
}
