package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/garyjia/expensewise/internal/application/port"
	"go.uber.org/zap"
)

// ErrPathEscapesBase is returned for names resolving outside the base directory
var ErrPathEscapesBase = errors.New("path escapes base directory")

// LocalReportStorage implements port.ReportStorage on the local filesystem
type LocalReportStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalReportStorage creates a new LocalReportStorage rooted at baseDir
func NewLocalReportStorage(baseDir string, logger *zap.Logger) port.ReportStorage {
	return &LocalReportStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content atomically and returns the full path. An existing
// report with the same name is replaced.
func (s *LocalReportStorage) Save(ctx context.Context, name string, content []byte) (string, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create report directory",
			zap.String("path", dir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		s.logger.Error("Failed to move report into place",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Info("Report saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return fullPath, nil
}

// Read returns the content of a stored report
func (s *LocalReportStorage) Read(ctx context.Context, name string) ([]byte, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return content, nil
}

// Exists reports whether a stored report exists
func (s *LocalReportStorage) Exists(ctx context.Context, name string) bool {
	fullPath, err := s.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// Delete removes a stored report; a missing report is not an error
func (s *LocalReportStorage) Delete(ctx context.Context, name string) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete report",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// FullPath joins name onto the base directory
func (s *LocalReportStorage) FullPath(name string) string {
	return filepath.Join(s.baseDir, name)
}

func (s *LocalReportStorage) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("report name is empty")
	}

	absPath, err := filepath.Abs(s.FullPath(name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesBase, name)
	}
	return absPath, nil
}
