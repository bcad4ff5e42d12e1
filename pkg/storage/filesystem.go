package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage persists certification attachments on disk under a base
// directory, one subdirectory per employee.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream writes the reader content under the employee's directory using a
// random filename that keeps the original extension. It returns the path
// relative to the base directory; only this reference is persisted.
func (s *LocalStorage) SaveStream(employeeID, originalName string, r io.Reader) (string, error) {
	if employeeID == "" {
		return "", fmt.Errorf("employee id required")
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	relPath := filepath.Join(employeeID, uuid.NewString()+ext)
	absPath := s.resolve(relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("prepare attachment directory: %w", err)
	}

	f, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("write attachment file: %w", err)
	}
	return relPath, nil
}

// Open returns the file for a previously stored relative path.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	f, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

// Delete removes a stored attachment. Missing files are not an error.
func (s *LocalStorage) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(relPath string) string {
	cleaned := filepath.Clean("/" + relPath)
	return filepath.Join(s.baseDir, cleaned)
}
