package favicon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bnema/touchicons/internal/application/port"
)

const (
	// File permissions for the icon blob directory.
	blobDirPerm  = 0750
	blobFilePerm = 0600

	blobExt = ".png"
)

// BlobStore keeps icon PNGs as randomly named files in one directory.
// It does no locking; the icon cache serializes all calls on its blob worker.
type BlobStore struct {
	dir string
}

// NewBlobStore creates a blob store rooted at dir. Nothing is created on disk
// until CreateDirectory or Write.
func NewBlobStore(dir string) *BlobStore {
	return &BlobStore{dir: filepath.Clean(dir)}
}

// Dir returns the blob directory.
func (s *BlobStore) Dir() string {
	return s.dir
}

// CreateDirectory creates the blob directory and its parents.
func (s *BlobStore) CreateDirectory() error {
	if err := os.MkdirAll(s.dir, blobDirPerm); err != nil {
		return fmt.Errorf("create icon directory: %w", err)
	}
	return nil
}

// Write atomically stores data under a new random name. The name never
// derives from the icon URL.
func (s *BlobStore) Write(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("write icon blob: empty data")
	}

	// Ensure directory exists
	if err := s.CreateDirectory(); err != nil {
		return "", err
	}

	finalPath := filepath.Join(s.dir, uuid.NewString()+blobExt)
	tempPath := finalPath + ".tmp"

	if err := os.WriteFile(tempPath, data, blobFilePerm); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("write icon blob: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("rename icon blob: %w", err)
	}

	return finalPath, nil
}

// Delete removes file and returns it, or "" when nothing was removed.
func (s *BlobStore) Delete(file string) string {
	if file == "" {
		return ""
	}
	if err := os.Remove(file); err != nil {
		return ""
	}
	return file
}

// Read returns the content of file, or nil if it is missing, unreadable or
// empty.
func (s *BlobStore) Read(file string) []byte {
	if file == "" {
		return nil
	}

	data, err := os.ReadFile(file)
	if err != nil || len(data) == 0 {
		return nil
	}
	return data
}

var _ port.BlobStore = (*BlobStore)(nil)
