package docstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// FSStore implements Store on the local filesystem, for development and test
// environments without an object-storage endpoint. Objects are served by the
// API under /documents/.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the directory files are stored under
func (s *FSStore) Root() string { return s.root }

// Put writes the object to disk under a fresh key
func (s *FSStore) Put(ctx context.Context, prefix, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), path.Ext(filename))

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create prefix dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write object: %w", err)
	}
	return key, nil
}

// URL returns the API-relative path the object is served under
func (s *FSStore) URL(ctx context.Context, key string) (string, error) {
	return "/documents/" + key, nil
}
