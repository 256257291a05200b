package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps blobs under a local root directory. It is the default
// backend for single-node deployments; the served URL prefix usually points
// at a static-file route in front of the same directory.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates a disk-backed store rooted at root. baseURL is the
// public prefix joined with blob keys when rendering URLs.
func NewDiskStore(root, baseURL string) *DiskStore {
	return &DiskStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *DiskStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *DiskStore) Save(_ context.Context, key string, content []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create media directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return fmt.Errorf("write media blob %s: %w", key, err)
	}
	return nil
}

func (s *DiskStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete media blob %s: %w", key, err)
	}
	return nil
}

func (s *DiskStore) URL(key string) string {
	return s.baseURL + "/" + key
}
