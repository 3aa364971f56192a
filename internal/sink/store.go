// Package sink persists crawl output as JSON-lines logs and per-block
// Markdown artifacts on the local filesystem.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxCollisions bounds the numeric suffixes tried for one artifact name.
const maxCollisions = 10000

// ErrPathTraversal is returned for relative paths that escape the store root.
var ErrPathTraversal = errors.New("path traversal detected")

// Store is a writable directory that records and artifacts live beneath.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore prepares root, creating it when missing and verifying it is a
// writable directory.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create output directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat output directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("output path %s is not a directory", root)
	}

	probe := filepath.Join(root, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	return &Store{root: filepath.Clean(root)}, nil
}

// Root returns the cleaned root directory.
func (s *Store) Root() string {
	return s.root
}

// Path resolves rel beneath the root and creates its parent directories.
func (s *Store) Path(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("path is required")
	}
	full := filepath.Clean(filepath.Join(s.root, rel))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	return full, nil
}

// RemoveAll deletes rel and everything beneath it. A missing path is not an
// error.
func (s *Store) RemoveAll(rel string) error {
	full, err := s.Path(rel)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("remove %s: %w", full, err)
	}
	return nil
}

// CreateUnique writes data to rel, or to the first free name among
// <base>_1<ext>, <base>_2<ext>, ... when rel already exists. It returns the
// path written.
func (s *Store) CreateUnique(rel string, data []byte) (string, error) {
	target, err := s.Path(rel)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)

	s.mu.Lock()
	defer s.mu.Unlock()
	for n := 0; n < maxCollisions; n++ {
		candidate := target
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		// #nosec G304 -- candidate is confined to the store root by Path.
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", candidate, err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", target, maxCollisions)
}
