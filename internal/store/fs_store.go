package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
)

// FSStore keeps one file per key on a hackpadfs filesystem: IndexedDB in
// the browser, the OS filesystem in the CLI, memory in tests.
type FSStore struct {
	FS  hackpadfs.FS
	Dir string
	mu  sync.RWMutex
}

// NewFSStore creates a store rooted at dir ("." or "" for the FS root).
func NewFSStore(fsys hackpadfs.FS, dir string) (*FSStore, error) {
	dir = path.Clean(strings.Trim(dir, "/"))
	if dir == "" {
		dir = "."
	}
	if dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store dir: %w", err)
		}
	}
	return &FSStore{FS: fsys, Dir: dir}, nil
}

func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return path.Join(s.Dir, key+".json"), nil
}

// Get reads the file for key.
func (s *FSStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	content, err := hackpadfs.ReadFile(s.FS, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return content, nil
}

// Put replaces the file for key.
func (s *FSStore) Put(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := hackpadfs.WriteFullFile(s.FS, p, value, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Delete removes the file for key. Missing keys are not an error.
func (s *FSStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := hackpadfs.Remove(s.FS, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

// Close is a no-op; the filesystem is owned by the caller.
func (s *FSStore) Close() error {
	return nil
}

var _ Storer = (*FSStore)(nil)
