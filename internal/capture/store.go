package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists raw tool captures as <dir>/<name>_<stamp>.log for debugging.
type Store struct {
	dir   string
	stamp string
	keep  bool

	mu    sync.Mutex
	paths []string
}

// NewStore returns a store writing into dir. With keep set, Cleanup leaves
// the files in place.
func NewStore(dir, stamp string, keep bool) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir, stamp: stamp, keep: keep}
}

// Save writes data for the named capture and returns the file path.
func (s *Store) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure capture directory %q: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.log", name, s.stamp))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write capture %q: %w", path, err)
	}
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	return path, nil
}

// Paths lists every file written so far.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Cleanup removes the written files unless the store keeps them.
func (s *Store) Cleanup() error {
	if s.keep {
		return nil
	}
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()
	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
