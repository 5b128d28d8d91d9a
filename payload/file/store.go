// Package file provides the default directory-backed payload store.
//
// Each key is stored as "<key>.json" under the store directory. The
// extension is cosmetic; contents are the raw body bytes. Writes go to a
// temporary file in the same directory and are renamed into place, so
// readers never observe a partial body.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xraph/interceder/payload"
)

// compile-time interface check
var _ payload.Store = (*Store)(nil)

// DefaultDir is the payload directory used when none is configured.
const DefaultDir = "./payload"

// FileMode is the permission of payload files. os.CreateTemp uses 0600.
const FileMode fs.FileMode = 0o644

// Store implements payload.Store on a local directory.
type Store struct {
	dir   string
	locks *sync.Map // key -> *sync.Mutex, nil when writes are not serialized
}

// Option configures a Store.
type Option func(*Store)

// WithKeyLock toggles per-key serialization of Put. It is on by default.
// Without it concurrent puts to one key still never tear a file, but the
// surviving body is whichever rename lands last.
func WithKeyLock(enabled bool) Option {
	return func(s *Store) {
		if enabled {
			s.locks = new(sync.Map)
		} else {
			s.locks = nil
		}
	}
}

// New creates the directory if needed and returns a store rooted there.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	s := &Store{
		dir:   dir,
		locks: new(sync.Map),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("interceder/file: create payload dir: %w", err)
	}

	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if err := payload.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.locks != nil {
		mu := s.lock(key)
		mu.Lock()
		defer mu.Unlock()
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("interceder/file: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("interceder/file: write %s: %w", key, err)
	}
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("interceder/file: chmod %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("interceder/file: close %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("interceder/file: replace %s: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := payload.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &payload.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("interceder/file: read %s: %w", key, err)
	}

	return body, nil
}

// Ping checks that the store directory still exists.
func (s *Store) Ping(_ context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("interceder/file: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("interceder/file: %s is not a directory", s.dir)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) lock(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, new(sync.Mutex))
	return mu.(*sync.Mutex)
}
