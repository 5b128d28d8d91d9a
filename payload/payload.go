// Package payload defines the topic-keyed payload cache used for replay.
//
// A Store keeps at most one body per key: Put overwrites, Get returns the
// most recent body. Backends live in subpackages.
package payload

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is wrapped by *NotFoundError.
	ErrNotFound = errors.New("payload: not found")

	// ErrInvalidKey is returned for keys that cannot name a cache entry.
	ErrInvalidKey = errors.New("payload: invalid key")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("payload: store is closed")
)

// NotFoundError reports that nothing was ever cached for Key.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("payload: nothing cached for %q", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Store is the persistence contract for cached payloads.
type Store interface {
	// Put replaces the body cached under key.
	Put(ctx context.Context, key string, body []byte) error

	// Get returns the body cached under key, or a *NotFoundError.
	Get(ctx context.Context, key string) ([]byte, error)

	// Ping checks backend availability.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// ValidateKey rejects keys that are empty or could escape a namespace.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
