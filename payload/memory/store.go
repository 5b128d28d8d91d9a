// Package memory provides an in-memory payload store for unit testing.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/interceder/payload"
)

// compile-time interface check.
var _ payload.Store = (*Store)(nil)

// Store is an in-memory implementation of payload.Store.
type Store struct {
	mu     sync.RWMutex
	bodies map[string][]byte
	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		bodies: make(map[string][]byte),
	}
}

func (s *Store) Put(_ context.Context, key string, body []byte) error {
	if err := payload.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payload.ErrClosed
	}
	s.bodies[key] = append([]byte{}, body...)
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if err := payload.ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, payload.ErrClosed
	}
	body, ok := s.bodies[key]
	if !ok {
		return nil, &payload.NotFoundError{Key: key}
	}
	return append([]byte{}, body...), nil
}

// Len returns the number of cached keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bodies)
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return payload.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
