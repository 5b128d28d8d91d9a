// Package payloadtest provides a shared behavioral test suite for payload stores.
package payloadtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/xraph/interceder/payload"
)

// Run runs the behavioral contract every Store must satisfy.
// Backend test files call it with a fresh store.
func Run(t *testing.T, s payload.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, payload.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		body := []byte("{\"a\":1}\n\x00\xff")
		if err := s.Put(ctx, "orders", body); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "orders")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, body) {
			t.Fatalf("got %q, want %q", got, body)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		if err := s.Put(ctx, "customers", []byte("first")); err != nil {
			t.Fatal(err)
		}
		if err := s.Put(ctx, "customers", []byte("second")); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "customers")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "second" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		if err := s.Put(ctx, "empty", nil); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "empty")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		if err := s.Put(ctx, "../escape", []byte("x")); !errors.Is(err, payload.ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("concurrent puts", func(t *testing.T) {
		var wg sync.WaitGroup
		bodies := make(map[string]bool)
		for i := range 16 {
			body := fmt.Sprintf(`{"writer":%d,"pad":"%0128d"}`, i, i)
			bodies[body] = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Put(ctx, "race", []byte(body)); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "race")
		if err != nil {
			t.Fatal(err)
		}
		if !bodies[string(got)] {
			t.Fatalf("torn or unknown body: %q", got)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatal(err)
		}
	})
}
