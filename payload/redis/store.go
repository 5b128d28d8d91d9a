// Package redis provides a Redis-backed payload store for multi-replica
// deployments that share one cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	"github.com/xraph/interceder/payload"
)

// compile-time interface check
var _ payload.Store = (*Store)(nil)

// DefaultPrefix namespaces payload keys.
const DefaultPrefix = "interceder:payload:"

// Store implements payload.Store using Redis via Grove KV.
type Store struct {
	kv     *kv.Store
	rdb    *redisdriver.RedisDB
	prefix string
	ttl    time.Duration
	owned  bool
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL expires cached payloads. Zero keeps them until overwritten.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithOwnedStore makes Close close the underlying KV store.
func WithOwnedStore() Option {
	return func(s *Store) { s.owned = true }
}

// New creates a payload store backed by an open Grove KV store.
func New(store *kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		rdb:    redisdriver.Unwrap(store),
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the Redis server at dsn (e.g. "redis://localhost:6379/0")
// and returns a store that owns the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	rdb := redisdriver.New()
	if err := rdb.Open(ctx, dsn); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("interceder/redis: open %s: %w", dsn, err)
	}

	store, err := kv.Open(rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("interceder/redis: open kv store: %w", err)
	}

	return New(store, append([]Option{WithOwnedStore()}, opts...)...), nil
}

// KV returns the underlying Grove KV store.
func (s *Store) KV() *kv.Store { return s.kv }

// Client returns the go-redis client behind the KV store.
func (s *Store) Client() goredis.UniversalClient { return s.rdb.Client() }

func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if err := payload.ValidateKey(key); err != nil {
		return err
	}
	if body == nil {
		body = []byte{}
	}

	var opts []kv.SetOption
	if s.ttl > 0 {
		opts = append(opts, kv.WithTTL(s.ttl))
	}
	if err := s.kv.SetRaw(ctx, s.prefix+key, body, opts...); err != nil {
		return fmt.Errorf("interceder/redis: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := payload.ValidateKey(key); err != nil {
		return nil, err
	}
	body, err := s.kv.GetRaw(ctx, s.prefix+key)
	if isNotFound(err) {
		return nil, &payload.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("interceder/redis: get %s: %w", key, err)
	}
	return body, nil
}

// TTL reports the remaining lifetime of key. It is negative when the key
// does not expire.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := payload.ValidateKey(key); err != nil {
		return 0, err
	}
	ttl, err := s.rdb.TTL(ctx, s.prefix+key)
	if isNotFound(err) {
		return 0, &payload.NotFoundError{Key: key}
	}
	if err != nil {
		return 0, fmt.Errorf("interceder/redis: ttl %s: %w", key, err)
	}
	return ttl, nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Close closes the KV store when the store owns it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.kv.Close()
}

// isNotFound checks if an error is a KV not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}
