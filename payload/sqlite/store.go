// Package sqlite provides a SQLite-backed payload store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	groveDriver "github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // register the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/interceder/payload"
)

// compile-time interface check
var _ payload.Store = (*Store)(nil)

type payloadModel struct {
	grove.BaseModel `grove:"table:interceder_payloads"`

	TopicKey  string `grove:"topic_key,pk"`
	Body      []byte `grove:"body"`
	UpdatedAt int64  `grove:"updated_at"`
}

// Store implements payload.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// Open opens (or creates) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	sdb := sqlitedriver.New()
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	if err := sdb.Open(ctx, path, groveDriver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("interceder/sqlite: open %s: %w", path, err)
	}

	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("interceder/sqlite: open %s: %w", path, err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New creates a payload store backed by Grove ORM. Call Migrate before use.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the payload table using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("interceder/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("interceder/sqlite: migration failed: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if err := payload.ValidateKey(key); err != nil {
		return err
	}
	if body == nil {
		body = []byte{}
	}

	m := &payloadModel{TopicKey: key, Body: body, UpdatedAt: time.Now().UnixMilli()}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(topic_key) DO UPDATE").
		Set("body = EXCLUDED.body").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("interceder/sqlite: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := payload.ValidateKey(key); err != nil {
		return nil, err
	}

	m := new(payloadModel)
	err := s.sdb.NewSelect(m).
		Where("topic_key = ?", key).
		Scan(ctx)
	if isNoRows(err) {
		return nil, &payload.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("interceder/sqlite: get %s: %w", key, err)
	}
	return m.Body, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
