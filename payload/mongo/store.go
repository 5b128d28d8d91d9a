// Package mongo provides a MongoDB-backed payload store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/interceder/payload"
)

// compile-time interface check
var _ payload.Store = (*Store)(nil)

// Collection is the collection payloads are stored in.
const Collection = "interceder_payloads"

type payloadModel struct {
	grove.BaseModel `grove:"table:interceder_payloads"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	Body      []byte    `grove:"body"       bson:"body"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

// Store implements payload.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// Open connects to uri and returns a store on database. A database named in
// the URI path is used when database is empty.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	mdb := mongodriver.New()

	var opts []mongodriver.MongoOption
	if database != "" {
		opts = append(opts, mongodriver.WithDatabase(database))
	}
	if err := mdb.Open(ctx, uri, opts...); err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("interceder/mongo: open: %w", err)
	}

	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("interceder/mongo: open: %w", err)
	}
	return New(db), nil
}

// New creates a payload store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if err := payload.ValidateKey(key); err != nil {
		return err
	}
	if body == nil {
		body = []byte{}
	}

	_, err := s.mdb.NewUpdate((*payloadModel)(nil)).
		Collection(Collection).
		Filter(bson.M{"_id": key}).
		Set("body", body).
		Set("updated_at", time.Now().UTC()).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("interceder/mongo: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := payload.ValidateKey(key); err != nil {
		return nil, err
	}

	var m payloadModel
	err := s.mdb.NewFind(&m).
		Collection(Collection).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if isNoDocuments(err) {
		return nil, &payload.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("interceder/mongo: get %s: %w", key, err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
