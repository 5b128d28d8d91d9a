// Package topic selects the cache key for a relayed call.
//
// Topics are matched by exact string equality against candidate values:
// the extracted header values, plus the results of an optional jq query over
// the JSON body. The first configured topic that matches wins. Replay passes
// header values only, so a topic named only by the body is never replayed.
package topic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/itchyny/gojq"

	"github.com/xraph/interceder/manifest"
)

// Match is a resolved topic and its cache key.
type Match struct {
	Topic string
	Key   string
}

// Resolver matches candidate values against configured topics.
type Resolver struct {
	topics []string
	query  *gojq.Query
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithQuery sets a jq expression evaluated against JSON bodies.
// An empty expression disables body candidates.
func WithQuery(expr string) Option {
	return func(r *Resolver) error {
		if expr == "" {
			return nil
		}
		q, err := gojq.Parse(expr)
		if err != nil {
			return fmt.Errorf("topic: parse query %q: %w", expr, err)
		}
		r.query = q
		return nil
	}
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		r.logger = logger
		return nil
	}
}

// NewResolver creates a Resolver for topics in configuration order.
func NewResolver(topics []string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		topics: topics,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Resolve returns the first configured topic equal to one of candidates.
// ok is false when nothing matches; callers forward without caching.
func (r *Resolver) Resolve(candidates []string) (m Match, ok bool) {
	for _, t := range r.topics {
		for _, c := range candidates {
			if c == t {
				return Match{Topic: t, Key: manifest.Key(t)}, true
			}
		}
	}
	return Match{}, false
}

// Candidates evaluates the body query and returns its string results.
// Bodies that are not JSON, and queries that fail, yield no candidates.
func (r *Resolver) Candidates(ctx context.Context, body []byte) []string {
	if r.query == nil || len(body) == 0 {
		return nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		r.logger.DebugContext(ctx, "topic query skipped: body is not json", "error", err)
		return nil
	}

	var out []string

	it := r.query.RunWithContext(ctx, doc)
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		switch v := v.(type) {
		case error:
			r.logger.DebugContext(ctx, "topic query failed",
				"query", r.query.String(),
				"error", v,
			)
			return out
		case string:
			out = append(out, v)
		}
	}

	return out
}
