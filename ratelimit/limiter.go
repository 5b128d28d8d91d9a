// Package ratelimit throttles outbound calls per topic key.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// ErrLimited is returned by Wait when ctx ends before a token is available.
var ErrLimited = errors.New("ratelimit: rate limit wait aborted")

// Limiter implements token bucket rate limiting per key.
// The zero rate means unlimited.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// New creates a limiter allowing perSecond calls per key. The burst equals
// the rate, rounded up, so a bucket starts full.
func New(perSecond float64) *Limiter {
	l := &Limiter{buckets: make(map[string]*rate.Limiter)}
	if perSecond > 0 {
		l.limit = rate.Limit(perSecond)
		l.burst = int(math.Ceil(perSecond))
	}
	return l
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l == nil || l.limit == 0
}

// Wait blocks until key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l.Unlimited() {
		return nil
	}
	if err := l.bucket(key).Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrLimited, err)
	}
	return nil
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}
