package interceder

import (
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/interceder/delivery"
	"github.com/xraph/interceder/header"
	"github.com/xraph/interceder/manifest"
	"github.com/xraph/interceder/observability"
	"github.com/xraph/interceder/payload"
	"github.com/xraph/interceder/ratelimit"
	"github.com/xraph/interceder/topic"
)

// Interceder is the webhook relay pipeline. It is safe for concurrent use.
type Interceder struct {
	config    Config
	manifest  *manifest.Manifest
	store     payload.Store
	resolver  *topic.Resolver
	rebuilder *header.Rebuilder
	sender    *delivery.Sender
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
}

// Option configures an Interceder instance.
type Option func(*Interceder) error

// New creates a new Interceder with the given options.
func New(opts ...Option) (*Interceder, error) {
	ic := &Interceder{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(ic); err != nil {
			return nil, err
		}
	}
	if ic.manifest == nil {
		return nil, ErrNoManifest
	}
	if ic.store == nil {
		return nil, ErrNoStore
	}
	if err := ic.wire(); err != nil {
		return nil, err
	}
	return ic, nil
}

// WithManifest sets the resolved relay rules.
func WithManifest(m *manifest.Manifest) Option {
	return func(ic *Interceder) error {
		ic.manifest = m
		return nil
	}
}

// WithStore sets the payload cache backend.
func WithStore(s payload.Store) Option {
	return func(ic *Interceder) error {
		ic.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Interceder instance.
func WithLogger(logger *slog.Logger) Option {
	return func(ic *Interceder) error {
		ic.logger = logger
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout for the outbound call.
func WithRequestTimeout(d time.Duration) Option {
	return func(ic *Interceder) error {
		if d <= 0 {
			return errors.New("interceder: request timeout must be positive")
		}
		ic.config.RequestTimeout = d
		return nil
	}
}

// WithForwardPolicy sets how forward failures are reported.
func WithForwardPolicy(p ForwardPolicy) Option {
	return func(ic *Interceder) error {
		if _, err := ParseForwardPolicy(string(p)); err != nil {
			return err
		}
		ic.config.ForwardPolicy = p
		return nil
	}
}

// WithMaxBodyBytes caps inbound bodies read by the HTTP surface.
func WithMaxBodyBytes(n int64) Option {
	return func(ic *Interceder) error {
		if n <= 0 {
			return errors.New("interceder: max body bytes must be positive")
		}
		ic.config.MaxBodyBytes = n
		return nil
	}
}

// WithForwardRateLimit caps outbound calls per second for each cache key.
func WithForwardRateLimit(perSecond float64) Option {
	return func(ic *Interceder) error {
		if perSecond < 0 {
			return errors.New("interceder: forward rate limit must not be negative")
		}
		ic.config.ForwardRateLimit = perSecond
		return nil
	}
}

// WithMetrics records request, cache and forward metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(ic *Interceder) error {
		ic.metrics = m
		return nil
	}
}

// WithTracer overrides the global-provider tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(ic *Interceder) error {
		ic.tracer = t
		return nil
	}
}

// WithSender replaces the outbound HTTP sender.
func WithSender(s *delivery.Sender) Option {
	return func(ic *Interceder) error {
		ic.sender = s
		return nil
	}
}

// wire builds the pipeline stages after options have been applied.
func (ic *Interceder) wire() error {
	resolver, err := topic.NewResolver(ic.manifest.Topics,
		topic.WithLogger(ic.logger),
		topic.WithQuery(ic.manifest.TopicQuery),
	)
	if err != nil {
		return err
	}
	ic.resolver = resolver

	ic.rebuilder = header.NewRebuilder(ic.manifest)
	ic.limiter = ratelimit.New(ic.config.ForwardRateLimit)

	if ic.sender == nil {
		ic.sender = delivery.NewSender(ic.config.RequestTimeout)
	}
	if ic.tracer == nil {
		ic.tracer = observability.NewTracer()
	}
	return nil
}
