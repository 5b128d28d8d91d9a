package interceder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/xraph/interceder/delivery"
	"github.com/xraph/interceder/header"
	"github.com/xraph/interceder/id"
	"github.com/xraph/interceder/manifest"
	"github.com/xraph/interceder/observability"

	"go.opentelemetry.io/otel/trace"
)

// Route names used in logs, spans and metrics.
const (
	RouteIntercept = "intercede"
	RouteReplay    = "replay"
)

// State is the terminal state of one relay call.
type State string

const (
	// StateForwarded means the outbound call was dispatched and answered,
	// whatever the status code.
	StateForwarded State = "forwarded"

	// StateFailed means extraction, alignment, cache or transport failed.
	StateFailed State = "failed"
)

// SignatureMode describes how the outbound signature header was produced.
type SignatureMode string

const (
	SignatureNone        SignatureMode = "none"
	SignaturePassthrough SignatureMode = "passthrough"
	SignatureRecomputed  SignatureMode = "recomputed"
)

// Outcome describes one intercept or replay call.
type Outcome struct {
	RequestID id.ID
	Route     string
	Topic     string // empty when no configured topic matched
	CacheKey  string
	Cached    bool
	Signature SignatureMode
	State     State
	Result    delivery.Result

	// ForwardErr is the swallowed transport failure under ForwardBestEffort.
	ForwardErr error
}

// Intercept relays an inbound webhook call. When a configured topic matches,
// body replaces the cached payload for its key before the call is forwarded.
// Unknown topics are forwarded without caching.
func (ic *Interceder) Intercept(ctx context.Context, h http.Header, body []byte) (*Outcome, error) {
	out := ic.newOutcome(ctx, RouteIntercept)
	ctx, span := ic.tracer.StartRelaySpan(ctx, out.Route, out.RequestID.String())

	err := ic.intercept(ctx, out, h, body)
	return ic.finish(ctx, span, out, err)
}

func (ic *Interceder) intercept(ctx context.Context, out *Outcome, h http.Header, body []byte) error {
	values, err := header.Extract(h, ic.manifest)
	if err != nil {
		return err
	}

	candidates := append(append([]string{}, values...), ic.resolver.Candidates(ctx, body)...)
	if match, ok := ic.resolver.Resolve(candidates); ok {
		out.Topic, out.CacheKey = match.Topic, match.Key

		if err := ic.store.Put(ctx, match.Key, body); err != nil {
			return fmt.Errorf("interceder: cache %s: %w", match.Key, err)
		}
		out.Cached = true
		if ic.metrics != nil {
			ic.metrics.RecordCacheWrite()
		}
		if !slices.Contains(values, match.Topic) {
			ic.logger.DebugContext(ctx, "topic matched from body only, replay selects topics by header and cannot reach this entry",
				"request_id", out.RequestID,
				"topic", match.Topic,
				"cache_key", match.Key,
			)
		}
	} else {
		ic.logger.DebugContext(ctx, "no topic matched, forwarding without caching",
			"request_id", out.RequestID,
		)
	}

	return ic.forward(ctx, out, values, body)
}

// Replay re-sends the payload cached for the topic named by h. Nothing is
// sent when the topic is unknown or has no cached payload.
func (ic *Interceder) Replay(ctx context.Context, h http.Header) (*Outcome, error) {
	out := ic.newOutcome(ctx, RouteReplay)
	ctx, span := ic.tracer.StartRelaySpan(ctx, out.Route, out.RequestID.String())

	err := ic.replay(ctx, out, h)
	return ic.finish(ctx, span, out, err)
}

func (ic *Interceder) replay(ctx context.Context, out *Outcome, h http.Header) error {
	values, err := header.Extract(h, ic.manifest)
	if err != nil {
		return err
	}

	match, ok := ic.resolver.Resolve(values)
	if !ok {
		return ErrUnknownTopic
	}
	out.Topic, out.CacheKey = match.Topic, match.Key

	body, err := ic.store.Get(ctx, match.Key)
	if err != nil {
		return err
	}

	return ic.forward(ctx, out, values, body)
}

// forward rebuilds the outbound headers and dispatches the call.
func (ic *Interceder) forward(ctx context.Context, out *Outcome, values []string, body []byte) error {
	headers, err := ic.rebuilder.Rebuild(values, body)
	if err != nil {
		return err
	}
	out.Signature = ic.signatureMode()

	if err := ic.limiter.Wait(ctx, out.CacheKey); err != nil {
		return err
	}

	ctx, span := ic.tracer.StartForwardSpan(ctx, ic.manifest.DisplayURL)

	start := time.Now()
	result, err := ic.sender.Forward(ctx, ic.manifest.TargetURL, headers, body)
	if ic.metrics != nil {
		ic.metrics.RecordForward(time.Since(start))
	}
	ic.tracer.EndForwardSpan(span, result.StatusCode, result.LatencyMs, err)
	out.Result = result

	if err != nil {
		if ic.config.ForwardPolicy == ForwardBestEffort {
			ic.logger.WarnContext(ctx, "forward failed, continuing under best-effort policy",
				"request_id", out.RequestID,
				"url", ic.manifest.DisplayURL,
				"error", err,
			)
			out.ForwardErr = err
			return nil
		}
		return err
	}

	return nil
}

func (ic *Interceder) signatureMode() SignatureMode {
	switch {
	case !ic.manifest.Hash.Required:
		return SignatureNone
	case ic.manifest.Rehash.Required:
		return SignatureRecomputed
	default:
		return SignaturePassthrough
	}
}

func (ic *Interceder) newOutcome(ctx context.Context, route string) *Outcome {
	rid, ok := id.FromContext(ctx)
	if !ok {
		rid = id.NewRequestID()
	}
	return &Outcome{RequestID: rid, Route: route, Signature: SignatureNone}
}

// finish logs, records and closes the relay span for out.
func (ic *Interceder) finish(ctx context.Context, span trace.Span, out *Outcome, err error) (*Outcome, error) {
	if err != nil {
		out.State = StateFailed
	} else {
		out.State = StateForwarded
	}
	ic.tracer.EndRelaySpan(span, out.Topic, out.CacheKey, string(out.State), err)

	outcome := observability.OutcomeForwarded
	attrs := []any{
		"request_id", out.RequestID,
		"route", out.Route,
	}
	if out.Topic != "" {
		attrs = append(attrs, "topic", out.Topic, "cache_key", out.CacheKey)
	}

	var (
		missing   *MissingHeaderError
		alignment *HeaderAlignmentError
	)
	switch {
	case err == nil:
		attrs = append(attrs,
			"status", out.Result.StatusCode,
			"latency_ms", out.Result.LatencyMs,
			"cached", out.Cached,
			"signature", out.Signature,
		)
		ic.logger.InfoContext(ctx, "webhook forwarded", attrs...)
	case errors.As(err, &missing):
		outcome = observability.OutcomeMissingHeader
		ic.logger.WarnContext(ctx, "required header missing", append(attrs, "header", missing.Name)...)
	case errors.As(err, &alignment):
		outcome = observability.OutcomeAlignment
		ic.logger.ErrorContext(ctx, "header rules do not align with extracted values; check the manifest",
			append(attrs, "extracted", alignment.Extracted, "expected", alignment.Expected)...)
	case errors.Is(err, ErrPayloadNotFound), errors.Is(err, ErrUnknownTopic):
		outcome = observability.OutcomeNotFound
		ic.logger.WarnContext(ctx, "nothing to replay", append(attrs, "error", err)...)
	case errors.Is(err, ErrRateLimited):
		outcome = observability.OutcomeRateLimited
		ic.logger.WarnContext(ctx, "forward rate limit wait aborted", append(attrs, "error", err)...)
	case errors.Is(err, ErrForward):
		outcome = observability.OutcomeForwardError
		ic.logger.ErrorContext(ctx, "forward failed", append(attrs, "error", err)...)
	default:
		outcome = observability.OutcomeError
		ic.logger.ErrorContext(ctx, "relay failed", append(attrs, "error", err)...)
	}

	if ic.metrics != nil {
		ic.metrics.RecordRequest(out.Route, outcome)
	}

	return out, err
}

// Ping checks that the payload store is reachable.
func (ic *Interceder) Ping(ctx context.Context) error {
	return ic.store.Ping(ctx)
}

// Config returns the runtime configuration.
func (ic *Interceder) Config() Config {
	return ic.config
}

// Manifest returns the resolved relay rules.
func (ic *Interceder) Manifest() *manifest.Manifest {
	return ic.manifest
}

// Metrics returns the metrics instruments, or nil when none were configured.
func (ic *Interceder) Metrics() *observability.Metrics {
	return ic.metrics
}
