package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/interceder"

// Tracer provides OpenTelemetry tracing for the relay pipeline.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer on the global provider.
func NewTracer() *Tracer {
	return NewTracerFromProvider(otel.GetTracerProvider())
}

// NewTracerFromProvider creates a tracer on tp.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(tracerName),
	}
}

// StartRelaySpan starts the span covering one intercept or replay call.
func (t *Tracer) StartRelaySpan(ctx context.Context, route, requestID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "interceder.relay",
		trace.WithAttributes(
			attribute.String("interceder.route", route),
			attribute.String("interceder.request_id", requestID),
		),
	)
}

// EndRelaySpan ends a relay span. An empty topic means no topic matched.
func (t *Tracer) EndRelaySpan(span trace.Span, topic, cacheKey, state string, err error) {
	if topic != "" {
		span.SetAttributes(
			attribute.String("interceder.topic", topic),
			attribute.String("interceder.cache_key", cacheKey),
		)
	}
	span.SetAttributes(attribute.String("interceder.state", state))
	endWithError(span, err)
}

// StartForwardSpan starts a client span for the outbound call.
func (t *Tracer) StartForwardSpan(ctx context.Context, url string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "interceder.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", url)),
	)
}

// EndForwardSpan ends a forward span with result attributes.
func (t *Tracer) EndForwardSpan(span trace.Span, statusCode, latencyMs int, err error) {
	span.SetAttributes(
		attribute.Int("http.response.status_code", statusCode),
		attribute.Int("interceder.latency_ms", latencyMs),
	)
	endWithError(span, err)
}

func endWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
