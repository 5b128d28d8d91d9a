// Package api provides the HTTP surface of the relay.
//
// Routes:
//
//	POST /intercede   relay an inbound webhook (POST /redirect is an alias)
//	GET  /replay      re-send the cached payload for the request's topic
//	GET  /healthz     payload store health
//	GET  /metrics     Prometheus metrics, when configured
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/xraph/interceder"
	"github.com/xraph/interceder/id"
)

// RequestIDHeader carries the relay request ID on every response.
const RequestIDHeader = "X-Request-ID"

// Handler is the root HTTP handler for the relay.
type Handler struct {
	ic     *interceder.Interceder
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates a new relay HTTP handler.
func NewHandler(ic *interceder.Interceder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		ic:     ic,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Relay
	h.mux.HandleFunc("POST /intercede", h.intercept)
	h.mux.HandleFunc("POST /redirect", h.intercept)
	h.mux.HandleFunc("GET /replay", h.replay)

	// Operations
	h.mux.HandleFunc("GET /healthz", h.healthz)
	if m := h.ic.Metrics(); m != nil {
		h.mux.Handle("GET /metrics", m.Handler())
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(cors(next)))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rid := id.NewRequestID()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = id.WithContext(ctx, rid)
		w.Header().Set(RequestIDHeader, rid.String())

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))
		h.logger.InfoContext(ctx, "api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", rid,
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
