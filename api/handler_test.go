package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/interceder"
	"github.com/xraph/interceder/api"
	"github.com/xraph/interceder/id"
	"github.com/xraph/interceder/internal/relaytest"
	"github.com/xraph/interceder/observability"
	"github.com/xraph/interceder/payload/memory"
)

// testServer creates a Handler backed by a memory store and returns the test server.
func testServer(t *testing.T, targetURL string, opts ...interceder.Option) (*httptest.Server, *memory.Store) {
	t.Helper()

	s := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []interceder.Option{
		interceder.WithManifest(relaytest.Manifest(targetURL)),
		interceder.WithStore(s),
		interceder.WithLogger(logger),
	}
	ic, err := interceder.New(append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(api.NewHandler(ic, logger))
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, url string, h http.Header, body []byte) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, vs := range h {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func relayHeaders() http.Header {
	return relaytest.Headers("X-Key", "abc123", "X-Topic", "orders/updated")
}

// --- Relay ---

func TestIntercept(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusAccepted)
	srv, s := testServer(t, target.URL)

	resp := do(t, http.MethodPost, srv.URL+"/intercede", relayHeaders(), []byte(`{"a":1}`))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if len(b) != 0 {
		t.Fatalf("expected empty body, got %q", b)
	}
	if _, err := id.ParseRequestID(resp.Header.Get(api.RequestIDHeader)); err != nil {
		t.Fatalf("bad %s: %v", api.RequestIDHeader, err)
	}
	if got, _ := s.Get(context.Background(), "orders"); string(got) != `{"a":1}` {
		t.Fatalf("cached %q", got)
	}
	if got := target.Last(t).Header.Get("X-Org"); got != "org-42" {
		t.Fatalf("X-Org = %q", got)
	}
}

func TestRedirectAlias(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	resp := do(t, http.MethodPost, srv.URL+"/redirect", relayHeaders(), []byte(`{}`))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(target.Calls()) != 1 {
		t.Fatalf("expected 1 call, got %d", len(target.Calls()))
	}
}

func TestInterceptMissingHeader(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, s := testServer(t, target.URL)

	resp := do(t, http.MethodPost, srv.URL+"/intercede", relaytest.Headers("X-Key", "abc123"), []byte(`{}`))

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if !strings.Contains(body["error"], "X-Topic") {
		t.Fatalf("error should name the header: %q", body["error"])
	}
	if len(target.Calls()) != 0 || s.Len() != 0 {
		t.Fatal("no side effects expected")
	}
}

func TestInterceptBodyTooLarge(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL, interceder.WithMaxBodyBytes(8))

	resp := do(t, http.MethodPost, srv.URL+"/intercede", relayHeaders(), []byte(`{"too":"large"}`))

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	if len(target.Calls()) != 0 {
		t.Fatal("no outbound call expected")
	}
}

func TestInterceptForwardFailure(t *testing.T) {
	srv, _ := testServer(t, "http://127.0.0.1:1/hooks/tenant-secret")

	resp := do(t, http.MethodPost, srv.URL+"/intercede", relayHeaders(), []byte(`{}`))

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "forward to target failed" {
		t.Errorf("error = %q", body["error"])
	}
	if strings.Contains(body["error"], "tenant-secret") || strings.Contains(body["error"], "127.0.0.1") {
		t.Fatalf("response leaked the target url: %q", body["error"])
	}
}

func TestInterceptForwardFailureBestEffort(t *testing.T) {
	srv, _ := testServer(t, "http://127.0.0.1:1",
		interceder.WithForwardPolicy(interceder.ForwardBestEffort))

	resp := do(t, http.MethodPost, srv.URL+"/intercede", relayHeaders(), []byte(`{}`))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReplay(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	do(t, http.MethodPost, srv.URL+"/intercede", relayHeaders(), []byte(`{"a":1}`))
	resp := do(t, http.MethodGet, srv.URL+"/replay", relayHeaders(), nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	calls := target.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if string(calls[1].Body) != `{"a":1}` {
		t.Fatalf("replayed %q", calls[1].Body)
	}
}

func TestReplayNotFound(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	resp := do(t, http.MethodGet, srv.URL+"/replay", relayHeaders(), nil)

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if len(target.Calls()) != 0 {
		t.Fatal("no outbound call expected")
	}
}

func TestReplayUnknownTopic(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	resp := do(t, http.MethodGet, srv.URL+"/replay", relaytest.Headers("X-Key", "k", "X-Topic", "nope"), nil)

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	resp := do(t, http.MethodGet, srv.URL+"/intercede", relayHeaders(), nil)

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

// --- CORS ---

func TestCORSPreflight(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	resp := do(t, http.MethodOptions, srv.URL+"/intercede", relaytest.Headers(
		"Origin", "https://app.example.com",
		"Access-Control-Request-Method", "POST",
		"Access-Control-Request-Headers", "x-key, x-topic",
	), nil)

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	for name, want := range map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "x-key, x-topic",
	} {
		if got := resp.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials must never be allowed")
	}
	if len(target.Calls()) != 0 {
		t.Fatal("preflight must not be relayed")
	}
}

func TestCORSSimpleRequest(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	h := relayHeaders()
	h.Set("Origin", "https://app.example.com")
	resp := do(t, http.MethodPost, srv.URL+"/intercede", h, []byte(`{}`))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

// --- Operations ---

func TestHealthz(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, s := testServer(t, target.URL)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	s.Close()
	resp = do(t, http.MethodGet, srv.URL+"/healthz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after close, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	srv, _ := testServer(t, target.URL, interceder.WithMetrics(metrics))

	do(t, http.MethodPost, srv.URL+"/intercede", relayHeaders(), []byte(`{}`))
	resp := do(t, http.MethodGet, srv.URL+"/metrics", nil, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `interceder_requests_total{outcome="forwarded",route="intercede"} 1`) {
		t.Fatalf("metrics missing forwarded request:\n%s", b)
	}
}

func TestMetricsEndpointAbsentWithoutMetrics(t *testing.T) {
	target := relaytest.NewTarget(t, http.StatusOK)
	srv, _ := testServer(t, target.URL)

	resp := do(t, http.MethodGet, srv.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
