// Package relaytest provides a recording webhook target and manifest
// builders shared by relay tests.
package relaytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/xraph/interceder/manifest"
)

// Call is one request received by a Target.
type Call struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Target is an httptest server that records every call it receives.
type Target struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []Call
	status int
}

// NewTarget starts a Target answering with status. It is closed on test cleanup.
func NewTarget(t *testing.T, status int) *Target {
	t.Helper()
	tg := &Target{status: status}
	tg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		tg.mu.Lock()
		tg.calls = append(tg.calls, Call{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		tg.mu.Unlock()
		w.WriteHeader(tg.status)
	}))
	t.Cleanup(tg.Close)
	return tg
}

// Calls returns a copy of the recorded calls.
func (tg *Target) Calls() []Call {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return append([]Call(nil), tg.calls...)
}

// Last returns the most recent call. It fails the test when there is none.
func (tg *Target) Last(t *testing.T) Call {
	t.Helper()
	calls := tg.Calls()
	if len(calls) == 0 {
		t.Fatal("target received no calls")
	}
	return calls[len(calls)-1]
}

// Req is a request-sourced header rule.
func Req(name string) manifest.HeaderRule {
	return manifest.HeaderRule{Name: name, Source: manifest.Source{Kind: manifest.FromRequest}}
}

// Env is an environment-sourced header rule with its resolved value.
func Env(name, envName, value string) manifest.HeaderRule {
	return manifest.HeaderRule{
		Name:   name,
		Source: manifest.Source{Kind: manifest.FromEnv, Env: envName, Value: value},
	}
}

// Manifest returns rules for X-Key (request), X-Org (ORG_ID_ENV=org-42)
// and X-Topic (request), with topics orders/updated and customers/create.
func Manifest(targetURL string) *manifest.Manifest {
	return &manifest.Manifest{
		Address:    "127.0.0.1:0",
		TargetURL:  targetURL,
		DisplayURL: targetURL,
		Topics:     []string{"orders/updated", "customers/create"},
		Headers: []manifest.HeaderRule{
			Req("X-Key"),
			Env("X-Org", "ORG_ID_ENV", "org-42"),
			Req("X-Topic"),
		},
	}
}

// WithSignature requires X-Signature and, when secret is non-empty,
// recomputes it with secret.
func WithSignature(m *manifest.Manifest, secret string) *manifest.Manifest {
	m.Hash = manifest.Hash{Required: true, Header: "X-Signature"}
	if secret != "" {
		m.Rehash = manifest.Rehash{Required: true, SecretEnv: "SIGNING_SECRET", Secret: secret}
	}
	return m
}

// Headers builds an inbound header set from name/value pairs.
func Headers(kv ...string) http.Header {
	h := make(http.Header)
	for i := 0; i+1 < len(kv); i += 2 {
		h.Add(kv[i], kv[i+1])
	}
	return h
}
