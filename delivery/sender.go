// Package delivery issues the outbound webhook call.
//
// A Sender posts a body with the rebuilt header set to the resolved target
// URL. Any HTTP response, 2xx or not, is a completed dispatch and is
// returned as a Result; only transport failures produce a *ForwardError.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xraph/interceder/header"
)

const maxResponseBody = 1024 // 1KB cap on response body capture

// DefaultTimeout bounds a forward when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrTransport is wrapped by *ForwardError.
var ErrTransport = errors.New("delivery: transport failure")

// ForwardError reports a failed outbound call. Error omits URL, which may
// carry environment-resolved path segments.
type ForwardError struct {
	URL string
	Err error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("delivery: forward failed: %v", e.Err)
}

func (e *ForwardError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Result describes the target's reply.
type Result struct {
	StatusCode int    `json:"status_code"`
	Response   string `json:"response,omitempty"`
	LatencyMs  int    `json:"latency_ms"`
}

// Accepted reports whether the target replied with a 2xx status.
func (r Result) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender performs the outbound HTTP call.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Forward POSTs body to url. Content-Type and Accept default to
// application/json; a rebuilt header of the same name replaces the default,
// and repeated rebuilt names are all sent.
func (s *Sender) Forward(ctx context.Context, url string, headers []header.Pair, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, &ForwardError{URL: url, Err: cause(err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	overridden := make(map[string]bool, len(headers))
	for _, p := range headers {
		name := http.CanonicalHeaderKey(p.Name)
		if !overridden[name] {
			req.Header.Del(name)
			overridden[name] = true
		}
		req.Header.Add(name, p.Value)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: URL comes from the operator's manifest.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{LatencyMs: int(latency)}, &ForwardError{URL: url, Err: cause(err)}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			LatencyMs:  int(latency),
		}, &ForwardError{URL: url, Err: fmt.Errorf("read response: %w", readErr)}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}, nil
}

// cause strips the *url.Error wrapper, whose message repeats the URL.
func cause(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
