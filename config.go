package interceder

import (
	"fmt"
	"time"
)

// ForwardPolicy decides what a failed outbound call means to the caller.
type ForwardPolicy string

const (
	// ForwardSurface returns a *ForwardError when the outbound call fails.
	ForwardSurface ForwardPolicy = "surface"

	// ForwardBestEffort logs the failure and reports the call as done.
	// The error is still recorded on the Outcome.
	ForwardBestEffort ForwardPolicy = "best-effort"
)

// ParseForwardPolicy parses "surface" or "best-effort".
func ParseForwardPolicy(s string) (ForwardPolicy, error) {
	switch p := ForwardPolicy(s); p {
	case ForwardSurface, ForwardBestEffort:
		return p, nil
	default:
		return "", fmt.Errorf("interceder: unknown forward policy %q", s)
	}
}

// Config holds the runtime knobs of an Interceder. Relay rules live in the
// manifest.
type Config struct {
	// RequestTimeout is the HTTP timeout for the outbound call.
	RequestTimeout time.Duration

	// ForwardPolicy controls whether forward failures reach the caller.
	ForwardPolicy ForwardPolicy

	// MaxBodyBytes caps inbound bodies accepted by the HTTP surface.
	MaxBodyBytes int64

	// ForwardRateLimit caps outbound calls per second for each cache key.
	// Zero means unlimited.
	ForwardRateLimit float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		ForwardPolicy:  ForwardSurface,
		MaxBodyBytes:   10 << 20,
	}
}
