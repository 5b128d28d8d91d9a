package interceder

import (
	"errors"

	"github.com/xraph/interceder/delivery"
	"github.com/xraph/interceder/header"
	"github.com/xraph/interceder/manifest"
	"github.com/xraph/interceder/payload"
	"github.com/xraph/interceder/ratelimit"
)

// Sentinel errors returned by Interceder operations. Typed errors below
// unwrap to them.
var (
	// ErrNoManifest is returned when an Interceder is created without a manifest.
	ErrNoManifest = errors.New("interceder: manifest is required")

	// ErrNoStore is returned when an Interceder is created without a payload store.
	ErrNoStore = errors.New("interceder: payload store is required")

	// ErrMissingHeader is returned when a required inbound header is absent.
	ErrMissingHeader = header.ErrMissing

	// ErrHeaderAlignment is returned when extracted values do not match the
	// manifest's request-sourced slots.
	ErrHeaderAlignment = header.ErrAlignment

	// ErrPayloadNotFound is returned by Replay when nothing was cached for the topic.
	ErrPayloadNotFound = payload.ErrNotFound

	// ErrUnknownTopic is returned by Replay when no configured topic matches.
	ErrUnknownTopic = errors.New("interceder: no configured topic matches the request")

	// ErrForward is returned when the outbound call fails at the transport level.
	ErrForward = delivery.ErrTransport

	// ErrConfig is returned for invalid manifests.
	ErrConfig = manifest.ErrInvalid

	// ErrRateLimited is returned when a call gives up waiting for its
	// forward rate limit.
	ErrRateLimited = ratelimit.ErrLimited
)

type (
	// MissingHeaderError names the absent inbound header.
	MissingHeaderError = header.MissingError

	// HeaderAlignmentError carries the extracted and expected value counts.
	HeaderAlignmentError = header.AlignmentError

	// NotFoundError names the cache key with no payload.
	NotFoundError = payload.NotFoundError

	// ForwardError carries the target URL and the transport failure.
	ForwardError = delivery.ForwardError

	// ConfigError lists every problem found in a manifest.
	ConfigError = manifest.ConfigError
)
