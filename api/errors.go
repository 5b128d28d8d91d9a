package api

import (
	"errors"
	"net/http"

	"github.com/xraph/interceder"
)

// messageFor is the client-facing error text. Forward failures get a fixed
// message; the detail is logged by the relay.
func messageFor(err error) string {
	if errors.Is(err, interceder.ErrForward) {
		return "forward to target failed"
	}
	return err.Error()
}

// statusFor maps relay errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, interceder.ErrMissingHeader):
		return http.StatusBadRequest
	case errors.Is(err, interceder.ErrPayloadNotFound):
		return http.StatusNotFound
	case errors.Is(err, interceder.ErrUnknownTopic):
		return http.StatusNotFound
	case errors.Is(err, interceder.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, interceder.ErrForward):
		return http.StatusBadGateway
	case errors.Is(err, interceder.ErrHeaderAlignment):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
