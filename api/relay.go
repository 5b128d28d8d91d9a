package api

import (
	"errors"
	"io"
	"net/http"
)

func (h *Handler) intercept(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.ic.Config().MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	if _, err := h.ic.Intercept(r.Context(), r.Header, body); err != nil {
		writeError(w, statusFor(err), messageFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ic.Replay(r.Context(), r.Header); err != nil {
		writeError(w, statusFor(err), messageFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.ic.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
