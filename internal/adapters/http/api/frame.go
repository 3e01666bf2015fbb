// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/playview/internal/domain/model"
)

// FrameHandler serves the current surface as a PNG image.
type FrameHandler struct {
	frames FrameSource
}

// NewFrameHandler creates a new frame handler.
func NewFrameHandler(frames FrameSource) *FrameHandler {
	return &FrameHandler{frames: frames}
}

// HandleFrame handles GET /api/frame.png requests.
func (h *FrameHandler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	data, err := h.frames.CurrentFrame(r.Context())
	switch {
	case errors.Is(err, model.ErrNoFrame):
		writeError(w, http.StatusServiceUnavailable, "frame_not_ready", WrapKind("api.frame", ErrNotReady, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
