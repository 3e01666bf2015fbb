// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/playview/internal/loader"
)

// PlaysHandler loads plays into the playback session.
type PlaysHandler struct {
	loader   PlayLoader
	playback Playback
}

// NewPlaysHandler creates a new plays handler.
func NewPlaysHandler(l PlayLoader, p Playback) *PlaysHandler {
	return &PlaysHandler{loader: l, playback: p}
}

// HandleLoad handles POST /api/plays/{gameId}/{playId}. It answers once the
// play is loaded, with the resulting playback state.
func (h *PlaysHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	const op = "api.load_play"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	gameID, err1 := strconv.ParseInt(r.PathValue("gameId"), 10, 64)
	playID, err2 := strconv.ParseInt(r.PathValue("playId"), 10, 64)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.loader.Load(r.Context(), gameID, playID); err != nil {
		switch {
		case errors.Is(err, loader.ErrInvalidPlayKey):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		case errors.Is(err, loader.ErrSuperseded):
			writeError(w, http.StatusConflict, "superseded", err)
		default:
			writeUpstreamError(w, op, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, newPlaybackResponse(h.playback.State()))
}
