// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/playback"
)

type playbackResponse struct {
	Loaded   bool           `json:"loaded"`
	Playable bool           `json:"playable"`
	Play     *play.Metadata `json:"play,omitempty"`
	Position model.Position `json:"position"`
	Running  bool           `json:"running"`
	Controls model.Controls `json:"controls"`
	Status   string         `json:"status"`
}

func newPlaybackResponse(st playback.State) playbackResponse {
	resp := playbackResponse{
		Loaded:   st.Loaded,
		Playable: st.Playable,
		Position: st.Position,
		Running:  st.Running,
		Controls: st.Controls,
		Status:   st.Status,
	}
	if st.Loaded {
		md := st.Metadata
		resp.Play = &md
	}
	return resp
}

// PlaybackHandler exposes the play/pause/seek controls.
type PlaybackHandler struct {
	playback Playback
}

// NewPlaybackHandler creates a new playback handler.
func NewPlaybackHandler(p Playback) *PlaybackHandler {
	return &PlaybackHandler{playback: p}
}

// HandleState handles GET /api/playback requests.
func (h *PlaybackHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, newPlaybackResponse(h.playback.State()))
}

// HandlePlay handles POST /api/playback/play requests.
func (h *PlaybackHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "api.play", func() { h.playback.Play(r.Context()) })
}

// HandlePause handles POST /api/playback/pause requests.
func (h *PlaybackHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "api.pause", func() { h.playback.Pause(r.Context()) })
}

// HandleToggle handles POST /api/playback/toggle requests.
func (h *PlaybackHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "api.toggle", func() { h.playback.Toggle(r.Context()) })
}

// HandleSeek handles POST /api/playback/seek?position=N requests.
func (h *PlaybackHandler) HandleSeek(w http.ResponseWriter, r *http.Request) {
	const op = "api.seek"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	pos, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.control(w, r, op, func() { h.playback.Seek(r.Context(), pos) })
}

// control runs fn when the controls are enabled, mirroring a disabled button.
func (h *PlaybackHandler) control(w http.ResponseWriter, r *http.Request, op string, fn func()) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	st := h.playback.State()
	if !st.Playable {
		writeError(w, http.StatusConflict, "not_playable", NewKind(op, ErrNotPlayable))
		return
	}
	if !st.Controls.Enabled {
		writeError(w, http.StatusConflict, "controls_disabled", NewKind(op, playback.ErrControlsDisabled))
		return
	}
	fn()
	writeJSON(w, http.StatusOK, newPlaybackResponse(h.playback.State()))
}
