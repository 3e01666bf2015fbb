// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/playback"
)

// Playback is the controller surface exposed over HTTP.
type Playback interface {
	Play(ctx context.Context)
	Pause(ctx context.Context)
	Toggle(ctx context.Context)
	Seek(ctx context.Context, position int)
	State() playback.State
}

// PlayLoader loads a play into the controller.
type PlayLoader interface {
	Load(ctx context.Context, gameID, playID int64) error
}

// Catalog answers search queries against the backend.
type Catalog interface {
	Search(ctx context.Context, q play.SearchQuery) ([]play.Summary, error)
	Filters(ctx context.Context) (play.Filters, error)
}

// FrameSource returns the current frame as PNG.
type FrameSource interface {
	CurrentFrame(ctx context.Context) ([]byte, error)
}

// Dependencies bundles everything the handlers need.
type Dependencies struct {
	Playback Playback
	Loader   PlayLoader
	Catalog  Catalog
	Frames   FrameSource
	Stats    StatsProvider
	// Viewers serves the websocket stream; nil leaves /ws unregistered.
	Viewers http.Handler
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	searchHandler   *SearchHandler
	playsHandler    *PlaysHandler
	playbackHandler *PlaybackHandler
	frameHandler    *FrameHandler
	viewers         http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps.Stats),
		searchHandler:   NewSearchHandler(deps.Catalog),
		playsHandler:    NewPlaysHandler(deps.Loader, deps.Playback),
		playbackHandler: NewPlaybackHandler(deps.Playback),
		frameHandler:    NewFrameHandler(deps.Frames),
		viewers:         deps.Viewers,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/api/search_filters", MetricsMiddleware(s.searchHandler.HandleFilters, "search_filters"))
	mux.HandleFunc("/api/search", MetricsMiddleware(s.searchHandler.HandleSearch, "search"))

	mux.HandleFunc("/api/plays/{gameId}/{playId}", MetricsMiddleware(s.playsHandler.HandleLoad, "load_play"))

	mux.HandleFunc("/api/playback", MetricsMiddleware(s.playbackHandler.HandleState, "playback"))
	mux.HandleFunc("/api/playback/play", MetricsMiddleware(s.playbackHandler.HandlePlay, "playback_play"))
	mux.HandleFunc("/api/playback/pause", MetricsMiddleware(s.playbackHandler.HandlePause, "playback_pause"))
	mux.HandleFunc("/api/playback/toggle", MetricsMiddleware(s.playbackHandler.HandleToggle, "playback_toggle"))
	mux.HandleFunc("/api/playback/seek", MetricsMiddleware(s.playbackHandler.HandleSeek, "playback_seek"))

	mux.HandleFunc("/api/frame.png", MetricsMiddleware(s.frameHandler.HandleFrame, "frame"))

	if s.viewers != nil {
		mux.Handle("/ws", s.viewers)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
