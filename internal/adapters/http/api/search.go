// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/playview/internal/adapters/backend"
	"github.com/okian/playview/internal/domain/play"
)

// SearchHandler proxies search and filter requests to the backend.
type SearchHandler struct {
	catalog Catalog
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(catalog Catalog) *SearchHandler {
	return &SearchHandler{catalog: catalog}
}

// HandleSearch handles GET /api/search?player_name=&team=&down= requests.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	query := play.SearchQuery{
		PlayerName: strings.TrimSpace(q.Get("player_name")),
		Team:       strings.TrimSpace(q.Get("team")),
	}
	if raw := strings.TrimSpace(q.Get("down")); raw != "" {
		down, err := strconv.Atoi(raw)
		if err != nil || down < 1 || down > 4 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		query.Down = down
	}

	results, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	if results == nil {
		results = []play.Summary{}
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleFilters handles GET /api/search_filters requests.
func (h *SearchHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_filters"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	filters, err := h.catalog.Filters(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "filters_unavailable", WrapKind(op, ErrUpstream, err))
		return
	}
	writeJSON(w, http.StatusOK, filters)
}

// writeUpstreamError maps backend failures: a backend 404 stays a 404, any
// other failure is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	var se *backend.ServerError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
}
