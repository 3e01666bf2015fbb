// Package backend is the HTTP client for the play data backend.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4 << 10

	endpointPlayData = "play_data"
	endpointSearch   = "search"
	endpointFilters  = "search_filters"
)

// Client reads plays, search results and filter options from the backend.
type Client struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.client = &http.Client{Timeout: d, Transport: cl.client.Transport}
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient returns a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("backend")
	}
	return c
}

// FetchPlay returns the metadata and tracking samples of one play.
func (c *Client) FetchPlay(ctx context.Context, gameID, playID int64) (play.Play, error) {
	path := fmt.Sprintf("/api/play_data/game/%d/play/%d", gameID, playID)

	var resp playDataResponse
	if err := c.get(ctx, endpointPlayData, path, &resp); err != nil {
		return play.Play{}, err
	}
	p := resp.toPlay(play.Key{GameID: gameID, PlayID: playID})

	c.logger.Debug(ctx, "play data fetched",
		logger.Int64("game_id", gameID),
		logger.Int64("play_id", playID),
		logger.Int("rows", len(resp.TrackingData)),
		logger.Int("samples", len(p.Samples)),
	)
	return p, nil
}

// Search returns the plays matching q, best predicted first as ordered by the backend.
func (c *Client) Search(ctx context.Context, q play.SearchQuery) ([]play.Summary, error) {
	params := url.Values{}
	if q.PlayerName != "" {
		params.Set("player_name", q.PlayerName)
	}
	if q.Team != "" {
		params.Set("team", q.Team)
	}
	if q.Down > 0 {
		params.Set("down", strconv.Itoa(q.Down))
	}
	path := "/api/search"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var rows []summaryRow
	if err := c.get(ctx, endpointSearch, path, &rows); err != nil {
		return nil, err
	}
	out := make([]play.Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}
	return out, nil
}

// Filters returns the player and team options for the search form.
// Any failure is reported as a *FiltersLoadError.
func (c *Client) Filters(ctx context.Context) (play.Filters, error) {
	var f play.Filters
	if err := c.get(ctx, endpointFilters, "/api/search_filters", &f); err != nil {
		return play.Filters{}, &FiltersLoadError{Err: err}
	}
	if f.Players == nil {
		f.Players = []string{}
	}
	if f.Teams == nil {
		f.Teams = []string{}
	}
	return f, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordBackendRequest(endpoint, status, float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("backend", "request_failed")
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordErrorByComponent("backend", "server_error")
		se := &ServerError{Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			se.Reason = eb.Error
		}
		c.logger.Warn(ctx, "backend returned an error",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
			logger.String("reason", se.Reason),
		)
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordErrorByComponent("backend", "decode_failed")
		return fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err)
	}
	return nil
}
