package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/playview/internal/adapters/backend"
	"github.com/okian/playview/internal/adapters/http/api"
	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/loader"
	"github.com/okian/playview/internal/playback"
	. "github.com/smartystreets/goconvey/convey"
)

type mockPlayback struct {
	mu    sync.Mutex
	state playback.State
	calls []string
}

func (m *mockPlayback) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockPlayback) Play(context.Context) {
	m.record("play")
	m.mu.Lock()
	m.state.Running = true
	m.state.Controls.Running = true
	m.mu.Unlock()
}

func (m *mockPlayback) Pause(context.Context) {
	m.record("pause")
	m.mu.Lock()
	m.state.Running = false
	m.state.Controls.Running = false
	m.mu.Unlock()
}

func (m *mockPlayback) Toggle(context.Context) { m.record("toggle") }

func (m *mockPlayback) Seek(_ context.Context, position int) {
	m.record(fmt.Sprintf("seek:%d", position))
	m.mu.Lock()
	m.state.Position.Index = position
	m.mu.Unlock()
}

func (m *mockPlayback) State() playback.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

type mockLoader struct {
	err    error
	gameID int64
	playID int64
}

func (m *mockLoader) Load(_ context.Context, gameID, playID int64) error {
	m.gameID, m.playID = gameID, playID
	return m.err
}

type mockCatalog struct {
	results    []play.Summary
	searchErr  error
	filters    play.Filters
	filtersErr error
	lastQuery  play.SearchQuery
}

func (m *mockCatalog) Search(_ context.Context, q play.SearchQuery) ([]play.Summary, error) {
	m.lastQuery = q
	return m.results, m.searchErr
}

func (m *mockCatalog) Filters(context.Context) (play.Filters, error) {
	return m.filters, m.filtersErr
}

type mockFrames struct {
	data []byte
	err  error
}

func (m *mockFrames) CurrentFrame(context.Context) ([]byte, error) { return m.data, m.err }

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"viewers": 2}
}

func playableState() playback.State {
	return playback.State{
		Loaded:   true,
		Playable: true,
		Metadata: play.Metadata{GameID: 7, PlayID: 9, Description: "run left"},
		Position: model.Position{Index: 0, Count: 10, FrameID: 1, LastFrameID: 10},
		Controls: model.Controls{Enabled: true},
	}
}

type fixture struct {
	mux      *http.ServeMux
	playback *mockPlayback
	loader   *mockLoader
	catalog  *mockCatalog
	frames   *mockFrames
}

func newFixture() *fixture {
	f := &fixture{
		mux:      http.NewServeMux(),
		playback: &mockPlayback{state: playableState()},
		loader:   &mockLoader{},
		catalog:  &mockCatalog{},
		frames:   &mockFrames{data: []byte("\x89PNG")},
	}
	server := api.NewServer(api.Dependencies{
		Playback: f.playback,
		Loader:   f.loader,
		Catalog:  f.catalog,
		Frames:   f.frames,
		Stats:    mockStats{},
		Viewers: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})
	server.Register(context.Background(), f.mux)
	return f
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

func TestPlaybackRoutes(t *testing.T) {
	Convey("Given a server with a playable play loaded", t, func() {
		f := newFixture()

		Convey("When reading the playback state", func() {
			rec := f.do(http.MethodGet, "/api/playback")

			Convey("Then the state is returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(decode(rec, &body), ShouldBeNil)
				So(body["loaded"], ShouldEqual, true)
				So(body["playable"], ShouldEqual, true)
				So(body["play"].(map[string]any)["gameId"], ShouldEqual, 7)
				So(body["position"].(map[string]any)["count"], ShouldEqual, 10)
			})
		})

		Convey("When pressing play", func() {
			rec := f.do(http.MethodPost, "/api/playback/play")

			Convey("Then the controller runs", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.playback.calls, ShouldResemble, []string{"play"})
				var body map[string]any
				So(decode(rec, &body), ShouldBeNil)
				So(body["running"], ShouldEqual, true)
			})
		})

		Convey("When pausing and toggling", func() {
			So(f.do(http.MethodPost, "/api/playback/pause").Code, ShouldEqual, http.StatusOK)
			So(f.do(http.MethodPost, "/api/playback/toggle").Code, ShouldEqual, http.StatusOK)

			Convey("Then both reach the controller in order", func() {
				So(f.playback.calls, ShouldResemble, []string{"pause", "toggle"})
			})
		})

		Convey("When seeking to a valid position", func() {
			rec := f.do(http.MethodPost, "/api/playback/seek?position=4")

			Convey("Then the position is forwarded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.playback.calls, ShouldResemble, []string{"seek:4"})
			})
		})

		Convey("When seeking without a numeric position", func() {
			rec := f.do(http.MethodPost, "/api/playback/seek?position=abc")

			Convey("Then it is a bad request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(f.playback.calls, ShouldBeEmpty)
			})
		})

		Convey("When using GET on a control route", func() {
			rec := f.do(http.MethodGet, "/api/playback/play")

			Convey("Then the route is not found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(f.playback.calls, ShouldBeEmpty)
			})
		})

		Convey("When the controls are disabled", func() {
			f.playback.state.Controls.Enabled = false
			rec := f.do(http.MethodPost, "/api/playback/play")

			Convey("Then the request conflicts and the controller is untouched", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
				var body map[string]string
				So(decode(rec, &body), ShouldBeNil)
				So(body["code"], ShouldEqual, "controls_disabled")
				So(f.playback.calls, ShouldBeEmpty)
			})
		})

		Convey("When nothing playable is loaded", func() {
			f.playback.state = playback.State{}
			rec := f.do(http.MethodPost, "/api/playback/toggle")

			Convey("Then the request conflicts", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
				var body map[string]string
				So(decode(rec, &body), ShouldBeNil)
				So(body["code"], ShouldEqual, "not_playable")
			})

			Convey("And the state omits the play", func() {
				var body map[string]any
				So(decode(f.do(http.MethodGet, "/api/playback"), &body), ShouldBeNil)
				_, ok := body["play"]
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestLoadPlayRoute(t *testing.T) {
	Convey("Given a server", t, func() {
		f := newFixture()

		Convey("When loading a play", func() {
			rec := f.do(http.MethodPost, "/api/plays/2018090600/75")

			Convey("Then the loader gets the key and the state is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.loader.gameID, ShouldEqual, 2018090600)
				So(f.loader.playID, ShouldEqual, 75)
			})
		})

		Convey("When the ids are not numbers", func() {
			rec := f.do(http.MethodPost, "/api/plays/abc/75")

			Convey("Then it is a bad request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the loader rejects the key", func() {
			f.loader.err = fmt.Errorf("load: %w", loader.ErrInvalidPlayKey)
			So(f.do(http.MethodPost, "/api/plays/0/0").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the backend does not know the play", func() {
			f.loader.err = &backend.ServerError{Status: http.StatusNotFound, Reason: "Play not found"}
			rec := f.do(http.MethodPost, "/api/plays/1/2")

			Convey("Then the 404 is passed through", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(rec.Body.String(), ShouldContainSubstring, "Play not found")
			})
		})

		Convey("When the backend fails", func() {
			f.loader.err = &backend.ServerError{Status: http.StatusInternalServerError, Reason: "boom"}
			So(f.do(http.MethodPost, "/api/plays/1/2").Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When a newer load supersedes this one", func() {
			f.loader.err = loader.ErrSuperseded
			So(f.do(http.MethodPost, "/api/plays/1/2").Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When using GET", func() {
			So(f.do(http.MethodGet, "/api/plays/1/2").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSearchRoutes(t *testing.T) {
	Convey("Given a server backed by a catalog", t, func() {
		f := newFixture()
		yards := 4.0
		f.catalog.results = []play.Summary{{GameID: 1, PlayID: 2, Description: "pass short", ActualYards: &yards}}
		f.catalog.filters = play.Filters{Players: []string{"A. Player"}, Teams: []string{"KC"}}

		Convey("When searching with all parameters", func() {
			rec := f.do(http.MethodGet, "/api/search?player_name=+A.+Player+&team=KC&down=3")

			Convey("Then the query is trimmed and forwarded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.catalog.lastQuery, ShouldResemble, play.SearchQuery{PlayerName: "A. Player", Team: "KC", Down: 3})
				var body []play.Summary
				So(decode(rec, &body), ShouldBeNil)
				So(body, ShouldHaveLength, 1)
				So(*body[0].ActualYards, ShouldEqual, 4)
			})
		})

		Convey("When no result matches", func() {
			f.catalog.results = nil
			rec := f.do(http.MethodGet, "/api/search")

			Convey("Then an empty array is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When the down is out of range", func() {
			So(f.do(http.MethodGet, "/api/search?down=5").Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodGet, "/api/search?down=x").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the backend search fails", func() {
			f.catalog.searchErr = errors.New("dial tcp: refused")
			So(f.do(http.MethodGet, "/api/search").Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When reading filters", func() {
			rec := f.do(http.MethodGet, "/api/search_filters")

			Convey("Then players and teams are listed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body play.Filters
				So(decode(rec, &body), ShouldBeNil)
				So(body.Teams, ShouldResemble, []string{"KC"})
			})
		})

		Convey("When filters cannot be loaded", func() {
			f.catalog.filtersErr = &backend.FiltersLoadError{Err: errors.New("timeout")}
			rec := f.do(http.MethodGet, "/api/search_filters")

			Convey("Then the filter panel gets a bad gateway", func() {
				So(rec.Code, ShouldEqual, http.StatusBadGateway)
				So(rec.Body.String(), ShouldContainSubstring, "filters_unavailable")
			})
		})
	})
}

func TestAuxiliaryRoutes(t *testing.T) {
	Convey("Given a server", t, func() {
		f := newFixture()

		Convey("When fetching the current frame", func() {
			rec := f.do(http.MethodGet, "/api/frame.png")

			Convey("Then PNG bytes are served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(rec.Body.String(), ShouldEqual, "\x89PNG")
			})
		})

		Convey("When the frame cannot be encoded", func() {
			f.frames.err = errors.New("encode failed")
			So(f.do(http.MethodGet, "/api/frame.png").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When nothing has been rendered yet", func() {
			f.frames.err = fmt.Errorf("service not started: %w", model.ErrNoFrame)
			rec := f.do(http.MethodGet, "/api/frame.png")

			Convey("Then the frame is reported as not ready", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(rec.Body.String(), ShouldContainSubstring, "frame_not_ready")
			})
		})

		Convey("When reading stats", func() {
			rec := f.do(http.MethodGet, "/stats")

			Convey("Then the provider output is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"viewers":2`)
			})
		})

		Convey("When reading health", func() {
			So(f.do(http.MethodGet, "/healthz").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When opening the viewer stream", func() {
			So(f.do(http.MethodGet, "/ws").Code, ShouldEqual, http.StatusTeapot)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("refused")
		err := api.WrapKind("api.search", api.ErrUpstream, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrUpstream), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "api.search: backend unavailable: refused")
		})

		Convey("And a bare kind renders without a cause", func() {
			So(api.NewKind("api.play", playback.ErrControlsDisabled).Error(), ShouldEqual, "api.play: controls are disabled")
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped in the metrics middleware", t, func() {
		handler := api.MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, "test_endpoint")

		Convey("Then the wrapped status reaches the client", func() {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			So(rec.Code, ShouldEqual, http.StatusBadGateway)
		})
	})
}
