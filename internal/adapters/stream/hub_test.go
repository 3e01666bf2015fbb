package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/playback"
	"github.com/okian/playview/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeController struct {
	mu      sync.Mutex
	calls   []string
	enabled bool
	redraws int
}

func (c *fakeController) record(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *fakeController) Play(context.Context)   { c.record("play") }
func (c *fakeController) Pause(context.Context)  { c.record("pause") }
func (c *fakeController) Toggle(context.Context) { c.record("toggle") }
func (c *fakeController) Seek(_ context.Context, p int) {
	c.record(fmt.Sprintf("seek %d", p))
}

func (c *fakeController) Redraw(context.Context) {
	c.mu.Lock()
	c.redraws++
	c.mu.Unlock()
}

func (c *fakeController) redrawCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraws
}

func (c *fakeController) State() playback.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return playback.State{Controls: model.Controls{Enabled: c.enabled}}
}

func (c *fakeController) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeLoader struct {
	loads chan [2]int64
}

func (l *fakeLoader) Load(_ context.Context, g, p int64) error {
	l.loads <- [2]int64{g, p}
	return nil
}

func dial(srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	So(err, ShouldBeNil)
	return conn
}

func readText(conn *websocket.Conn) Message {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		So(err, ShouldBeNil)
		if kind != websocket.TextMessage {
			continue
		}
		var m Message
		So(json.Unmarshal(data, &m), ShouldBeNil)
		return m
	}
}

func readBinary(conn *websocket.Conn) []byte {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		So(err, ShouldBeNil)
		if kind == websocket.BinaryMessage {
			return data
		}
	}
}

func waitViewers(h *Hub, n int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Viewers() == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestHub(t *testing.T) {
	Convey("Given a hub serving viewers", t, func() {
		ctx := context.Background()
		ctrl := &fakeController{enabled: true}
		ld := &fakeLoader{loads: make(chan [2]int64, 1)}
		hub := NewHub(WithViewerBuffer(16))
		hub.Attach(ctrl, ld)
		srv := httptest.NewServer(hub)
		defer srv.Close()
		defer hub.Close()

		hub.Status(ctx, "Select a play")

		conn := dial(srv)
		defer conn.Close()
		So(waitViewers(hub, 1), ShouldBeTrue)

		Convey("Then a new viewer receives the latest status", func() {
			m := readText(conn)
			So(m.Type, ShouldEqual, TypeStatus)
			So(*m.Status, ShouldEqual, "Select a play")
		})

		Convey("Then joining redraws the current position", func() {
			deadline := time.Now().Add(time.Second)
			for ctrl.redrawCount() == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(ctrl.redrawCount(), ShouldEqual, 1)
		})

		Convey("When the position changes", func() {
			readText(conn)
			hub.Position(ctx, model.Position{Index: 4, Count: 10, FrameID: 5, LastFrameID: 10})

			Convey("Then viewers receive it", func() {
				m := readText(conn)
				So(m.Type, ShouldEqual, TypePosition)
				So(m.Position.Index, ShouldEqual, 4)
			})
		})

		Convey("When frames are published out of order", func() {
			So(hub.Publish(ctx, model.EncodedFrame{Seq: 5, PNG: []byte("five")}), ShouldBeNil)
			So(hub.Publish(ctx, model.EncodedFrame{Seq: 3, PNG: []byte("three")}), ShouldBeNil)
			So(hub.Publish(ctx, model.EncodedFrame{Seq: 6, PNG: []byte("six")}), ShouldBeNil)

			Convey("Then stale frames are dropped", func() {
				So(string(readBinary(conn)), ShouldEqual, "five")
				So(string(readBinary(conn)), ShouldEqual, "six")
				So(string(hub.LatestFrame()), ShouldEqual, "six")
			})
		})

		Convey("When a viewer sends playback commands", func() {
			So(conn.WriteJSON(Command{Action: ActionPlay}), ShouldBeNil)
			So(conn.WriteJSON(Command{Action: ActionSeek, Position: 2}), ShouldBeNil)
			So(conn.WriteJSON(Command{Action: ActionToggle}), ShouldBeNil)

			Convey("Then they reach the controller in order", func() {
				deadline := time.Now().Add(2 * time.Second)
				for len(ctrl.snapshot()) < 3 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(ctrl.snapshot(), ShouldResemble, []string{"play", "seek 2", "toggle"})
			})
		})

		Convey("When controls are disabled", func() {
			ctrl.mu.Lock()
			ctrl.enabled = false
			ctrl.mu.Unlock()
			readText(conn)
			So(conn.WriteJSON(Command{Action: ActionPlay}), ShouldBeNil)

			Convey("Then the viewer gets an error and nothing runs", func() {
				m := readText(conn)
				So(m.Type, ShouldEqual, TypeError)
				So(m.Error, ShouldEqual, playback.ErrControlsDisabled.Error())
				So(ctrl.snapshot(), ShouldBeEmpty)
			})
		})

		Convey("When a viewer asks for a play", func() {
			So(conn.WriteJSON(Command{Action: ActionLoad, GameID: 2022091100, PlayID: 55}), ShouldBeNil)

			Convey("Then the loader is called", func() {
				select {
				case got := <-ld.loads:
					So(got, ShouldResemble, [2]int64{2022091100, 55})
				case <-time.After(2 * time.Second):
					So("load not called", ShouldBeEmpty)
				}
			})
		})

		Convey("When a viewer sends garbage", func() {
			readText(conn)
			So(conn.WriteMessage(websocket.TextMessage, []byte("{nope")), ShouldBeNil)
			m := readText(conn)
			So(m.Type, ShouldEqual, TypeError)
			So(m.Error, ShouldStartWith, "invalid command")
		})

		Convey("When the hub closes", func() {
			So(hub.Close(), ShouldBeNil)

			Convey("Then viewers are disconnected", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var err error
				for err == nil {
					_, _, err = conn.ReadMessage()
				}
				So(websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived), ShouldBeTrue)
				So(hub.Viewers(), ShouldEqual, 0)
			})
		})

		Convey("When the viewer leaves", func() {
			So(conn.Close(), ShouldBeNil)
			So(waitViewers(hub, 0), ShouldBeTrue)
		})
	})
}
