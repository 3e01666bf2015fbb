// Package stream pushes rendered frames and playback state to browser viewers
// over websockets and accepts playback commands back.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/playback"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultViewerBuffer = 8
)

// Controller is the playback surface viewers may drive.
type Controller interface {
	Play(ctx context.Context)
	Pause(ctx context.Context)
	Toggle(ctx context.Context)
	Seek(ctx context.Context, position int)
	Redraw(ctx context.Context)
	State() playback.State
}

// Loader loads plays on behalf of viewers.
type Loader interface {
	Load(ctx context.Context, gameID, playID int64) error
}

type outbound struct {
	kind int
	data []byte
}

// Hub fans playback state and frames out to every connected viewer. It is a
// playback sink and an encoder publisher; neither path ever blocks on a viewer.
type Hub struct {
	controller Controller
	loader     Loader
	buffer     int
	logger     logger.Logger

	mu      sync.RWMutex
	viewers map[string]*viewer
	closed  bool

	// latest state, replayed to viewers when they connect
	lastPosition *Message
	lastStatus   *Message
	lastControls *Message
	lastFrame    []byte
	lastSeq      uint64
	sentFrame    bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithViewerBuffer sets how many messages may wait per viewer before drops.
func WithViewerBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub returns a hub with no viewers.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		buffer:  defaultViewerBuffer,
		viewers: make(map[string]*viewer),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("stream")
	}
	metrics.UpdateViewerCount(0)
	return h
}

// Attach sets the controller commands are applied to and the loader viewers
// load plays with; a nil loader disables loading. It is separate from NewHub
// because the controller itself reports to the hub.
func (h *Hub) Attach(c Controller, l Loader) {
	h.mu.Lock()
	h.controller = c
	h.loader = l
	h.mu.Unlock()
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// LatestFrame returns the most recent encoded frame, nil before the first one.
func (h *Hub) LatestFrame() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastFrame
}

func (h *Hub) Position(ctx context.Context, pos model.Position) {
	m := &Message{Type: TypePosition, Position: &pos}
	h.broadcastText(ctx, m, &h.lastPosition)
}

func (h *Hub) Status(ctx context.Context, status string) {
	m := &Message{Type: TypeStatus, Status: &status}
	h.broadcastText(ctx, m, &h.lastStatus)
}

func (h *Hub) Controls(ctx context.Context, c model.Controls) {
	m := &Message{Type: TypeControls, Controls: &c}
	h.broadcastText(ctx, m, &h.lastControls)
}

// Publish sends an encoded frame to every viewer. Frames older than one
// already sent are dropped, since encoders may finish out of order.
func (h *Hub) Publish(_ context.Context, f model.EncodedFrame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sentFrame && f.Seq < h.lastSeq {
		metrics.RecordFrameDropped("stale")
		return nil
	}
	h.sentFrame = true
	h.lastSeq = f.Seq
	h.lastFrame = f.PNG
	h.broadcast(outbound{kind: websocket.BinaryMessage, data: f.PNG})
	return nil
}

func (h *Hub) broadcastText(ctx context.Context, m *Message, slot **Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Error(ctx, "failed to marshal message", logger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	*slot = m
	h.broadcast(outbound{kind: websocket.TextMessage, data: data})
}

// broadcast must be called with h.mu held.
func (h *Hub) broadcast(out outbound) {
	for _, v := range h.viewers {
		v.enqueue(out)
	}
}

// register adds v and queues the current state for it.
func (h *Hub) register(v *viewer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.viewers[v.id] = v
	metrics.UpdateViewerCount(len(h.viewers))

	for _, m := range []*Message{h.lastStatus, h.lastControls, h.lastPosition} {
		if m == nil {
			continue
		}
		if data, err := json.Marshal(m); err == nil {
			v.enqueue(outbound{kind: websocket.TextMessage, data: data})
		}
	}
	if h.lastFrame != nil {
		v.enqueue(outbound{kind: websocket.BinaryMessage, data: h.lastFrame})
	}
	return true
}

// refresh redraws the current position so a new viewer gets a current frame
// even when nothing was rendered for viewers while the hub was empty.
func (h *Hub) refresh(ctx context.Context) {
	h.mu.RLock()
	c := h.controller
	h.mu.RUnlock()
	if c != nil {
		c.Redraw(ctx)
	}
}

func (h *Hub) unregister(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v.id]; !ok {
		return
	}
	delete(h.viewers, v.id)
	v.close()
	metrics.UpdateViewerCount(len(h.viewers))
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, v := range h.viewers {
		v.close()
		delete(h.viewers, id)
	}
	metrics.UpdateViewerCount(0)
	return nil
}

// Handle applies a viewer command. Load runs asynchronously because fetching
// may take a while; its outcome reaches viewers through the status message.
func (h *Hub) Handle(ctx context.Context, cmd Command) error {
	h.mu.RLock()
	c, ld := h.controller, h.loader
	h.mu.RUnlock()

	if cmd.Action == ActionLoad {
		if ld == nil {
			return errors.New("loading is not available")
		}
		go func() {
			if err := ld.Load(context.WithoutCancel(ctx), cmd.GameID, cmd.PlayID); err != nil {
				h.logger.Debug(ctx, "viewer load failed", logger.Error(err))
			}
		}()
		return nil
	}

	if c == nil {
		return errors.New("no controller attached")
	}
	if !c.State().Controls.Enabled {
		return playback.ErrControlsDisabled
	}

	switch cmd.Action {
	case ActionPlay:
		c.Play(ctx)
	case ActionPause:
		c.Pause(ctx)
	case ActionToggle:
		c.Toggle(ctx)
	case ActionSeek:
		c.Seek(ctx, cmd.Position)
	default:
		return errors.New("unknown action: " + cmd.Action)
	}
	return nil
}
