// Package playback drives a loaded play frame by frame on a refresh scheduler.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/domain/tracking"
	"github.com/okian/playview/internal/render"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// StatusNoTracking is published when a loaded play has no frames.
const StatusNoTracking = "No tracking data available for this play."

// ErrControlsDisabled is returned to callers issuing a playback command
// while the controls are disabled.
var ErrControlsDisabled = errors.New("controls are disabled")

// State is a read-only view of the controller.
type State struct {
	Loaded   bool
	Playable bool
	Metadata play.Metadata
	Position model.Position
	Running  bool
	Controls model.Controls
	Status   string
}

// Controller owns the playback state of one play. All methods are safe for
// concurrent use and none of them fail: invalid calls are no-ops.
type Controller struct {
	mu sync.Mutex

	renderer  *render.Renderer
	scheduler Scheduler
	sink      Sink
	logger    logger.Logger

	loaded   bool
	md       play.Metadata
	index    tracking.FrameIndex
	position int
	running  bool
	enabled  bool
	status   string

	handle Handle
	gen    uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets where position, status and control changes are reported.
func WithSink(s Sink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController returns an empty controller drawing with renderer.
func NewController(renderer *render.Renderer, scheduler Scheduler, opts ...Option) *Controller {
	c := &Controller{
		renderer:  renderer,
		scheduler: scheduler,
		sink:      Sinks(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("playback")
	}
	return c
}

// Load replaces the current play. Any scheduled advance is cancelled first.
func (c *Controller) Load(ctx context.Context, p play.Play) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()
	c.setRunning(ctx, false)

	c.loaded = true
	c.md = p.Metadata
	c.index = tracking.Build(p.Samples)
	c.position = 0

	if c.index.Empty() {
		c.logger.Warn(ctx, "play has no tracking data",
			logger.Int64("game_id", p.GameID), logger.Int64("play_id", p.PlayID))
		c.renderAt(ctx, 0)
		c.setControls(ctx, false)
		c.setStatus(ctx, StatusNoTracking)
		return
	}

	c.logger.Info(ctx, "play loaded",
		logger.Int64("game_id", p.GameID),
		logger.Int64("play_id", p.PlayID),
		logger.Int("frames", c.index.Len()),
		logger.String("direction", p.Direction.String()),
	)
	c.renderAt(ctx, 0)
	c.setControls(ctx, true)
	c.setStatus(ctx, describe(p.Metadata))
}

// Seek pauses playback and renders the frame at position, clamped into range.
func (c *Controller) Seek(ctx context.Context, position int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playable() {
		return
	}
	c.cancel()
	c.setRunning(ctx, false)
	c.position = min(max(position, 0), c.index.Len()-1)
	c.renderAt(ctx, c.position)
}

// Play starts advancing one frame per refresh tick.
func (c *Controller) Play(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.play(ctx)
}

func (c *Controller) play(ctx context.Context) {
	if c.running || !c.playable() {
		return
	}
	c.setRunning(ctx, true)
	c.schedule()
}

// Pause stops advancing. Pausing a paused controller does nothing.
func (c *Controller) Pause(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pause(ctx)
}

func (c *Controller) pause(ctx context.Context) {
	c.cancel()
	c.setRunning(ctx, false)
}

// Toggle pauses a running controller and plays a paused one.
func (c *Controller) Toggle(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.pause(ctx)
		return
	}
	c.play(ctx)
}

// DisableControls marks the controls unavailable and publishes status.
// A running play keeps running.
func (c *Controller) DisableControls(ctx context.Context, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setControls(ctx, false)
	c.setStatus(ctx, status)
}

// Redraw renders the current position again without changing state.
func (c *Controller) Redraw(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderAt(ctx, c.position)
}

// Inspect runs fn with the controller lock held, so the render surface shows
// the current position for its duration. fn must not call back into c.
func (c *Controller) Inspect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Loaded:   c.loaded,
		Playable: c.playable(),
		Metadata: c.md,
		Position: c.positionAt(c.position),
		Running:  c.running,
		Controls: model.Controls{Enabled: c.enabled, Running: c.running},
		Status:   c.status,
	}
}

// advance is the scheduled step of a running chain. A tick from a superseded
// chain, or one that lost a race with Pause, does nothing.
func (c *Controller) advance(gen uint64) {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || gen != c.gen || !c.playable() {
		return
	}
	c.handle = 0
	c.renderAt(ctx, c.position)
	if c.position < c.index.Len()-1 {
		c.position++
		c.schedule()
		return
	}
	c.setRunning(ctx, false)
}

func (c *Controller) playable() bool {
	return c.loaded && !c.index.Empty()
}

func (c *Controller) schedule() {
	c.gen++
	gen := c.gen
	c.handle = c.scheduler.RequestFrame(func() { c.advance(gen) })
}

func (c *Controller) cancel() {
	if c.handle != 0 {
		c.scheduler.CancelFrame(c.handle)
		c.handle = 0
	}
	c.gen++
}

func (c *Controller) renderAt(ctx context.Context, i int) {
	start := time.Now()
	if c.playable() {
		_, frame := c.index.At(i)
		c.renderer.Render(frame, c.md)
	} else {
		c.renderer.RenderBackground()
	}
	metrics.RecordFrameRendered(float64(time.Since(start).Microseconds()) / 1000)

	pos := c.positionAt(i)
	metrics.UpdatePlaybackPosition(pos.Index, pos.Count)
	c.sink.Position(ctx, pos)
}

func (c *Controller) positionAt(i int) model.Position {
	if !c.playable() {
		return model.Position{}
	}
	id, frame := c.index.At(i)
	last, _ := c.index.Last()
	return model.Position{
		Index:       i,
		Count:       c.index.Len(),
		FrameID:     id,
		LastFrameID: last,
		Event:       frame.Event(),
	}
}

func (c *Controller) setRunning(ctx context.Context, running bool) {
	if c.running == running {
		return
	}
	c.running = running
	metrics.UpdatePlaybackRunning(running)
	c.sink.Controls(ctx, model.Controls{Enabled: c.enabled, Running: running})
}

func (c *Controller) setControls(ctx context.Context, enabled bool) {
	c.enabled = enabled
	c.sink.Controls(ctx, model.Controls{Enabled: enabled, Running: c.running})
}

func (c *Controller) setStatus(ctx context.Context, status string) {
	c.status = status
	c.sink.Status(ctx, status)
}

func describe(md play.Metadata) string {
	if md.Description != "" {
		return md.Description
	}
	return fmt.Sprintf("Game %d, play %d", md.GameID, md.PlayID)
}
