// Package service wires the playback engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/playview/internal/adapters/backend"
	"github.com/okian/playview/internal/adapters/mq/publisher"
	eventqueue "github.com/okian/playview/internal/adapters/mq/queue"
	"github.com/okian/playview/internal/adapters/mq/worker"
	"github.com/okian/playview/internal/adapters/repository"
	"github.com/okian/playview/internal/adapters/stream"
	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/loader"
	"github.com/okian/playview/internal/playback"
	"github.com/okian/playview/internal/render"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a started service.
var ErrNotStarted = errors.New("service not started")

const stopTimeout = 5 * time.Second

// Service owns one playback session: a controller fed by the loader, drawn
// by the renderer, and reported to viewers, the encoder pool and NATS.
type Service struct {
	mu sync.RWMutex

	// Core components, set by Start
	background *render.Background
	scheduler  *playback.RefreshScheduler
	controller *playback.Controller
	loader     *loader.Loader
	client     *backend.Client
	store      repository.Store
	queue      *eventqueue.InMemoryQueue
	pool       *worker.Pool
	hub        *stream.Hub
	frames     *frameSink
	events     *publisher.NATSPublisher

	// Configuration
	backendURL     string
	backendTimeout time.Duration
	fieldImage     string
	refreshHz      int
	queueSize      int
	encoderWorkers int
	viewerBuffer   int
	cachePath      string
	cacheTTL       time.Duration
	natsURL        string
	natsSubject    string

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backendURL:     "http://localhost:5001",
		backendTimeout: 10 * time.Second,
		refreshHz:      60,
		queueSize:      64,
		encoderWorkers: 1,
		viewerBuffer:   8,
		natsSubject:    publisher.DefaultSubject,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the service components. Starting a started
// service does nothing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting playview service...")

	// Components outlive the start request; they stop with Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.client = backend.NewClient(s.backendURL,
		backend.WithTimeout(s.backendTimeout),
		backend.WithLogger(s.logger.Named("backend")),
	)
	var source loader.Source = s.client
	if s.cachePath != "" {
		store, err := repository.NewSQLiteStore(ctx, s.cachePath,
			repository.WithTTL(s.cacheTTL),
			repository.WithLogger(s.logger.Named("cache")),
		)
		if err != nil {
			cancel()
			return err
		}
		s.store = store
		source = repository.NewCachedSource(s.client, store)
		s.logger.Info(ctx, "play cache enabled",
			logger.String("path", s.cachePath), logger.Duration("ttl", s.cacheTTL))
	}

	sinks := playback.Sinks{}
	if s.natsURL != "" {
		events, err := publisher.Connect(s.natsURL,
			publisher.WithSubject(s.natsSubject),
			publisher.WithLogger(s.logger.Named("nats")),
		)
		if err != nil {
			cancel()
			s.closeStore()
			return err
		}
		s.events = events
		sinks = append(sinks, events)
	}

	s.background = render.NewBackground(render.WithLogger(s.logger.Named("background")))
	surface := render.NewFieldSurface()
	renderer := render.NewRenderer(surface, s.background)

	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	encoder := worker.NewPNGEncoder()
	s.hub = stream.NewHub(
		stream.WithViewerBuffer(s.viewerBuffer),
		stream.WithLogger(s.logger.Named("stream")),
	)
	s.frames = newFrameSink(surface, s.queue, encoder, s.hub.Viewers)
	sinks = append(sinks, s.frames, s.hub)

	s.scheduler = playback.NewRefreshScheduler(s.refreshHz)
	s.controller = playback.NewController(renderer, s.scheduler,
		playback.WithSink(sinks),
		playback.WithLogger(s.logger.Named("playback")),
	)
	s.frames.inspect = s.controller.Inspect
	s.loader = loader.New(source, s.controller, loader.WithLogger(s.logger.Named("loader")))
	s.hub.Attach(s.controller, s.loader)

	s.pool = worker.NewPool(s.encoderWorkers, s.queue, encoder, s.hub)
	s.pool.Start(runCtx)
	s.scheduler.Start(runCtx)

	// The first frame is the plain fill; the field replaces it once loaded.
	controller := s.controller
	controller.Redraw(runCtx)
	s.background.OnReady(func() { controller.Redraw(runCtx) })
	s.background.Load(runCtx, s.fieldImage)

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "playview service started",
		logger.Int("refresh_hz", s.refreshHz),
		logger.Duration("frame_interval", s.scheduler.Interval()),
		logger.Int("encoder_workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.String("backend_url", s.backendURL),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping playview service...")

	s.controller.Pause(ctx)
	s.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "encoder pool did not drain", logger.Error(err))
	}
	if err := s.hub.Close(); err != nil {
		s.logger.Warn(ctx, "closing viewer hub failed", logger.Error(err))
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Warn(ctx, "closing NATS publisher failed", logger.Error(err))
		}
	}
	s.closeStore()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "playview service stopped")
}

func (s *Service) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing play cache failed", logger.Error(err))
	}
	s.store = nil
}

// running returns the controller when the service is started.
func (s *Service) running() (*playback.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controller, s.started
}

// Play starts playback.
func (s *Service) Play(ctx context.Context) {
	if c, ok := s.running(); ok {
		c.Play(ctx)
	}
}

// Pause stops playback.
func (s *Service) Pause(ctx context.Context) {
	if c, ok := s.running(); ok {
		c.Pause(ctx)
	}
}

// Toggle switches between playing and paused.
func (s *Service) Toggle(ctx context.Context) {
	if c, ok := s.running(); ok {
		c.Toggle(ctx)
	}
}

// Seek pauses and shows the frame at position.
func (s *Service) Seek(ctx context.Context, position int) {
	if c, ok := s.running(); ok {
		c.Seek(ctx, position)
	}
}

// State returns the playback state; the zero state before Start.
func (s *Service) State() playback.State {
	if c, ok := s.running(); ok {
		return c.State()
	}
	return playback.State{}
}

// Load fetches a play and loads it into the controller.
func (s *Service) Load(ctx context.Context, gameID, playID int64) error {
	s.mu.RLock()
	ld, started := s.loader, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	return ld.Load(ctx, gameID, playID)
}

// Search proxies a play search to the backend.
func (s *Service) Search(ctx context.Context, q play.SearchQuery) ([]play.Summary, error) {
	s.mu.RLock()
	client, started := s.client, s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}
	return client.Search(ctx, q)
}

// Filters proxies the search filter options from the backend.
func (s *Service) Filters(ctx context.Context) (play.Filters, error) {
	s.mu.RLock()
	client, started := s.client, s.started
	s.mu.RUnlock()
	if !started {
		return play.Filters{}, &backend.FiltersLoadError{Err: ErrNotStarted}
	}
	return client.Filters(ctx)
}

// CurrentFrame returns the latest render as PNG.
func (s *Service) CurrentFrame(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	frames, started := s.frames, s.started
	s.mu.RUnlock()
	if !started {
		return nil, fmt.Errorf("%w: %w", ErrNotStarted, model.ErrNoFrame)
	}
	return frames.CurrentFrame(ctx)
}

// Viewers returns the websocket handler, nil before Start.
func (s *Service) Viewers() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hub == nil {
		return nil
	}
	return s.hub
}

// BackgroundReady returns a channel closed once the field image has loaded
// or failed; nil before Start.
func (s *Service) BackgroundReady() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.background == nil {
		return nil
	}
	return s.background.Done()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"refreshHz":      s.refreshHz,
		"encoderWorkers": s.encoderWorkers,
		"queueSize":      s.queueSize,
		"cacheEnabled":   s.cachePath != "",
		"natsEnabled":    s.natsURL != "",
	}

	if s.started {
		st := s.controller.State()
		queueLen := s.queue.Len(ctx)

		stats["queueLength"] = queueLen
		stats["viewers"] = s.hub.Viewers()
		stats["framesRendered"] = s.frames.Seq()
		stats["backgroundReady"] = s.background.Ready()
		stats["loaded"] = st.Loaded
		stats["playable"] = st.Playable
		stats["running"] = st.Running
		stats["position"] = st.Position
		if st.Loaded {
			stats["gameId"] = st.Metadata.GameID
			stats["playId"] = st.Metadata.PlayID
		}
		if s.store != nil {
			if n, err := s.store.Count(ctx); err == nil {
				stats["cachedPlays"] = n
			}
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
