// Package export renders every frame of a play to PNG files without a UI.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/playview/internal/adapters/backend"
	eventqueue "github.com/okian/playview/internal/adapters/mq/queue"
	"github.com/okian/playview/internal/adapters/mq/worker"
	"github.com/okian/playview/internal/loader"
	"github.com/okian/playview/internal/playback"
	"github.com/okian/playview/internal/render"
	"github.com/okian/playview/pkg/logger"
)

// ErrNoTracking is returned for a play without tracking data.
var ErrNoTracking = errors.New(playback.StatusNoTracking)

// queueDepthPerWorker bounds how far rendering may run ahead of encoding.
const queueDepthPerWorker = 2

// Run fetches one play and writes each of its frames to cfg.OutDir.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("export")

	log.Info(ctx, "starting play export",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int64("game_id", cfg.GameID),
		logger.Int64("play_id", cfg.PlayID),
		logger.String("out", cfg.OutDir),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	files, err := newFilePublisher(cfg.OutDir)
	if err != nil {
		return nil, err
	}

	// Step 1: Wait for the field so no frame is drawn on the fallback fill
	background := waitBackground(ctx, cfg, log)

	// Step 2: Wire the renderer, the queue and the encoder pool
	surface := render.NewFieldSurface()
	renderer := render.NewRenderer(surface, background)
	queue := eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(max(cfg.Workers, 1)*queueDepthPerWorker),
	)
	pool := worker.NewPool(cfg.Workers, queue, worker.NewPNGEncoder(), files)
	pool.Start(ctx)

	sink := newFrameSink(ctx, surface, queue)
	scheduler := playback.NewManualScheduler()
	controller := playback.NewController(renderer, scheduler,
		playback.WithSink(sink),
		playback.WithLogger(log.Named("playback")),
	)

	// Step 3: Load the play; the first frame is queued by the load itself
	client := backend.NewClient(cfg.BaseURL,
		backend.WithTimeout(cfg.Timeout),
		backend.WithLogger(log.Named("backend")),
	)
	if err := loader.New(client, controller, loader.WithLogger(log.Named("loader"))).
		Load(ctx, cfg.GameID, cfg.PlayID); err != nil {
		_ = pool.Shutdown(ctx)
		return nil, fmt.Errorf("load play: %w", err)
	}
	if !controller.State().Playable {
		_ = pool.Shutdown(ctx)
		return nil, ErrNoTracking
	}

	// Step 4: Play to the end, one tick per frame
	controller.Play(ctx)
	for controller.State().Running {
		if ctx.Err() != nil {
			controller.Pause(ctx)
			break
		}
		scheduler.Tick()
	}

	// Step 5: Drain the encoders
	if err := pool.Shutdown(ctx); err != nil {
		return nil, fmt.Errorf("drain encoders: %w", err)
	}
	if sink.err != nil {
		return nil, fmt.Errorf("queue frame: %w", sink.err)
	}

	stats.Frames = controller.State().Position.Count
	stats.FramesWritten = files.Written()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if stats.FramesWritten != stats.Frames {
		return stats, fmt.Errorf("wrote %d of %d frames", stats.FramesWritten, stats.Frames)
	}

	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func waitBackground(ctx context.Context, cfg *Config, log logger.Logger) *render.Background {
	background := render.NewBackground(
		render.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		render.WithLogger(log.Named("background")),
	)
	if cfg.FieldImage == "" {
		return background
	}
	background.Load(ctx, cfg.FieldImage)
	select {
	case <-background.Done():
	case <-ctx.Done():
	}
	return background
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesWritten) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("frames", stats.Frames),
		logger.Int("framesWritten", stats.FramesWritten),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("framesPerSecond", framesPerSecond))
}
