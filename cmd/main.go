package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/playview/internal/adapters/http/api"
	"github.com/okian/playview/internal/adapters/http/site"
	app "github.com/okian/playview/internal/app"
	"github.com/okian/playview/internal/config"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// System gauges come from updateSystemMetrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go every(ctx, systemMetricsInterval, updateSystemMetrics)
	go every(ctx, serviceMetricsInterval, func() { updateServiceMetrics(svc) })

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving viewer", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down playview")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "playview stopped")
}

// newService maps configuration onto service options.
func newService(cfg *config.Config, l logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(l),
		app.WithBackend(cfg.BackendURL, cfg.BackendTimeout()),
		app.WithFieldImage(cfg.FieldImage),
		app.WithRefreshHz(cfg.RefreshHz),
		app.WithQueueSize(cfg.FrameQueueSize),
		app.WithEncoderWorkers(cfg.EncoderWorkers),
		app.WithViewerBuffer(cfg.ViewerBuffer),
		app.WithCache(cfg.CachePath, cfg.CacheTTL()),
		app.WithNATS(cfg.NATSURL, cfg.NATSSubject),
	)
}

// newMux registers the API, the viewer stream and the embedded page.
// The service must be started so its viewer hub exists.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(api.Dependencies{
		Playback: svc,
		Loader:   svc,
		Catalog:  svc,
		Frames:   svc,
		Stats:    svc,
		Viewers:  svc.Viewers(),
	}).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// every runs fn on each tick of interval until ctx ends.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// updateSystemMetrics samples memory, goroutines and GC pauses.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics mirrors queue depth, viewers and run state into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if viewers, ok := stats["viewers"].(int); ok {
		metrics.UpdateViewerCount(viewers)
	}
	if running, ok := stats["running"].(bool); ok {
		metrics.UpdatePlaybackRunning(running)
	}
}
