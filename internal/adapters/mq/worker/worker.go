// Package worker encodes rendered snapshots off the playback loop and hands
// the encoded frames to a publisher.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Snapshot is what workers read off the queue.
type Snapshot = model.Snapshot

// Queue defines how workers receive snapshots.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Snapshot
}

// Encoder turns a snapshot image into bytes.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
}

// Publisher receives encoded frames. It may be called from several workers
// at once and frames may arrive out of order.
type Publisher interface {
	Publish(ctx context.Context, f model.EncodedFrame) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, f model.EncodedFrame) error

func (fn PublisherFunc) Publish(ctx context.Context, f model.EncodedFrame) error { return fn(ctx, f) }

// PNGEncoder encodes with fast compression and reuses its buffers.
type PNGEncoder struct {
	enc png.Encoder
}

// NewPNGEncoder returns an encoder tuned for per-frame streaming.
func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &bufferPool{}}}
}

func (e *PNGEncoder) Encode(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type bufferPool struct{ p sync.Pool }

func (b *bufferPool) Get() *png.EncoderBuffer {
	if v, ok := b.p.Get().(*png.EncoderBuffer); ok {
		return v
	}
	return nil
}

func (b *bufferPool) Put(buf *png.EncoderBuffer) { b.p.Put(buf) }

// Worker processes snapshots until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	encoder   Encoder
	publisher Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, encoder Encoder, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		encoder:   encoder,
		publisher: publisher,
		name:      "encoder",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	snapshots := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-snapshots:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing snapshot", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, s Snapshot) error { //nolint:gocritic // hugeParam: Snapshot is passed by value for channel semantics
	if s.Image == nil {
		return nil
	}

	start := time.Now()
	data, err := w.encoder.Encode(s.Image)
	if err != nil {
		metrics.RecordFrameDropped("encode")
		metrics.RecordErrorByComponent("encoder", "encode_failed")
		return fmt.Errorf("encode frame %d: %w", s.Seq, err)
	}
	metrics.RecordFrameEncoded(float64(time.Since(start).Microseconds()) / 1000)

	f := model.EncodedFrame{Seq: s.Seq, Position: s.Position, PNG: data}
	if err := w.publisher.Publish(ctx, f); err != nil {
		metrics.RecordErrorByComponent("encoder", "publish_failed")
		return fmt.Errorf("publish frame %d: %w", s.Seq, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, queue Queue, encoder Encoder, publisher Publisher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("encoder-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			encoder,
			publisher,
			WithName("encoder-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue, lets the workers drain what is left and waits
// for them. Workers still busy when ctx or the pool timeout ends are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			close(worker.shutdown)
		}
	}
	metrics.UpdateWorkerCount(0)

	if timedOut {
		return fmt.Errorf("encoder pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
