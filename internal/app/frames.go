package service

import (
	"context"
	"image"
	"sync"

	eventqueue "github.com/okian/playview/internal/adapters/mq/queue"
	"github.com/okian/playview/internal/adapters/mq/worker"
	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/render"
)

// frameSink hands renders to the encoder queue. It is a playback sink, so it
// runs under the controller lock while the surface holds exactly the frame
// pos describes. With nobody watching it only counts renders; CurrentFrame
// then copies the surface on demand.
type frameSink struct {
	surface *render.ImageSurface
	queue   eventqueue.Queue
	encoder worker.Encoder
	viewers func() int
	// inspect runs fn while the surface shows the current position.
	inspect func(fn func())

	mu        sync.Mutex
	seq       uint64
	latest    *image.RGBA // read-only once stored
	latestSeq uint64
}

func newFrameSink(surface *render.ImageSurface, queue eventqueue.Queue, encoder worker.Encoder, viewers func() int) *frameSink {
	return &frameSink{
		surface: surface,
		queue:   queue,
		encoder: encoder,
		viewers: viewers,
		inspect: func(fn func()) { fn() },
	}
}

func (f *frameSink) Position(ctx context.Context, pos model.Position) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	if f.viewers() == 0 {
		return
	}
	img := f.capture(seq)

	// A full queue drops the frame; the next render supersedes it anyway.
	_ = f.queue.Enqueue(ctx, model.Snapshot{Seq: seq, Position: pos, Image: img})
}

func (f *frameSink) Status(context.Context, string) {}

func (f *frameSink) Controls(context.Context, model.Controls) {}

// capture copies the surface as render seq. Callers hold the controller lock.
func (f *frameSink) capture(seq uint64) *image.RGBA {
	img := f.surface.Snapshot()
	f.mu.Lock()
	f.latest, f.latestSeq = img, seq
	f.mu.Unlock()
	return img
}

// Seq returns the number of frames rendered so far.
func (f *frameSink) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// CurrentFrame encodes the most recent render as PNG.
func (f *frameSink) CurrentFrame(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	img, fresh := f.latest, f.latest != nil && f.latestSeq == f.seq
	rendered := f.seq > 0
	f.mu.Unlock()

	if !rendered {
		return nil, model.ErrNoFrame
	}
	if !fresh {
		f.inspect(func() {
			f.mu.Lock()
			seq := f.seq
			f.mu.Unlock()
			img = f.capture(seq)
		})
	}
	return f.encoder.Encode(img)
}
