package worker_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/playview/internal/adapters/mq/queue"
	worker "github.com/okian/playview/internal/adapters/mq/worker"
	model "github.com/okian/playview/internal/domain/model"
	logging "github.com/okian/playview/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recordingPublisher struct {
	mu     sync.Mutex
	frames []model.EncodedFrame
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, f model.EncodedFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, f)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

type failingEncoder struct{}

func (failingEncoder) Encode(*image.RGBA) ([]byte, error) { return nil, errors.New("encode failed") }

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 0xdc, G: 0x35, B: 0x45, A: 0xff})
	return img
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestPNGEncoder(t *testing.T) {
	convey.Convey("Given a PNG encoder", t, func() {
		enc := worker.NewPNGEncoder()

		convey.Convey("When encoding an image", func() {
			data, err := enc.Encode(testImage())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it decodes back to the same pixels", func() {
				img, err := png.Decode(bytes.NewReader(data))
				convey.So(err, convey.ShouldBeNil)
				convey.So(img.Bounds().Dx(), convey.ShouldEqual, 4)
				r, _, _, _ := img.At(1, 1).RGBA()
				convey.So(r>>8, convey.ShouldEqual, 0xdc)
			})
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a queue", t, func() {
		_ = logging.Init(logging.WithOutput(io.Discard))

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		pub := &recordingPublisher{}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.Convey("When a snapshot is queued", func() {
			w := worker.NewInMemoryWorker(q, worker.NewPNGEncoder(), pub, worker.WithName("test-encoder"))
			go w.Run(ctx)
			q.Enqueue(ctx, model.Snapshot{Seq: 7, Position: model.Position{Index: 2, Count: 9}, Image: testImage()})

			convey.Convey("Then the encoded frame is published with its position", func() {
				convey.So(waitFor(func() bool { return pub.count() == 1 }), convey.ShouldBeTrue)
				pub.mu.Lock()
				f := pub.frames[0]
				pub.mu.Unlock()
				convey.So(f.Seq, convey.ShouldEqual, 7)
				convey.So(f.Position.Index, convey.ShouldEqual, 2)
				convey.So(f.PNG[:4], convey.ShouldResemble, []byte{0x89, 'P', 'N', 'G'})
			})
		})

		convey.Convey("When encoding fails", func() {
			w := worker.NewInMemoryWorker(q, failingEncoder{}, pub)
			go w.Run(ctx)
			q.Enqueue(ctx, model.Snapshot{Seq: 1, Image: testImage()})
			q.Enqueue(ctx, model.Snapshot{Seq: 2})

			convey.Convey("Then nothing is published and the worker keeps running", func() {
				convey.So(waitFor(func() bool { return q.Len(ctx) == 0 }), convey.ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				convey.So(pub.count(), convey.ShouldEqual, 0)
				select {
				case <-w.Done():
					convey.So("worker stopped", convey.ShouldBeEmpty)
				default:
				}
			})
		})

		convey.Convey("When the worker is shut down", func() {
			w := worker.NewInMemoryWorker(q, worker.NewPNGEncoder(), pub)
			go w.Run(ctx)
			err := w.Shutdown(context.Background())

			convey.Convey("Then Run returns", func() {
				convey.So(err, convey.ShouldBeNil)
				_, open := <-w.Done()
				convey.So(open, convey.ShouldBeFalse)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of encoders", t, func() {
		_ = logging.Init(logging.WithOutput(io.Discard))

		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		pub := &recordingPublisher{}
		pool := worker.NewPool(3, q, worker.NewPNGEncoder(), pub)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When snapshots are queued and the pool shuts down", func() {
			for i := 0; i < 20; i++ {
				convey.So(q.EnqueueWait(ctx, model.Snapshot{Seq: uint64(i), Image: testImage()}), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every snapshot is drained before the workers stop", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pub.count(), convey.ShouldEqual, 20)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool size is not positive", func() {
			p := worker.NewPool(0, q, worker.NewPNGEncoder(), pub)
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			_ = pool.Shutdown(ctx)
		})
	})
}
