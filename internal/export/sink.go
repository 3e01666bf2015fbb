package export

import (
	"context"

	eventqueue "github.com/okian/playview/internal/adapters/mq/queue"
	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/internal/render"
)

// frameSink hands every newly shown position to the encoder queue. Unlike the
// live session it waits for room, so no frame of the export is dropped.
type frameSink struct {
	ctx     context.Context
	surface *render.ImageSurface
	queue   eventqueue.Queue

	seq   uint64
	last  int
	err   error
	total int
}

func newFrameSink(ctx context.Context, surface *render.ImageSurface, queue eventqueue.Queue) *frameSink {
	return &frameSink{ctx: ctx, surface: surface, queue: queue, last: -1}
}

// Position runs under the controller lock, so the fields need no lock of
// their own; they are read only after playback ends.
func (s *frameSink) Position(_ context.Context, pos model.Position) {
	// Play renders the loaded frame again before advancing.
	if pos.Count == 0 || pos.Index == s.last || s.err != nil {
		return
	}
	s.last = pos.Index
	s.seq++
	snap := model.Snapshot{Seq: s.seq, Position: pos, Image: s.surface.Snapshot()}
	if err := s.queue.EnqueueWait(s.ctx, snap); err != nil {
		s.err = err
		return
	}
	s.total++
}

func (s *frameSink) Status(context.Context, string) {}

func (s *frameSink) Controls(context.Context, model.Controls) {}
