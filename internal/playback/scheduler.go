package playback

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/playview/pkg/metrics"
)

// DefaultRefreshHz is the refresh rate used when none is configured.
const DefaultRefreshHz = 60

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler runs callbacks once, on the next refresh tick.
type Scheduler interface {
	RequestFrame(fn func()) Handle
	CancelFrame(h Handle)
}

// frameQueue holds pending callbacks for one tick.
type frameQueue struct {
	mu      sync.Mutex
	next    Handle
	order   []Handle
	pending map[Handle]func()
}

func (q *frameQueue) RequestFrame(fn func()) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[Handle]func())
	}
	q.next++
	q.pending[q.next] = fn
	q.order = append(q.order, q.next)
	return q.next
}

func (q *frameQueue) CancelFrame(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[h]; !ok {
		return
	}
	delete(q.pending, h)
	if i := slices.Index(q.order, h); i >= 0 {
		q.order = slices.Delete(q.order, i, i+1)
	}
}

// Pending reports how many callbacks wait for the next tick.
func (q *frameQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// take detaches the callbacks due this tick. Anything requested while they
// run lands on the following tick.
func (q *frameQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	due := make([]func(), 0, len(q.pending))
	for _, h := range q.order {
		if fn, ok := q.pending[h]; ok {
			due = append(due, fn)
		}
	}
	q.order = q.order[:0]
	clear(q.pending)
	return due
}

// ManualScheduler runs callbacks only when Tick is called.
type ManualScheduler struct {
	frameQueue
}

// NewManualScheduler returns an idle manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Tick runs every callback requested before the call and returns how many ran.
func (s *ManualScheduler) Tick() int {
	due := s.take()
	for _, fn := range due {
		fn()
	}
	return len(due)
}

// RefreshScheduler runs callbacks from a ticker at a fixed refresh rate.
type RefreshScheduler struct {
	frameQueue

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewRefreshScheduler returns a scheduler ticking hz times per second.
func NewRefreshScheduler(hz int) *RefreshScheduler {
	if hz <= 0 {
		hz = DefaultRefreshHz
	}
	return &RefreshScheduler{
		interval: time.Second / time.Duration(hz),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Interval is the time between ticks.
func (s *RefreshScheduler) Interval() time.Duration { return s.interval }

// Start launches the tick loop. It returns immediately.
func (s *RefreshScheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *RefreshScheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			due := s.take()
			if len(due) == 0 {
				continue
			}
			metrics.RecordRefreshTick()
			for _, fn := range due {
				fn()
			}
		}
	}
}

// Stop ends the tick loop and waits for the running tick to finish.
// Stop must only be called after Start.
func (s *RefreshScheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
