// Package queue carries rendered frame snapshots from the playback loop to
// the encoder pool.
//
// Enqueue never blocks: the playback loop runs under the controller lock and
// a slow consumer must cost frames, not refresh ticks.
package queue

import (
	"context"
	"sync"

	"github.com/okian/playview/internal/domain/model"
	"github.com/okian/playview/pkg/metrics"
)

const defaultQueueCapacity = 64

// Snapshot is the payload type flowing through the queue.
type Snapshot = model.Snapshot

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a snapshot to the queue.
	// Returns false if the queue is full or closed and the snapshot was dropped.
	Enqueue(ctx context.Context, s Snapshot) bool

	// EnqueueWait adds a snapshot, waiting for room. Used when no frame may be
	// dropped, such as exporting a play to files.
	EnqueueWait(ctx context.Context, s Snapshot) error

	// Dequeue returns a channel that will receive snapshots as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Snapshot

	// Len returns the current number of queued snapshots.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, nothing can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a channel buffered to capacity.
type InMemoryQueue struct {
	snapshots chan Snapshot
	capacity  int
	mu        sync.RWMutex
	closed    bool

	// done wakes blocked EnqueueWait callers before Close takes the write lock.
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.snapshots = make(chan Snapshot, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a snapshot to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Snapshot) bool { //nolint:gocritic // hugeParam: Snapshot is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.snapshots) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordFrameDropped("queue_full")
		return false
	}

	select {
	case q.snapshots <- s:
		q.recordEnqueue()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordFrameDropped("queue_full")
		return false
	}
}

// EnqueueWait adds a snapshot, blocking until there is room or ctx ends.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, s Snapshot) error { //nolint:gocritic // hugeParam: Snapshot is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}

	select {
	case q.snapshots <- s:
		q.recordEnqueue()
		return nil
	case <-q.done:
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

func (q *InMemoryQueue) recordEnqueue() {
	metrics.RecordQueueEnqueue()
	q.recordSize()
}

func (q *InMemoryQueue) recordSize() int {
	size := len(q.snapshots)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Dequeue returns a channel that will receive snapshots as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for s := range q.snapshots {
			select {
			case out <- s:
				metrics.RecordQueueDequeue()
				q.recordSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued snapshots.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return q.recordSize()
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue. Blocked EnqueueWait calls return
// ErrClosed; snapshots already queued still drain through Dequeue.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.snapshots)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
