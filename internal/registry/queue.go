package registry

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// DefaultQueueCapacity bounds the update queue when no capacity is configured.
const DefaultQueueCapacity = 40

var (
	// ErrQueueFull is returned by TrySubmit when the queue is at capacity.
	ErrQueueFull = errors.New("registry: update queue full")
	// ErrQueueClosed is returned once the queue has been closed.
	ErrQueueClosed = errors.New("registry: update queue closed")
	// ErrQueueEmpty is returned by TryReceive when nothing is pending.
	ErrQueueEmpty = errors.New("registry: update queue empty")
)

// Queue is a bounded multi-producer, single-consumer queue of candidate
// Service updates. Submission never blocks; a full queue drops the update.
type Queue struct {
	mu       sync.Mutex
	ready    *sync.Cond
	buf      *queue.Queue
	capacity int
	closed   bool
}

// NewQueue creates a queue holding at most capacity pending updates.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		buf:      queue.New(),
		capacity: capacity,
	}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// TrySubmit enqueues svc without blocking.
func (q *Queue) TrySubmit(svc Service) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.buf.Length() >= q.capacity {
		return ErrQueueFull
	}
	q.buf.Add(svc.Clone())
	q.ready.Signal()
	return nil
}

// Receive blocks until an update is available or the queue is closed. The
// boolean is false once the queue is closed and drained.
func (q *Queue) Receive() (Service, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.buf.Length() == 0 && !q.closed {
		q.ready.Wait()
	}
	if q.buf.Length() == 0 {
		return Service{}, false
	}
	return q.buf.Remove().(Service), true
}

// TryReceive returns the next update without blocking. Pending updates are
// still delivered after Close; ErrQueueClosed is returned once drained.
func (q *Queue) TryReceive() (Service, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.buf.Length() > 0 {
		return q.buf.Remove().(Service), nil
	}
	if q.closed {
		return Service{}, ErrQueueClosed
	}
	return Service{}, ErrQueueEmpty
}

// Close stops accepting updates and wakes the consumer. It is safe to call
// more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.ready.Broadcast()
}

// Len returns the number of pending updates.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Length()
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.capacity
}
