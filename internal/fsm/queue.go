package fsm

import "sync"

// DefaultQueueSize is how many events may wait for the control loop.
const DefaultQueueSize = 5

// Queue is a bounded FIFO of events between hardware sources and the
// control loop.
//
// Push never blocks: when the buffer is full the new event is dropped and
// reported, so a stalled loop cannot back up into input handlers.
//
// Thread-safety: Push and Close may be called from any goroutine; C is
// read by the control loop only.
type Queue struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	metrics *Metrics
}

// NewQueue creates a queue holding at most size events.
func NewQueue(size int, metrics *Metrics) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Event, size), metrics: metrics}
}

// Push adds ev at the back of the queue. It returns a QUEUE_FULL
// RuntimeError if the event was dropped. Pushing to a closed queue is a
// no-op.
func (q *Queue) Push(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	select {
	case q.ch <- ev:
		return nil
	default:
		q.metrics.drop()
		return &RuntimeError{Code: ErrCodeQueueFull, Message: "event queue full", Event: ev}
	}
}

// C returns the receive side of the queue.
func (q *Queue) C() <-chan Event { return q.ch }

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.ch) }

// Close stops accepting events. Buffered events can still be received;
// the channel reports closed once drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
