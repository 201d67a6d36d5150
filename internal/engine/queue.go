package engine

import "sync"

// updateQueue is a thread-safe FIFO queue of updated state names.
//
// The queue is unbounded so state writers never block, including ops that
// write states from inside a running task.
//
// The queue uses a channel for signaling to enable context-aware waiting in
// the Run loop.
type updateQueue struct {
	mu     sync.Mutex
	names  []string
	closed bool
	signal chan struct{} // signals availability (buffered, size 1)
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{
		names:  make([]string, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a name to the back of the queue.
// Returns false if the queue is closed.
func (q *updateQueue) Enqueue(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.names = append(q.names, name)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Drain removes every queued name and returns them in first-update order,
// without duplicates.
func (q *updateQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(q.names))
	out := make([]string, 0, len(q.names))
	for _, n := range q.names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	q.names = q.names[:0]
	return out
}

// Wait returns a channel that signals when names may be available. The
// channel is closed when the queue is closed.
func (q *updateQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *updateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.names)
}

// Close signals that no more names will be enqueued and wakes any waiter.
func (q *updateQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *updateQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
