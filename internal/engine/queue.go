package engine

import (
	"errors"
	"sync"

	"github.com/roach88/kibitz/internal/uci"
)

// errQueueClosed is returned by Enqueue after Close.
var errQueueClosed = errors.New("command queue closed")

// commandQueue is a thread-safe bounded FIFO of commands.
//
// Callers on any goroutine enqueue; the driver's run loop is the only
// consumer. The signal channel lets the run loop park in a select alongside
// engine output and context cancellation instead of spinning.
type commandQueue struct {
	mu       sync.Mutex
	commands []uci.Command
	capacity int
	closed   bool
	signal   chan struct{} // Signals command availability (buffered, size 1)
}

// newCommandQueue creates an empty queue holding at most capacity commands.
func newCommandQueue(capacity int) *commandQueue {
	return &commandQueue{
		commands: make([]uci.Command, 0, capacity),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a command to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns errQueueClosed after Close and ErrQueueFull at capacity.
func (q *commandQueue) Enqueue(c uci.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errQueueClosed
	}
	if len(q.commands) >= q.capacity {
		return ErrQueueFull
	}

	q.commands = append(q.commands, c)

	// Non-blocking: a buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return nil
}

// TryDequeue removes the front command without blocking.
// Returns (uci.Command{}, false) if the queue is empty.
func (q *commandQueue) TryDequeue() (uci.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return uci.Command{}, false
	}

	c := q.commands[0]
	if len(q.commands) == 1 {
		q.commands = q.commands[:0]
	} else {
		q.commands = q.commands[1:]
	}
	return c, true
}

// Wait returns a channel that signals when commands may be available.
// The channel is closed by Close, so a closed queue never parks the reader.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Drained reports whether the queue is closed and empty.
func (q *commandQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.commands) == 0
}

// Close signals that no more commands will be enqueued.
// Commands already queued are still handed out by TryDequeue.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
