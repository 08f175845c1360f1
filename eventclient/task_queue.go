package eventclient

import (
	"context"
	"sync"
)

// task is a unit of work enqueued onto the control goroutine. Handlers are
// expected to be non-blocking and may enqueue follow-up tasks, but must
// never call enqueue synchronously from within their own execution (no
// reentrancy, per spec.md §4.1) — enforced here structurally, since a
// handler only ever sees the taskQueue's enqueue method, which always
// posts to the channel rather than running inline.
type task func()

// taskQueue is the single-producer(s)/single-consumer dispatcher described
// in spec.md §4.1. Multiple goroutines (user calls, the transport read
// loop, the ticker) may enqueue; only run's goroutine ever dequeues and
// executes, preserving FIFO order and single-writer state mutation (I2).
type taskQueue struct {
	tasks chan task

	mu     sync.Mutex
	closed bool
}

// newTaskQueue returns a queue with the given buffer size.
func newTaskQueue(buffer int) *taskQueue {
	if buffer <= 0 {
		buffer = 1024
	}
	return &taskQueue{tasks: make(chan task, buffer)}
}

// enqueue posts fn for execution on the control goroutine. It never runs fn
// inline, even if called from the control goroutine itself. Reports false,
// without running fn, once run has stopped draining — callers that would
// otherwise block forever (or leak a Future no one will ever complete) must
// check this and fail the caller synchronously instead. The mutex makes
// "accepted" and "will run" the same guarantee: run only ever flips closed
// while holding it, after draining everything already queued.
func (q *taskQueue) enqueue(fn task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks <- fn
	return true
}

// run drains the queue on the calling goroutine until ctx is cancelled.
// This goroutine is the sole owner of engine state (I2).
func (q *taskQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.shutdown()
			return
		case fn := <-q.tasks:
			fn()
		}
	}
}

// shutdown drains whatever was already accepted into tasks before marking
// the queue closed, so no enqueue call that returned true is ever silently
// dropped.
func (q *taskQueue) shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case fn := <-q.tasks:
			fn()
		default:
			q.closed = true
			return
		}
	}
}
