//go:build linux

package reactor

import (
	"sync"
)

// pendingQueue hands closures from any goroutine to the reactor goroutine.
// Tasks run in the order they were posted, each exactly once.
type pendingQueue struct {
	mu     sync.Mutex
	tasks  []func()
	spare  []func()
	closed bool
	waker  *waker
}

func newPendingQueue(w *waker) *pendingQueue {
	return &pendingQueue{waker: w}
}

func (q *pendingQueue) post(task func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrLoopTerminated
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	return q.waker.wake()
}

// drain runs every task queued so far. Tasks posted while draining wait for
// the next call. The eventfd is reset before the swap, so a post that races
// with the swap always leaves the counter set for the next poll.
func (q *pendingQueue) drain() int {
	q.waker.drain()
	q.mu.Lock()
	var tasks = q.tasks
	q.tasks = q.spare[:0]
	q.mu.Unlock()
	for i, task := range tasks {
		tasks[i] = nil
		task()
	}
	q.spare = tasks[:0]
	return len(tasks)
}

// close refuses further posts and returns whatever is still queued.
func (q *pendingQueue) close() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	var tasks = q.tasks
	q.tasks = nil
	return tasks
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
