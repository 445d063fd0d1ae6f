package manager

import (
	"sync"
	"time"
)

// taskQueue is a bounded multi-producer multi-consumer queue of tasks.
// The channel itself is never closed; closing the queue only stops Push so
// that queued tasks stay available for draining.
type taskQueue struct {
	ch chan *Task

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newTaskQueue(depth int) *taskQueue {
	return &taskQueue{ch: make(chan *Task, depth), done: make(chan struct{})}
}

// Push enqueues t without blocking.
func (q *taskQueue) Push(t *Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrShuttingDown
	}
	select {
	case q.ch <- t:
		metricQueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// PopTimeout waits up to d for a task. Once the queue is closed it returns
// immediately when nothing is left.
func (q *taskQueue) PopTimeout(d time.Duration) (*Task, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case t := <-q.ch:
		metricQueueDepth.Dec()
		return t, true
	case <-q.done:
		return q.TryPop()
	case <-timer.C:
		return nil, false
	}
}

// TryPop dequeues a task if one is immediately available.
func (q *taskQueue) TryPop() (*Task, bool) {
	select {
	case t := <-q.ch:
		metricQueueDepth.Dec()
		return t, true
	default:
		return nil, false
	}
}

func (q *taskQueue) Len() int { return len(q.ch) }

func (q *taskQueue) Cap() int { return cap(q.ch) }

// Close stops accepting new tasks. Safe to call more than once.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Closed reports whether Close has been called.
func (q *taskQueue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
