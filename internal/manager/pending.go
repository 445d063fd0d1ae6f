package manager

import (
	"context"
	"sync"
)

// Pending is the result of a queued invocation. It completes exactly once,
// either with the post-processed value or with an error.
type Pending[R any] struct {
	done chan struct{}
	once sync.Once
	val  R
	err  error
}

func newPending[R any]() *Pending[R] { return &Pending[R]{done: make(chan struct{})} }

func failedPending[R any](err error) *Pending[R] {
	p := newPending[R]()
	var zero R
	p.complete(zero, err)
	return p
}

func (p *Pending[R]) complete(v R, err error) bool {
	ok := false
	p.once.Do(func() {
		p.val, p.err = v, err
		close(p.done)
		ok = true
	})
	return ok
}

// Done is closed once the result is available.
func (p *Pending[R]) Done() <-chan struct{} { return p.done }

// Ready reports whether the result is available without blocking.
func (p *Pending[R]) Ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Get blocks until the result is available.
func (p *Pending[R]) Get() (R, error) {
	<-p.done
	return p.val, p.err
}

// Wait blocks until the result is available or ctx is done. A cancelled wait
// does not cancel the task; it still runs and its result is kept.
func (p *Pending[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
