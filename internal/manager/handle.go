package manager

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"scriptd/internal/convert"
)

// InvokeHandle calls one resolved entry point. It owns a lease on the runtime
// and must be closed when no longer needed.
type InvokeHandle struct {
	id     int
	module string
	entry  string
	lease  *Manager
	closed atomic.Bool
}

// ID returns the registry id of the callable.
func (h *InvokeHandle) ID() int { return h.id }

// Module returns the module id the handle was resolved from.
func (h *InvokeHandle) Module() string { return h.module }

// Entry returns the entry point name.
func (h *InvokeHandle) Entry() string { return h.entry }

// Close releases the handle's lease. Closing the last lease tears the runtime
// down; see Manager.Close.
func (h *InvokeHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.lease.Close()
}

func (h *InvokeHandle) scheduler() (*Scheduler, error) {
	if h == nil || h.closed.Load() {
		return nil, ErrHandleClosed
	}
	return h.lease.s, nil
}

// Convert is the default post-processing step: it decodes a runtime value into T.
func Convert[T any](v Value) (T, error) {
	var out T
	if v == nil {
		return out, &TypeConversionError{Target: convert.TypeName(&out), Err: errors.New("no value")}
	}
	if err := v.Decode(&out); err != nil {
		var tc *TypeConversionError
		if errors.As(err, &tc) {
			return out, err
		}
		return out, &TypeConversionError{Target: convert.TypeName(&out), Err: err}
	}
	return out, nil
}

// Invoke calls the entry point on the calling goroutine and converts the
// result to T.
func Invoke[T any](h *InvokeHandle, args ...any) (T, error) {
	return InvokeWith(h, Convert[T], args...)
}

// InvokeWith calls the entry point on the calling goroutine and passes the raw
// result to post while the execution lock is still held.
func InvokeWith[R any](h *InvokeHandle, post func(Value) (R, error), args ...any) (R, error) {
	var zero R
	s, err := h.scheduler()
	if err != nil {
		return zero, err
	}
	s.submitted.Add(1)
	out, err := call(s, h.id, post, args, "sync")
	s.finish(h.module, h.entry, "", "sync", err)
	return out, err
}

// QueueInvoke packages the call as a task for the worker pool and returns
// immediately. post runs on the worker under the execution lock. Submission
// failures (full queue, shutdown, closed handle) come back as an already
// completed Pending.
func QueueInvoke[R any](h *InvokeHandle, post func(Value) (R, error), args ...any) *Pending[R] {
	s, err := h.scheduler()
	if err != nil {
		return failedPending[R](err)
	}
	if escapes[R]() {
		return failedPending[R](fmt.Errorf("%w: %s", ErrValueEscape, reflect.TypeFor[R]()))
	}
	if post == nil {
		return failedPending[R](errors.New("nil post-processing function"))
	}
	args = append([]any(nil), args...)
	p := newPending[R]()
	id, module, entry := h.id, h.module, h.entry
	var t *Task
	t = newTask(module, entry,
		func() {
			out, err := call(s, id, post, args, "async")
			if err == nil && holdsValue(out) {
				err = fmt.Errorf("%w: %T", ErrValueEscape, any(out))
				out = *new(R)
			}
			s.finish(module, entry, t.ID, "async", err)
			p.complete(out, err)
		},
		func(err error) {
			var zero R
			p.complete(zero, err)
		},
	)
	t.Enqueued = time.Now()
	if err := s.queue.Push(t); err != nil {
		s.rejected.Add(1)
		metricTasks.WithLabelValues("rejected").Inc()
		return failedPending[R](err)
	}
	s.submitted.Add(1)
	return p
}

// QueueInvokeAs is QueueInvoke with the default conversion to T.
func QueueInvokeAs[T any](h *InvokeHandle, args ...any) *Pending[T] {
	return QueueInvoke(h, Convert[T], args...)
}

// call looks up callable id and runs it under the execution lock. The registry
// is read before the lock is taken to keep the registry-then-exec lock order.
// The runtime value is released before the lock is, and a panic in the runtime
// or in post becomes an error.
func call[R any](s *Scheduler, id int, post func(Value) (R, error), args []any, mode string) (out R, err error) {
	fn, ok := s.reg.callable(id)
	if !ok {
		return out, fmt.Errorf("callable %d: %w", id, ErrShuttingDown)
	}
	s.exec.Lock()
	start := time.Now()
	defer func() {
		metricCallDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		s.exec.Unlock()
	}()
	defer recoverInto(&err)

	v, err := s.engine.Call(fn, args...)
	if err != nil {
		return out, err
	}
	defer v.Release()
	return post(v)
}

func (s *Scheduler) finish(module, entry, taskID, mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.failed.Add(1)
	} else {
		s.completed.Add(1)
	}
	metricTasks.WithLabelValues(outcome).Inc()
	fields := map[string]any{"mode": mode, "outcome": outcome}
	if taskID != "" {
		fields["task"] = taskID
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.publish(Event{Name: EventTaskDone, Module: module, Entry: entry, Fields: fields})
}

var valueType = reflect.TypeFor[Value]()

// escapes reports whether R is statically a runtime value. Interface types
// such as any are checked per result by holdsValue.
func escapes[R any]() bool {
	t := reflect.TypeFor[R]()
	return t == valueType || t.Implements(valueType)
}

// holdsValue reports whether a post-processing result is a runtime value
// smuggled through an interface type.
func holdsValue(out any) bool {
	_, ok := out.(Value)
	return ok
}
