// Package engine defines the boundary between the scheduling layer and an
// embedded, single-threaded runtime. Implementations live in subpackages
// (jsengine, wasmengine, llamaengine).
//
// An Engine is created and closed on one dedicated OS thread. Every other
// method runs while the caller holds the process-wide execution lock, so
// implementations need no locking of their own.
package engine

import (
	"context"
	"errors"
)

// Module is an opaque handle to an imported module.
type Module any

// Callable is an opaque handle to a resolved entry point.
type Callable any

// Value is a result produced by a call into the runtime. It is only valid while
// the execution lock is held; post-processing must convert it to a Go value
// before the lock is released.
type Value interface {
	// Decode stores the value into the Go variable pointed to by dst.
	Decode(dst any) error
	// Release frees runtime-owned resources held by the value.
	Release()
}

// Engine is an embedded runtime.
type Engine interface {
	// Start creates the runtime. Called once, on the lifecycle thread.
	Start(ctx context.Context) error
	// Close destroys the runtime. Called once, on the same thread as Start.
	Close(ctx context.Context) error
	// Import loads a module by identifier.
	Import(moduleID string) (Module, error)
	// Resolve looks up an entry point on an imported module.
	Resolve(mod Module, name string) (Callable, error)
	// Call invokes a callable. Arguments may be plain Go values or Values
	// previously produced by this engine.
	Call(fn Callable, args ...any) (Value, error)
}

// Factory builds an Engine. It is invoked on the lifecycle thread.
type Factory func() (Engine, error)

var (
	// ErrModuleNotFound is returned by Import when no module matches the id.
	ErrModuleNotFound = errors.New("module not found")
	// ErrEntryNotFound is returned by Resolve when the module has no such callable.
	ErrEntryNotFound = errors.New("entry point not found")
	// ErrNotStarted is returned when the engine is used before Start or after Close.
	ErrNotStarted = errors.New("engine not started")
	// ErrUnavailable marks a runtime that is missing from this build.
	ErrUnavailable = errors.New("runtime dependency unavailable")
)

// Native adapts an already-lowered Go value to Value. Engines whose calls
// produce plain Go values (numbers, strings, slices) use it as their result type.
type Native struct {
	V      any
	Free   func()
	Assign func(dst any, v any) error
}

// Decode implements Value.
func (n *Native) Decode(dst any) error { return n.Assign(dst, n.V) }

// Release implements Value.
func (n *Native) Release() {
	if n.Free != nil {
		n.Free()
		n.Free = nil
	}
	n.V = nil
}
