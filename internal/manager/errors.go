package manager

import (
	"errors"
	"fmt"
	"time"

	"scriptd/internal/engine"
)

var (
	// ErrCancelled completes tasks that were still queued when the runtime shut down.
	ErrCancelled = errors.New("task cancelled: runtime shut down before it ran")
	// ErrQueueFull is returned when the task queue has no free slot.
	ErrQueueFull = errors.New("task queue full")
	// ErrShuttingDown is returned when work is submitted after shutdown began.
	ErrShuttingDown = errors.New("runtime is shutting down")
	// ErrHandleClosed is returned when an InvokeHandle is used after Close.
	ErrHandleClosed = errors.New("invoke handle closed")
	// ErrValueEscape rejects queued invocations whose result type would carry a
	// runtime value out of the execution lock.
	ErrValueEscape = errors.New("queued result type must not be a runtime value")
	// ErrNoEngine is returned by Acquire when no engine factory was configured.
	ErrNoEngine = errors.New("no engine configured")
)

// ModuleResolutionError reports that a module could not be imported.
type ModuleResolutionError struct {
	Module string
	Err    error
}

func (e *ModuleResolutionError) Error() string {
	return fmt.Sprintf("could not import module: %s: %v", e.Module, e.Err)
}

func (e *ModuleResolutionError) Unwrap() error { return e.Err }

// EntryPointResolutionError reports a missing entry point on an imported module.
type EntryPointResolutionError struct {
	Module string
	Entry  string
	Err    error
}

func (e *EntryPointResolutionError) Error() string {
	return fmt.Sprintf("could not find the '%s' method in module %s: %v", e.Entry, e.Module, e.Err)
}

func (e *EntryPointResolutionError) Unwrap() error { return e.Err }

// TypeConversionError reports that a runtime value could not be converted to
// the requested Go type.
type TypeConversionError struct {
	Target string
	Err    error
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("cannot convert result to %s: %v", e.Target, e.Err)
}

func (e *TypeConversionError) Unwrap() error { return e.Err }

// ReinitializationError is returned by Acquire once the runtime has been torn
// down. A process gets exactly one runtime lifetime.
type ReinitializationError struct{}

func (ReinitializationError) Error() string {
	return "cannot reinitialize runtime once it has been shut down"
}

// IsReinitialization reports whether err is a ReinitializationError.
func IsReinitialization(err error) bool {
	var r ReinitializationError
	return errors.As(err, &r)
}

// DrainTimeoutError is returned by the final Close when queued tasks were still
// pending after the drain deadline and had to be discarded. Teardown itself
// completed.
type DrainTimeoutError struct {
	Discarded int
	Timeout   time.Duration
}

func (e *DrainTimeoutError) Error() string {
	return fmt.Sprintf("shutdown drain timed out after %s: %d queued task(s) cancelled", e.Timeout, e.Discarded)
}

func (e *DrainTimeoutError) Is(target error) bool { return target == ErrCancelled }

// panicError wraps a panic recovered from a runtime call or post-processing.
type panicError struct{ v any }

func (e panicError) Error() string { return fmt.Sprintf("invocation panicked: %v", e.v) }

// ErrDependencyUnavailable wraps engine.ErrUnavailable with a message so the
// HTTP layer can answer 503 instead of 500.
func ErrDependencyUnavailable(msg string) error {
	return fmt.Errorf("%s: %w", msg, engine.ErrUnavailable)
}

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	return errors.Is(err, engine.ErrUnavailable) || errors.Is(err, ErrNoEngine)
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool { return errors.Is(err, ErrQueueFull) }

// IsResolution reports whether err is a module or entry point resolution failure.
func IsResolution(err error) bool {
	var m *ModuleResolutionError
	var e *EntryPointResolutionError
	return errors.As(err, &m) || errors.As(err, &e)
}

// IsConversion reports whether err is a result conversion failure.
func IsConversion(err error) bool {
	var c *TypeConversionError
	return errors.As(err, &c)
}

// IsUnavailable reports whether err means the runtime cannot take work right now
// or ever again.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrShuttingDown) || errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrHandleClosed) || IsReinitialization(err) ||
		IsDependencyUnavailable(err)
}
