package manager

// Event represents a runtime lifecycle or task event.
// Minimal and stable: name, module/entry labels and optional fields.
type Event struct {
	Name   string
	Module string
	Entry  string
	Fields map[string]any
}

// Event names published by the scheduler.
const (
	EventRuntimeStarting = "runtime_starting"
	EventRuntimeReady    = "runtime_ready"
	EventRuntimeFailed   = "runtime_failed"
	EventRuntimeStopping = "runtime_stopping"
	EventRuntimeStopped  = "runtime_stopped"
	EventResolved        = "callable_resolved"
	EventResolveFailed   = "callable_resolve_failed"
	EventTaskDone        = "task_done"
	EventTaskDiscarded   = "task_discarded"
)

// EventPublisher receives events from the scheduler. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
