package types

// InvokeRequest is the payload of POST /invoke.
type InvokeRequest struct {
	// Module identifier.
	// example: math.add
	Module string `json:"module" example:"math.add"`
	// Entry point name. Empty selects "invoke".
	// example: invoke
	Entry string `json:"entry,omitempty" example:"invoke"`
	// Positional arguments, passed to the entry point as JSON values.
	// example: [1,2]
	Args []any `json:"args,omitempty" swaggertype:"array,object"`
	// If true, run on the worker pool instead of the request goroutine.
	// example: false
	Async bool `json:"async,omitempty" example:"false"`
}

// InvokeResponse is returned by POST /invoke.
type InvokeResponse struct {
	// example: math.add
	Module string `json:"module" example:"math.add"`
	// example: invoke
	Entry string `json:"entry" example:"invoke"`
	// Result of the call as a JSON value.
	Result any `json:"result" swaggertype:"object"`
	// sync or async.
	// example: sync
	Mode string `json:"mode" example:"sync"`
	// Wall time of the request in milliseconds.
	// example: 3
	DurationMS int64 `json:"duration_ms" example:"3"`
}

// ModulesResponse wraps the list of modules returned by GET /modules.
type ModulesResponse struct {
	// List of available modules.
	Modules []Module `json:"modules"`
}

// InvocationsResponse is returned by GET /invocations.
type InvocationsResponse struct {
	Records []InvocationRecord `json:"records"`
	// Number of matching records in the journal.
	// example: 120
	Total int `json:"total" example:"120"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Runtime lifecycle state (idle, starting, running, stopping, stopped, failed).
	// example: running
	State string `json:"state" example:"running"`
	// Engine kind serving calls.
	// example: js
	Engine string `json:"engine" example:"js"`
	// Live leases on the runtime.
	// example: 1
	RefCount int64 `json:"ref_count" example:"1"`
	// Running worker goroutines.
	// example: 16
	Workers int `json:"workers" example:"16"`
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// example: 1024
	QueueCap int `json:"queue_cap" example:"1024"`
	// Whether the queue takes new tasks; false once shutdown has begun.
	Accepting bool `json:"accepting"`
	// Whether a runtime call is in progress.
	ExecLockHeld bool `json:"exec_lock_held"`
	// OS thread that created the runtime.
	// example: 4242
	LifecycleThread int `json:"lifecycle_thread" example:"4242"`
	// Resolved callables.
	Callables []Callable `json:"callables"`
	// example: 10
	TasksSubmitted uint64 `json:"tasks_submitted" example:"10"`
	// example: 9
	TasksCompleted uint64 `json:"tasks_completed" example:"9"`
	// example: 1
	TasksFailed uint64 `json:"tasks_failed" example:"1"`
	// example: 0
	TasksCancelled uint64 `json:"tasks_cancelled" example:"0"`
	// example: 0
	TasksRejected uint64 `json:"tasks_rejected" example:"0"`
	// Startup error, if the runtime failed.
	Error string `json:"error,omitempty"`
	// Uptime of the runtime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
