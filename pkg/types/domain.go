package types

// Module represents a discoverable script module on disk.
type Module struct {
	// Stable identifier used to import the module (dots separate directories).
	// example: math.add
	ID string `json:"id" example:"math.add"`
	// Engine kind serving the module (js, wasm or llama).
	// example: js
	Kind string `json:"kind" example:"js"`
	// Absolute path to the module file on disk.
	// example: /srv/scriptd/modules/math/add.js
	Path string `json:"path" example:"/srv/scriptd/modules/math/add.js"`
	// File size in bytes.
	// example: 512
	Size int64 `json:"size" example:"512"`
}

// Callable is a resolved (module, entry point) pair held by the runtime.
type Callable struct {
	// Registry id, stable for the lifetime of the runtime.
	// example: 0
	ID int `json:"id" example:"0"`
	// example: math.add
	Module string `json:"module" example:"math.add"`
	// example: invoke
	Entry string `json:"entry" example:"invoke"`
}

// InvocationRecord is one journaled event about the runtime or a task.
type InvocationRecord struct {
	// example: 01HZX3J1W7Q2C4M2Y5T8K9B0AA
	ID string `json:"id" example:"01HZX3J1W7Q2C4M2Y5T8K9B0AA"`
	// Event name (task_done, task_discarded, runtime_ready, ...).
	// example: task_done
	Event  string `json:"event" example:"task_done"`
	Module string `json:"module,omitempty"`
	Entry  string `json:"entry,omitempty"`
	// sync or async, for task events.
	Mode string `json:"mode,omitempty"`
	// ok, error or cancelled, for task events.
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
	// Unix milliseconds.
	// example: 1700000000000
	TimeUnixMS int64 `json:"time_unix_ms" example:"1700000000000"`
}
