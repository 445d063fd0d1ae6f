// Package manager owns the lifetime of the single embedded runtime in a process
// and schedules calls into it. It is structured into small files by concern:
//
//   - scheduler.go: Scheduler, Shared/Configure/New, reference counting.
//   - lifecycle.go: the lifecycle goroutine (pinned OS thread) that creates and
//     destroys the runtime, and the shutdown drain.
//   - workers.go: the worker pool draining the task queue.
//   - manager.go: Manager leases and callable resolution (GetModule).
//   - handle.go: InvokeHandle and the Invoke/InvokeWith/QueueInvoke entry points.
//   - pending.go: Pending results of queued invocations.
//   - registry.go: the (module, entry) to callable cache.
//   - queue.go, task.go: the bounded task queue and its type-erased tasks.
//   - execlock.go: the process-wide execution lock.
//   - config.go: Config and package defaults.
//   - errors.go: error types and helpers (IsTooBusy, IsResolution, ...).
//   - events.go, metrics.go, logger.go: observability hooks.
//   - service.go, status_report.go: request/response adapter used by the HTTP
//     API and the CLI.
//
// Lock order is registry, then execution lock. Every call into the engine other
// than Start and Close holds the execution lock; Start and Close run on the
// lifecycle thread.
package manager
