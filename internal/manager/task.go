package manager

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	taskPending int32 = iota
	taskClaimed
)

// Task is a single queued invocation. It carries two type-erased closures:
// run executes the call and completes the caller's pending result, discard
// completes the pending result with an error without touching the runtime.
// Exactly one of them takes effect.
type Task struct {
	ID       string
	Module   string
	Entry    string
	Enqueued time.Time

	state   atomic.Int32
	run     func()
	discard func(error)
}

func newTask(module, entry string, run func(), discard func(error)) *Task {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Task{ID: id.String(), Module: module, Entry: entry, run: run, discard: discard}
}

// Run executes the task. It reports false if the task was already run or discarded.
func (t *Task) Run() bool {
	if !t.state.CompareAndSwap(taskPending, taskClaimed) {
		return false
	}
	run := t.run
	t.run, t.discard = nil, nil
	run()
	return true
}

// Discard completes the task with err instead of running it. It reports false
// if the task was already run or discarded.
func (t *Task) Discard(err error) bool {
	if !t.state.CompareAndSwap(taskPending, taskClaimed) {
		return false
	}
	discard := t.discard
	t.run, t.discard = nil, nil
	discard(err)
	return true
}
