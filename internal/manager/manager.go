package manager

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Manager is a lease on the runtime. While any Manager or InvokeHandle is open
// the runtime stays alive; closing the last one tears it down.
type Manager struct {
	s      *Scheduler
	closed atomic.Bool
}

// Scheduler returns the scheduler this lease belongs to.
func (m *Manager) Scheduler() *Scheduler { return m.s }

// Close releases the lease. Closing the last lease blocks until the runtime is
// torn down and returns a DrainTimeoutError if queued tasks were discarded.
// Close is idempotent.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.s.release()
}

// GetModule resolves entry on moduleID and returns a handle for calling it.
// An empty entry selects DefaultEntryPoint. The handle holds its own lease, so
// it stays valid after m is closed.
func (m *Manager) GetModule(moduleID, entry string) (*InvokeHandle, error) {
	if m.closed.Load() {
		return nil, ErrHandleClosed
	}
	moduleID = strings.TrimSpace(moduleID)
	if moduleID == "" {
		return nil, &ModuleResolutionError{Module: moduleID, Err: fmt.Errorf("empty module id")}
	}
	if entry == "" {
		entry = DefaultEntryPoint
	}
	s := m.s
	id, _, created, err := s.reg.resolve(moduleID, entry, s)
	if err != nil {
		zlog.Debug().Err(err).Str("module", moduleID).Str("entry", entry).Msg("resolve failed")
		s.publish(Event{Name: EventResolveFailed, Module: moduleID, Entry: entry, Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}
	if created {
		zlog.Debug().Int("id", id).Str("module", moduleID).Str("entry", entry).Msg("callable resolved")
		s.publish(Event{Name: EventResolved, Module: moduleID, Entry: entry, Fields: map[string]any{"id": id}})
	}
	if err := s.retain(); err != nil {
		return nil, err
	}
	return &InvokeHandle{id: id, module: moduleID, entry: entry, lease: &Manager{s: s}}, nil
}

// Snapshot returns the scheduler state.
func (m *Manager) Snapshot() Snapshot { return m.s.Snapshot() }

// Uptime returns how long the runtime has been running.
func (m *Manager) Uptime() time.Duration { return m.s.Uptime() }

// importModule and resolveEntry implement resolver. They run with the registry
// write lock held and take the execution lock around the runtime call.
func (s *Scheduler) importModule(moduleID string) (_ Module, err error) {
	s.exec.Lock()
	defer s.exec.Unlock()
	defer recoverInto(&err)
	return s.engine.Import(moduleID)
}

func (s *Scheduler) resolveEntry(mod Module, _ string, entry string) (_ Callable, err error) {
	s.exec.Lock()
	defer s.exec.Unlock()
	defer recoverInto(&err)
	return s.engine.Resolve(mod, entry)
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = panicError{v: r}
	}
}
