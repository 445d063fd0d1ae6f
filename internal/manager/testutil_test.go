package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scriptd/internal/convert"
	"scriptd/internal/engine"
)

type fakeFunc func(args []any) (any, error)

// fakeEngine is an in-memory engine used for tests. It records how often it
// was started, closed and asked to import or resolve, and flags any call that
// overlaps another or runs without the execution lock.
type fakeEngine struct {
	modules map[string]map[string]fakeFunc

	startErr   error
	startDelay time.Duration
	held       func() bool

	starts, closes     atomic.Int32
	imports, resolves  atomic.Int32
	calls              atomic.Int32
	inCall             atomic.Int32
	overlap, unlocked  atomic.Bool
	liveValues         atomic.Int32
	startTID, closeTID atomic.Int64
	closed             atomic.Bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{modules: map[string]map[string]fakeFunc{
		"math": {
			"add": func(args []any) (any, error) {
				var sum int64
				for _, a := range args {
					var n int64
					if err := convert.Assign(&n, a); err != nil {
						return nil, err
					}
					sum += n
				}
				return sum, nil
			},
			"invoke": func([]any) (any, error) { return "ok", nil },
			"fail":   func([]any) (any, error) { return nil, errors.New("script error") },
			"boom":   func([]any) (any, error) { panic("script panic") },
			"sleep": func(args []any) (any, error) {
				var ms int64
				if len(args) > 0 {
					_ = convert.Assign(&ms, args[0])
				}
				time.Sleep(time.Duration(ms) * time.Millisecond)
				return ms, nil
			},
		},
		"pkg.nested": {
			"invoke": func(args []any) (any, error) {
				return map[string]any{"n": float64(len(args)), "tag": "nested"}, nil
			},
		},
	}}
}

// with registers an extra entry point on module.
func (f *fakeEngine) with(module, entry string, fn fakeFunc) *fakeEngine {
	if f.modules[module] == nil {
		f.modules[module] = map[string]fakeFunc{}
	}
	f.modules[module][entry] = fn
	return f
}

func (f *fakeEngine) factory() EngineFactory {
	return func() (engine.Engine, error) { return f, nil }
}

func (f *fakeEngine) Start(ctx context.Context) error {
	f.starts.Add(1)
	f.startTID.Store(int64(currentThreadID()))
	if f.startDelay > 0 {
		time.Sleep(f.startDelay)
	}
	return f.startErr
}

func (f *fakeEngine) Close(ctx context.Context) error {
	f.closes.Add(1)
	f.closeTID.Store(int64(currentThreadID()))
	f.closed.Store(true)
	return nil
}

type fakeModule struct {
	name    string
	entries map[string]fakeFunc
}

func (f *fakeEngine) Import(moduleID string) (engine.Module, error) {
	f.imports.Add(1)
	f.checkLock()
	entries, ok := f.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", moduleID, engine.ErrModuleNotFound)
	}
	return &fakeModule{name: moduleID, entries: entries}, nil
}

func (f *fakeEngine) Resolve(mod engine.Module, name string) (engine.Callable, error) {
	f.resolves.Add(1)
	f.checkLock()
	fn, ok := mod.(*fakeModule).entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, engine.ErrEntryNotFound)
	}
	return fn, nil
}

func (f *fakeEngine) Call(c engine.Callable, args ...any) (engine.Value, error) {
	if f.inCall.Add(1) != 1 {
		f.overlap.Store(true)
	}
	defer f.inCall.Add(-1)
	f.checkLock()
	f.calls.Add(1)
	if f.closed.Load() {
		return nil, engine.ErrNotStarted
	}
	out, err := c.(fakeFunc)(args)
	if err != nil {
		return nil, err
	}
	f.liveValues.Add(1)
	return &engine.Native{V: out, Assign: convert.Assign, Free: func() { f.liveValues.Add(-1) }}, nil
}

func (f *fakeEngine) checkLock() {
	if f.held != nil && !f.held() {
		f.unlocked.Store(true)
	}
}

// newTestScheduler builds an isolated scheduler around f with fast timings.
func newTestScheduler(t *testing.T, f *fakeEngine, mut func(*Config)) (*Scheduler, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	cfg := Config{
		Engine:         f.factory(),
		Workers:        4,
		DequeueTimeout: 10 * time.Millisecond,
		DrainTimeout:   2 * time.Second,
		Publisher:      pub,
	}
	if mut != nil {
		mut(&cfg)
	}
	s := New(cfg)
	f.held = s.exec.Held
	return s, pub
}

// acquire returns a lease and registers a cleanup that closes it.
func acquire(t *testing.T, s *Scheduler) *Manager {
	t.Helper()
	m, err := s.Acquire(testCtx(t))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func getModule(t *testing.T, m *Manager, module, entry string) *InvokeHandle {
	t.Helper()
	h, err := m.GetModule(module, entry)
	if err != nil {
		t.Fatalf("GetModule(%s, %s): %v", module, entry, err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

var _ sync.Locker = (*execLock)(nil)
