package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler owns the single embedded runtime of a process: its lifetime, the
// callable registry, the task queue and the worker pool. The runtime is started
// when the first Manager is acquired and torn down when the last lease (Manager
// or InvokeHandle) is released. A Scheduler runs at most one runtime lifetime.
type Scheduler struct {
	cfg Config

	refs          atomic.Int64
	phase         atomic.Int32
	workersActive atomic.Bool
	liveWorkers   atomic.Int32
	threadID      atomic.Int64
	drainDeadline atomic.Int64
	// drainDiscarded counts tasks workers discarded after the drain deadline.
	drainDiscarded atomic.Int64

	exec  execLock
	reg   *registry
	queue *taskQueue

	// engine is written by the lifecycle goroutine before ready is closed and
	// only read after ready.
	engine Engine

	ready    chan struct{}
	stopReq  chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	initErr   error
	drainErr  error
	startedAt time.Time

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
	rejected  atomic.Uint64
}

// New returns an isolated Scheduler. Most programs use Shared instead.
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:     cfg,
		reg:     newRegistry(),
		queue:   newTaskQueue(cfg.QueueDepth),
		ready:   make(chan struct{}),
		stopReq: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

var (
	sharedMu  sync.Mutex
	sharedCfg Config
	shared    *Scheduler
)

// Configure sets the configuration of the process-wide Scheduler. It must be
// called before the first call to Shared; later calls return false and have no
// effect.
func Configure(cfg Config) bool {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		return false
	}
	sharedCfg = cfg
	return true
}

// Shared returns the process-wide Scheduler, creating it on first use.
func Shared() *Scheduler {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = New(sharedCfg)
	}
	return shared
}

// Acquire returns a Manager lease, starting the runtime if this is the first
// live lease. It blocks until the runtime is initialized or ctx is done. Once
// the runtime has been torn down every Acquire fails with ReinitializationError.
func (s *Scheduler) Acquire(ctx context.Context) (*Manager, error) {
	if err := s.retain(); err != nil {
		return nil, err
	}
	select {
	case <-s.ready:
	case <-ctx.Done():
		_ = s.release()
		return nil, ctx.Err()
	}
	if s.initErr != nil {
		_ = s.release()
		return nil, s.initErr
	}
	return &Manager{s: s}, nil
}

// retain adds a reference. The 0 to 1 transition from idle starts the one and
// only lifecycle goroutine.
func (s *Scheduler) retain() error {
	for {
		switch phase(s.phase.Load()) {
		case phaseStopping, phaseStopped:
			return ReinitializationError{}
		case phaseFailed:
			return s.initErr
		}
		n := s.refs.Load()
		if !s.refs.CompareAndSwap(n, n+1) {
			continue
		}
		if n > 0 {
			return nil
		}
		if s.phase.CompareAndSwap(int32(phaseIdle), int32(phaseStarting)) {
			go s.lifecycle()
			return nil
		}
		// The count reached zero after an earlier lifetime began; that
		// lifetime is ending and cannot be revived.
		s.refs.Add(-1)
		if phase(s.phase.Load()) == phaseFailed {
			return s.initErr
		}
		return ReinitializationError{}
	}
}

// release drops a reference. The 1 to 0 transition requests shutdown and joins
// the lifecycle goroutine, returning a DrainTimeoutError if queued tasks had to
// be discarded.
func (s *Scheduler) release() error {
	n := s.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic("manager: reference count underflow")
	}
	s.stopOnce.Do(func() {
		s.phase.CompareAndSwap(int32(phaseStarting), int32(phaseStopping))
		s.phase.CompareAndSwap(int32(phaseRunning), int32(phaseStopping))
		close(s.stopReq)
	})
	<-s.stopped
	return s.drainErr
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return phase(s.phase.Load()).state() }

// Ready reports whether the runtime is up and accepting work.
func (s *Scheduler) Ready() bool { return phase(s.phase.Load()) == phaseRunning }

// RefCount returns the number of live leases.
func (s *Scheduler) RefCount() int64 { return s.refs.Load() }

// Snapshot returns a read-only view of the scheduler state.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		State:           s.State(),
		RefCount:        s.refs.Load(),
		Workers:         int(s.liveWorkers.Load()),
		QueueLen:        s.queue.Len(),
		QueueCap:        s.queue.Cap(),
		Accepting:       s.workersActive.Load() && !s.queue.Closed(),
		ExecLockHeld:    s.exec.Held(),
		LifecycleThread: int(s.threadID.Load()),
		Callables:       s.reg.list(),
		Submitted:       s.submitted.Load(),
		Completed:       s.completed.Load(),
		Failed:          s.failed.Load(),
		Cancelled:       s.cancelled.Load(),
		Rejected:        s.rejected.Load(),
	}
	if phase(s.phase.Load()) == phaseFailed && s.initErr != nil {
		snap.Err = s.initErr.Error()
	}
	return snap
}

// Uptime returns how long the runtime has been running, or zero.
func (s *Scheduler) Uptime() time.Duration {
	if !s.Ready() {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *Scheduler) publish(e Event) { s.cfg.Publisher.Publish(e) }
