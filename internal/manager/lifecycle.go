package manager

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// lifecycle runs on its own locked OS thread for the whole runtime lifetime:
// it creates the engine, starts the workers, waits for the last release and
// then tears everything down on the same thread.
func (s *Scheduler) lifecycle() {
	defer close(s.stopped)
	// Never unlocked: the thread is discarded when this goroutine returns.
	runtime.LockOSThread()

	tid := currentThreadID()
	s.threadID.Store(int64(tid))
	log := zlog.With().Int("thread", tid).Logger()
	log.Info().Int("workers", s.cfg.Workers).Int("queue_depth", s.cfg.QueueDepth).Msg("starting runtime")
	s.publish(Event{Name: EventRuntimeStarting, Fields: map[string]any{"thread": tid}})

	ctx := context.Background()
	eng, err := s.startEngine(ctx)
	if err != nil {
		s.initErr = err
		s.phase.Store(int32(phaseFailed))
		close(s.ready)
		metricLifecycle.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("runtime failed to start")
		s.publish(Event{Name: EventRuntimeFailed, Fields: map[string]any{"error": err.Error()}})
		return
	}

	s.engine = eng
	s.startedAt = time.Now()
	s.workersActive.Store(true)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(i, &wg)
	}
	s.phase.CompareAndSwap(int32(phaseStarting), int32(phaseRunning))
	close(s.ready)
	metricLifecycle.WithLabelValues("started").Inc()
	log.Info().Msg("runtime ready")
	s.publish(Event{Name: EventRuntimeReady, Fields: map[string]any{"thread": tid}})

	<-s.stopReq

	log.Info().Int("queued", s.queue.Len()).Dur("drain_timeout", s.cfg.DrainTimeout).Msg("stopping runtime")
	s.publish(Event{Name: EventRuntimeStopping, Fields: map[string]any{"queued": s.queue.Len()}})
	s.queue.Close()
	s.drainDeadline.Store(time.Now().Add(s.cfg.DrainTimeout).UnixNano())
	s.workersActive.Store(false)
	wg.Wait()

	if got := currentThreadID(); got != tid {
		panic(fmt.Sprintf("manager: runtime torn down on thread %d, created on thread %d", got, tid))
	}
	s.exec.Lock()
	err = eng.Close(ctx)
	s.exec.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("engine close")
	}
	s.reg.clear()

	discarded := s.discardQueued(ErrCancelled)
	discarded += int(s.drainDiscarded.Load())
	if discarded > 0 {
		s.drainErr = &DrainTimeoutError{Discarded: discarded, Timeout: s.cfg.DrainTimeout}
		log.Warn().Int("discarded", discarded).Msg("drain timed out")
	}
	s.phase.Store(int32(phaseStopped))
	metricLifecycle.WithLabelValues("stopped").Inc()
	log.Info().Msg("runtime stopped")
	s.publish(Event{Name: EventRuntimeStopped, Fields: map[string]any{"discarded": discarded}})
}

func (s *Scheduler) startEngine(ctx context.Context) (eng Engine, err error) {
	if s.cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	defer func() {
		if r := recover(); r != nil {
			eng, err = nil, fmt.Errorf("start engine: %w", panicError{v: r})
		}
	}()
	eng, err = s.cfg.Engine()
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}
	return eng, nil
}

// discardQueued completes every task still in the queue with err without
// running it.
func (s *Scheduler) discardQueued(err error) int {
	n := 0
	for {
		t, ok := s.queue.TryPop()
		if !ok {
			return n
		}
		if s.discardTask(t, err) {
			n++
		}
	}
}

func (s *Scheduler) discardTask(t *Task, err error) bool {
	if !t.Discard(err) {
		return false
	}
	s.cancelled.Add(1)
	metricTasks.WithLabelValues("cancelled").Inc()
	s.publish(Event{Name: EventTaskDiscarded, Module: t.Module, Entry: t.Entry, Fields: map[string]any{"task": t.ID}})
	return true
}

func (s *Scheduler) drainExpired() bool {
	d := s.drainDeadline.Load()
	return d != 0 && time.Now().UnixNano() >= d
}
