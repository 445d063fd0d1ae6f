package manager

import "sync"

// worker consumes the task queue until shutdown. While the runtime is active it
// keeps polling; once shutdown begins it keeps draining until the queue is
// empty or the drain deadline passes.
func (s *Scheduler) worker(n int, wg *sync.WaitGroup) {
	defer wg.Done()
	s.liveWorkers.Add(1)
	defer s.liveWorkers.Add(-1)
	log := zlog.With().Int("worker", n).Logger()
	for {
		if !s.workersActive.Load() && (s.queue.Len() == 0 || s.drainExpired()) {
			log.Debug().Msg("worker exit")
			return
		}
		t, ok := s.queue.PopTimeout(s.cfg.DequeueTimeout)
		if !ok {
			continue
		}
		if !s.workersActive.Load() && s.drainExpired() {
			if s.discardTask(t, ErrCancelled) {
				s.drainDiscarded.Add(1)
			}
			continue
		}
		t.Run()
	}
}
