package manager

import (
	"time"

	"scriptd/pkg/types"
)

// Status builds the response for /status.
func (s *Scheduler) Status() types.StatusResponse {
	snap := s.Snapshot()
	resp := types.StatusResponse{
		State:           string(snap.State),
		RefCount:        snap.RefCount,
		Workers:         snap.Workers,
		QueueLen:        snap.QueueLen,
		QueueCap:        snap.QueueCap,
		Accepting:       snap.Accepting,
		ExecLockHeld:    snap.ExecLockHeld,
		LifecycleThread: snap.LifecycleThread,
		TasksSubmitted:  snap.Submitted,
		TasksCompleted:  snap.Completed,
		TasksFailed:     snap.Failed,
		TasksCancelled:  snap.Cancelled,
		TasksRejected:   snap.Rejected,
		Error:           snap.Err,
		UptimeSeconds:   int64(s.Uptime() / time.Second),
		ServerTimeUnix:  time.Now().Unix(),
	}
	resp.Callables = make([]types.Callable, 0, len(snap.Callables))
	for _, c := range snap.Callables {
		resp.Callables = append(resp.Callables, types.Callable{ID: c.ID, Module: c.Module, Entry: c.Entry})
	}
	return resp
}
