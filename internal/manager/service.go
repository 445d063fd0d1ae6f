package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"scriptd/pkg/types"
)

// ModuleLister enumerates modules available to the engine.
type ModuleLister func() ([]types.Module, error)

// Service adapts a Scheduler to request/response callers such as the HTTP API
// and the CLI. It holds one lease for its lifetime and caches one handle per
// (module, entry) pair.
type Service struct {
	sched  *Scheduler
	lease  *Manager
	engine string
	list   ModuleLister

	mu      sync.Mutex
	handles map[handleKey]*InvokeHandle
	closed  bool
}

type handleKey struct{ module, entry string }

// NewService acquires a lease on sched. engineKind is reported in Status.
func NewService(ctx context.Context, sched *Scheduler, engineKind string, list ModuleLister) (*Service, error) {
	lease, err := sched.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Service{
		sched:   sched,
		lease:   lease,
		engine:  engineKind,
		list:    list,
		handles: make(map[handleKey]*InvokeHandle),
	}, nil
}

// Ready reports whether the runtime accepts work.
func (s *Service) Ready() bool { return s.sched.Ready() }

// ListModules returns the modules found on disk.
func (s *Service) ListModules() ([]types.Module, error) {
	if s.list == nil {
		return []types.Module{}, nil
	}
	return s.list()
}

// Status returns the runtime status.
func (s *Service) Status() types.StatusResponse {
	st := s.sched.Status()
	st.Engine = s.engine
	return st
}

// Invoke runs one call described by req and returns a JSON-native result.
func (s *Service) Invoke(ctx context.Context, req types.InvokeRequest) (types.InvokeResponse, error) {
	start := time.Now()
	h, err := s.handle(req.Module, req.Entry)
	if err != nil {
		return types.InvokeResponse{}, err
	}
	resp := types.InvokeResponse{Module: h.Module(), Entry: h.Entry(), Mode: "sync"}
	var out any
	if req.Async {
		resp.Mode = "async"
		out, err = QueueInvokeAs[any](h, req.Args...).Wait(ctx)
	} else {
		out, err = Invoke[any](h, req.Args...)
	}
	if err != nil {
		return types.InvokeResponse{}, err
	}
	resp.Result = out
	resp.DurationMS = time.Since(start).Milliseconds()
	return resp, nil
}

func (s *Service) handle(module, entry string) (*InvokeHandle, error) {
	if entry == "" {
		entry = DefaultEntryPoint
	}
	key := handleKey{module, entry}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrHandleClosed
	}
	if h, ok := s.handles[key]; ok {
		return h, nil
	}
	h, err := s.lease.GetModule(module, entry)
	if err != nil {
		return nil, err
	}
	s.handles[key] = h
	return h, nil
}

// Close releases every cached handle and the service lease. If this was the
// last lease the runtime is torn down and any drain error is returned.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.lease.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
