package main

import (
	"fmt"

	"scriptd/internal/common/fsutil"
	"scriptd/internal/engine/jsengine"
	"scriptd/internal/engine/llamaengine"
	"scriptd/internal/engine/wasmengine"
	"scriptd/internal/httpapi"
	"scriptd/internal/manager"
	"scriptd/internal/registry"
	"scriptd/pkg/types"
)

// engineFactory selects the runtime for the configured engine kind.
func (o *rootOptions) engineFactory() (manager.EngineFactory, error) {
	dir, err := fsutil.ExpandHome(o.cfg.ModulesDir)
	if err != nil {
		return nil, err
	}
	if !fsutil.PathExists(dir) {
		o.log.Warn().Str("dir", dir).Msg("modules directory does not exist")
	}
	switch o.cfg.Engine {
	case "", "js":
		return jsengine.Factory(jsengine.Options{Dir: dir, Logger: &o.log}), nil
	case "wasm":
		wasmengine.SetLogger(newZapLogger(o.log.GetLevel(), o.logOut()))
		return wasmengine.Factory(wasmengine.Options{Dir: dir, MemoryLimitPages: uint32(o.cfg.MemoryLimitPages)}), nil
	case "llama":
		return llamaengine.Factory(llamaengine.Options{
			Dir:         dir,
			ContextSize: o.cfg.LlamaContext,
			Threads:     o.cfg.LlamaThreads,
		}), nil
	}
	return nil, fmt.Errorf("unknown engine %q", o.cfg.Engine)
}

func (o *rootOptions) engineKind() string {
	if o.cfg.Engine == "" {
		return "js"
	}
	return o.cfg.Engine
}

// lister enumerates modules of the active engine kind.
func (o *rootOptions) lister() manager.ModuleLister {
	return func() ([]types.Module, error) {
		return registry.LoadDir(o.cfg.ModulesDir, o.engineKind())
	}
}

// newScheduler builds the scheduler from the resolved configuration.
func (o *rootOptions) newScheduler(pub manager.EventPublisher) (*manager.Scheduler, error) {
	factory, err := o.engineFactory()
	if err != nil {
		return nil, err
	}
	dequeue, err := o.cfg.DequeueTimeoutDuration()
	if err != nil {
		return nil, err
	}
	drain, err := o.cfg.DrainTimeoutDuration()
	if err != nil {
		return nil, err
	}
	manager.SetLogger(o.log)
	httpapi.SetLogger(o.log)
	return o.scheduler(manager.Config{
		Engine:         factory,
		Workers:        o.cfg.Workers,
		QueueDepth:     o.cfg.QueueDepth,
		DequeueTimeout: dequeue,
		DrainTimeout:   drain,
		Publisher:      pub,
	}), nil
}
