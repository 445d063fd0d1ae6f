package manager

import (
	"sort"
	"sync"
)

// resolver is the runtime side of a registry miss. Both methods are invoked
// with the registry write lock held and take the execution lock themselves,
// so the lock order is always registry then execution.
type resolver interface {
	importModule(moduleID string) (Module, error)
	resolveEntry(mod Module, moduleID, entry string) (Callable, error)
}

type moduleEntry struct {
	module  Module
	entries map[string]int
}

type callableEntry struct {
	module string
	entry  string
	fn     Callable
}

// registry maps (module, entry) to a stable integer id and owns the resolved
// callables. Ids index an append-only table and are never reused.
type registry struct {
	mu      sync.RWMutex
	modules map[string]*moduleEntry
	table   []callableEntry
}

func newRegistry() *registry {
	return &registry{modules: make(map[string]*moduleEntry)}
}

func (r *registry) lookup(moduleID, entry string) (int, Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(moduleID, entry)
}

func (r *registry) lookupLocked(moduleID, entry string) (int, Callable, bool) {
	me, ok := r.modules[moduleID]
	if !ok {
		return 0, nil, false
	}
	id, ok := me.entries[entry]
	if !ok {
		return 0, nil, false
	}
	return id, r.table[id].fn, true
}

// resolve returns the id and callable for (moduleID, entry), importing and
// resolving through res on a miss. created reports whether this call inserted
// the entry. Nothing is cached when resolution fails, including a module that
// imported fine but lacked the entry point.
func (r *registry) resolve(moduleID, entry string, res resolver) (id int, fn Callable, created bool, err error) {
	if id, fn, ok := r.lookup(moduleID, entry); ok {
		return id, fn, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, fn, ok := r.lookupLocked(moduleID, entry); ok {
		return id, fn, false, nil
	}

	me := r.modules[moduleID]
	var mod Module
	if me != nil {
		mod = me.module
	} else {
		mod, err = res.importModule(moduleID)
		if err != nil {
			return 0, nil, false, &ModuleResolutionError{Module: moduleID, Err: err}
		}
	}
	fn, err = res.resolveEntry(mod, moduleID, entry)
	if err != nil {
		return 0, nil, false, &EntryPointResolutionError{Module: moduleID, Entry: entry, Err: err}
	}
	if me == nil {
		me = &moduleEntry{module: mod, entries: make(map[string]int)}
		r.modules[moduleID] = me
	}
	id = len(r.table)
	r.table = append(r.table, callableEntry{module: moduleID, entry: entry, fn: fn})
	me.entries[entry] = id
	metricCallables.Inc()
	return id, fn, true, nil
}

// callable returns the callable stored under id.
func (r *registry) callable(id int) (Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.table) {
		return nil, false
	}
	return r.table[id].fn, true
}

// list returns the registry entries ordered by id.
func (r *registry) list() []CallableInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CallableInfo, 0, len(r.table))
	for id, e := range r.table {
		out = append(out, CallableInfo{ID: id, Module: e.module, Entry: e.entry})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.table)
}

// clear drops every cached module and callable. Called on the lifecycle
// thread before the runtime is destroyed.
func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	metricCallables.Sub(float64(len(r.table)))
	r.modules = make(map[string]*moduleEntry)
	r.table = nil
}
