// Package wasmengine runs WebAssembly modules with wazero. A module id maps to
// <dir>/<a/b>.wasm and an entry point is an exported function taking and
// returning numeric values. Modules may import WASI preview1.
package wasmengine

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"scriptd/internal/common/fsutil"
	"scriptd/internal/convert"
	"scriptd/internal/engine"
)

// Options configure an Engine.
type Options struct {
	// Dir is the modules directory.
	Dir string
	// MemoryLimitPages caps linear memory per module in 64KiB pages. 0 keeps
	// the wazero default.
	MemoryLimitPages uint32
}

// Engine is an engine.Engine backed by one wazero runtime.
type Engine struct {
	opts Options
	ctx  context.Context
	rt   wazero.Runtime
}

// New returns an engine for modules under opts.Dir.
func New(opts Options) *Engine { return &Engine{opts: opts} }

// Factory adapts New to engine.Factory.
func Factory(opts Options) engine.Factory {
	return func() (engine.Engine, error) { return New(opts), nil }
}

// Start creates the runtime and instantiates WASI.
func (e *Engine) Start(ctx context.Context) error {
	cfg := wazero.NewRuntimeConfig()
	if e.opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(e.opts.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("instantiate wasi: %w", err)
	}
	e.ctx, e.rt = ctx, rt
	Logger().Debug("runtime created", zap.String("dir", e.opts.Dir), zap.Uint32("memory_limit_pages", e.opts.MemoryLimitPages))
	return nil
}

// Close closes the runtime and every module instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	if e.rt == nil {
		return nil
	}
	err := e.rt.Close(ctx)
	e.rt = nil
	Logger().Debug("runtime closed")
	return err
}

// Import compiles and instantiates the module file.
func (e *Engine) Import(moduleID string) (engine.Module, error) {
	if e.rt == nil {
		return nil, engine.ErrNotStarted
	}
	path, err := fsutil.ModuleFile(e.opts.Dir, moduleID, ".wasm")
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, engine.ErrModuleNotFound)
	}
	bin, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, engine.ErrModuleNotFound)
		}
		return nil, fmt.Errorf("read module: %w", err)
	}
	compiled, err := e.rt.CompileModule(e.ctx, bin)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	// Reactor modules initialize through _initialize; command modules are
	// never started since their entry points are called directly.
	cfg := wazero.NewModuleConfig().WithName(moduleID).WithStartFunctions("_initialize")
	mod, err := e.rt.InstantiateModule(e.ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", path, err)
	}
	Logger().Debug("module instantiated", zap.String("module", moduleID), zap.String("path", path))
	return mod, nil
}

type function struct {
	name string
	fn   api.Function
}

// Resolve looks up an exported function.
func (e *Engine) Resolve(mod engine.Module, name string) (engine.Callable, error) {
	m, ok := mod.(api.Module)
	if !ok {
		return nil, fmt.Errorf("wasmengine: foreign module handle %T", mod)
	}
	fn := m.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("%s.%s: %w", m.Name(), name, engine.ErrEntryNotFound)
	}
	return &function{name: m.Name() + "." + name, fn: fn}, nil
}

// Call invokes the function. Arguments are converted to the declared parameter
// types; a single result decodes as a scalar, several as a slice.
func (e *Engine) Call(c engine.Callable, args ...any) (engine.Value, error) {
	if e.rt == nil {
		return nil, engine.ErrNotStarted
	}
	f, ok := c.(*function)
	if !ok {
		return nil, fmt.Errorf("wasmengine: foreign callable %T", c)
	}
	def := f.fn.Definition()
	params := def.ParamTypes()
	if len(args) != len(params) {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", f.name, len(params), len(args))
	}
	stack := make([]uint64, len(params))
	for i, a := range args {
		enc, err := encode(params[i], a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", f.name, i, err)
		}
		stack[i] = enc
	}
	res, err := f.fn.Call(e.ctx, stack...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	results := def.ResultTypes()
	out := make([]any, len(results))
	for i, t := range results {
		out[i] = decode(t, res[i])
	}
	var v any
	switch len(out) {
	case 0:
	case 1:
		v = out[0]
	default:
		v = out
	}
	return &engine.Native{V: v, Assign: convert.Assign}, nil
}

func encode(t api.ValueType, a any) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		var n int32
		if err := convert.Assign(&n, a); err != nil {
			return 0, err
		}
		return api.EncodeI32(n), nil
	case api.ValueTypeI64:
		var n int64
		if err := convert.Assign(&n, a); err != nil {
			return 0, err
		}
		return api.EncodeI64(n), nil
	case api.ValueTypeF32:
		var f float32
		if err := convert.Assign(&f, a); err != nil {
			return 0, err
		}
		return api.EncodeF32(f), nil
	case api.ValueTypeF64:
		var f float64
		if err := convert.Assign(&f, a); err != nil {
			return 0, err
		}
		return api.EncodeF64(f), nil
	}
	return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
}

func decode(t api.ValueType, r uint64) any {
	switch t {
	case api.ValueTypeI32:
		return int64(api.DecodeI32(r))
	case api.ValueTypeI64:
		return int64(r)
	case api.ValueTypeF32:
		return float64(api.DecodeF32(r))
	case api.ValueTypeF64:
		return api.DecodeF64(r)
	}
	return r
}
