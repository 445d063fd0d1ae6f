//go:build !llama

package llamaengine

import (
	"context"
	"fmt"

	"scriptd/internal/engine"
)

// Engine is a stub that refuses to start without the 'llama' build tag.
type Engine struct{ opts Options }

// New returns the stub engine.
func New(opts Options) *Engine { return &Engine{opts: opts} }

var errNotBuilt = fmt.Errorf("llama support not built (missing 'llama' build tag): %w", engine.ErrUnavailable)

func (e *Engine) Start(ctx context.Context) error { return errNotBuilt }

func (e *Engine) Close(ctx context.Context) error { return nil }

func (e *Engine) Import(string) (engine.Module, error) { return nil, errNotBuilt }

func (e *Engine) Resolve(engine.Module, string) (engine.Callable, error) { return nil, errNotBuilt }

func (e *Engine) Call(engine.Callable, ...any) (engine.Value, error) { return nil, errNotBuilt }
