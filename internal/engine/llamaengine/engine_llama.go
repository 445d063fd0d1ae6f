//go:build llama

package llamaengine

import (
	"context"
	"fmt"
	"os"

	llama "github.com/go-skynet/go-llama.cpp"

	"scriptd/internal/common/fsutil"
	"scriptd/internal/convert"
	"scriptd/internal/engine"
)

// Engine loads models with go-llama.cpp. Each imported module owns one model.
type Engine struct {
	opts    Options
	models  []*llama.LLama
	started bool
}

// New returns an engine for models under opts.Dir.
func New(opts Options) *Engine { return &Engine{opts: opts} }

func (e *Engine) Start(ctx context.Context) error {
	e.started = true
	return nil
}

// Close frees every loaded model.
func (e *Engine) Close(ctx context.Context) error {
	for _, m := range e.models {
		m.Free()
	}
	e.models = nil
	e.started = false
	return nil
}

// Import loads the model file.
func (e *Engine) Import(moduleID string) (engine.Module, error) {
	if !e.started {
		return nil, engine.ErrNotStarted
	}
	path, err := fsutil.ModuleFile(e.opts.Dir, moduleID, ".gguf")
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, engine.ErrModuleNotFound)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, engine.ErrModuleNotFound)
		}
		return nil, err
	}
	var mo []llama.ModelOption
	if e.opts.ContextSize > 0 {
		mo = append(mo, llama.SetContext(e.opts.ContextSize))
	}
	if e.opts.Embeddings {
		mo = append(mo, llama.EnableEmbeddings)
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	e.models = append(e.models, m)
	return m, nil
}

type entry struct {
	kind  string
	model *llama.LLama
}

func (e *Engine) Resolve(mod engine.Module, name string) (engine.Callable, error) {
	m, ok := mod.(*llama.LLama)
	if !ok {
		return nil, fmt.Errorf("llamaengine: foreign module handle %T", mod)
	}
	kind, err := entryKind(name)
	if err != nil {
		return nil, err
	}
	return &entry{kind: kind, model: m}, nil
}

// Call runs prediction or embedding on the model.
func (e *Engine) Call(c engine.Callable, args ...any) (engine.Value, error) {
	if !e.started {
		return nil, engine.ErrNotStarted
	}
	en, ok := c.(*entry)
	if !ok {
		return nil, fmt.Errorf("llamaengine: foreign callable %T", c)
	}
	prompt, params, err := promptArgs(args)
	if err != nil {
		return nil, err
	}
	po := predictOptions(params, e.opts.Threads)
	switch en.kind {
	case EntryEmbeddings:
		vec, err := en.model.Embeddings(prompt, po...)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(vec))
		for i, f := range vec {
			out[i] = float64(f)
		}
		return &engine.Native{V: out, Assign: convert.Assign}, nil
	default:
		text, err := en.model.Predict(prompt, po...)
		if err != nil {
			return nil, err
		}
		return &engine.Native{V: text, Assign: convert.Assign}, nil
	}
}

func predictOptions(p PredictParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, orDefault(p.MaxTokens, 128))),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(orDefaultF(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(orDefault(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(orDefaultF(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(orDefaultF(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultF(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
