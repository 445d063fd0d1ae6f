// Package llamaengine exposes a local llama.cpp model as a module. A module id
// maps to <dir>/<a/b>.gguf; entry points are "predict" (also the default
// "invoke") and "embeddings".
//
// The real runtime is compiled with the 'llama' build tag. Without it the
// engine refuses to start with engine.ErrUnavailable, which keeps default
// builds CGO-free.
package llamaengine

import (
	"errors"
	"fmt"

	"scriptd/internal/convert"
	"scriptd/internal/engine"
)

// Options configure an Engine.
type Options struct {
	// Dir is the modules directory holding .gguf files.
	Dir string
	// ContextSize is the model context window in tokens.
	ContextSize int
	// Threads is the number of CPU threads used for prediction.
	Threads int
	// Embeddings loads models with embeddings enabled.
	Embeddings bool
}

// Factory adapts New to engine.Factory.
func Factory(opts Options) engine.Factory {
	return func() (engine.Engine, error) { return New(opts), nil }
}

// Entry points served by every model module.
const (
	EntryPredict    = "predict"
	EntryEmbeddings = "embeddings"
	entryDefault    = "invoke"
)

// PredictParams are the optional generation parameters accepted as the second
// argument of predict.
type PredictParams struct {
	MaxTokens     int      `json:"max_tokens"`
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"top_p"`
	TopK          int      `json:"top_k"`
	RepeatPenalty float32  `json:"repeat_penalty"`
	Seed          int      `json:"seed"`
	Stop          []string `json:"stop"`
}

func entryKind(name string) (string, error) {
	switch name {
	case EntryPredict, entryDefault:
		return EntryPredict, nil
	case EntryEmbeddings:
		return EntryEmbeddings, nil
	}
	return "", fmt.Errorf("%s: %w", name, engine.ErrEntryNotFound)
}

// promptArgs splits call arguments into the prompt text and optional params.
func promptArgs(args []any) (string, PredictParams, error) {
	var p PredictParams
	if len(args) == 0 || len(args) > 2 {
		return "", p, errors.New("expected (prompt) or (prompt, params)")
	}
	var prompt string
	if err := convert.Assign(&prompt, args[0]); err != nil {
		return "", p, fmt.Errorf("prompt: %w", err)
	}
	if len(args) == 2 && args[1] != nil {
		if err := convert.Assign(&p, args[1]); err != nil {
			return "", p, fmt.Errorf("params: %w", err)
		}
	}
	return prompt, p, nil
}
