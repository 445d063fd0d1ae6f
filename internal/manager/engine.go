package manager

import "scriptd/internal/engine"

// Aliases for the runtime boundary so callers of this package rarely need to
// import engine directly.
type (
	Engine        = engine.Engine
	Module        = engine.Module
	Callable      = engine.Callable
	Value         = engine.Value
	EngineFactory = engine.Factory
)
