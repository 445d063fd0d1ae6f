package manager

import "github.com/rs/zerolog"

var zlog = zerolog.Nop()

// SetLogger installs the logger used for lifecycle and worker messages.
// Call it before the first Acquire.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "manager").Logger() }
