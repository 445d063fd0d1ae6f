package manager

import "time"

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultWorkers        = 16
	DefaultEntryPoint     = "invoke"
	defaultQueueDepth     = 1024
	defaultDequeueTimeout = 100 * time.Millisecond
	defaultDrainTimeout   = 5 * time.Second
)

// Config encapsulates all tunables for a Scheduler.
type Config struct {
	// Engine builds the embedded runtime on the lifecycle thread.
	Engine EngineFactory
	// Workers is the size of the asynchronous worker pool.
	Workers int
	// QueueDepth bounds the number of queued asynchronous invocations.
	QueueDepth int
	// DequeueTimeout is how long an idle worker waits before re-checking shutdown.
	DequeueTimeout time.Duration
	// DrainTimeout bounds how long shutdown waits for queued tasks to finish.
	DrainTimeout time.Duration
	// Publisher receives lifecycle and task events. Optional.
	Publisher EventPublisher
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	if c.DequeueTimeout <= 0 {
		c.DequeueTimeout = defaultDequeueTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
