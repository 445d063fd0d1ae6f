package manager

import (
	"sync"
	"sync/atomic"
)

// execLock is the process-wide execution lock guarding every runtime call.
// holders counts current owners; it can only ever be 0 or 1.
type execLock struct {
	mu      sync.Mutex
	holders atomic.Int32
}

func (l *execLock) Lock() {
	l.mu.Lock()
	if n := l.holders.Add(1); n != 1 {
		panic("manager: execution lock held by more than one goroutine")
	}
}

func (l *execLock) Unlock() {
	l.holders.Add(-1)
	l.mu.Unlock()
}

// Held reports whether some goroutine currently holds the lock.
func (l *execLock) Held() bool { return l.holders.Load() > 0 }
