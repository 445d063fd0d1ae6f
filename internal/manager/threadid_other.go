//go:build !linux

package manager

// Thread ids are not exposed portably; the lifecycle goroutine is still pinned
// with runtime.LockOSThread.
func currentThreadID() int { return 0 }
