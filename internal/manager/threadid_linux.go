//go:build linux

package manager

import "golang.org/x/sys/unix"

func currentThreadID() int { return unix.Gettid() }
