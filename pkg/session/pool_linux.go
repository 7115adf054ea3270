//go:build linux

package session

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinWorker ties the calling goroutine to an OS thread and, when core
// is non-negative, sets that thread's CPU affinity. Affinity failures
// are ignored: the benchmark still runs, just unpinned.
func pinWorker(core int) {
	runtime.LockOSThread()
	if core < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	_ = unix.SchedSetaffinity(0, &set)
}
