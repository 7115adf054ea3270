//go:build !linux

package session

import "runtime"

// pinWorker ties the calling goroutine to an OS thread. CPU pinning is
// only available on Linux; elsewhere the core hint is ignored.
func pinWorker(core int) {
	runtime.LockOSThread()
}
