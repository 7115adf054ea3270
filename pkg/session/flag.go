// Package session drives a database through a workload: it owns the
// executor threads, replays bulk loads, runs producers, and collects
// the benchmark result.
package session

import "sync"

// Flag is a one-shot signal that many goroutines can wait on. Raising
// it more than once is harmless.
type Flag struct {
	ch   chan struct{}
	once sync.Once
}

// NewFlag returns a lowered flag.
func NewFlag() *Flag {
	return &Flag{ch: make(chan struct{})}
}

// Raise releases every current and future waiter.
func (f *Flag) Raise() {
	f.once.Do(func() { close(f.ch) })
}

// Wait blocks until the flag is raised.
func (f *Flag) Wait() { <-f.ch }

// Raised reports whether the flag has been raised, without blocking.
func (f *Flag) Raised() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}
